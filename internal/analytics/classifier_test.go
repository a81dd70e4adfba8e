package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/theo/internal/types"
)

func msgs(texts ...string) []types.Message {
	out := make([]types.Message, len(texts))
	for i, text := range texts {
		out[i] = types.Message{ID: text, Text: text}
	}
	return out
}

func TestClassifyMultipleThemesPerMessage(t *testing.T) {
	counts := Classify(msgs("Free cover, VIP tables tonight!"), DefaultRules())

	assert.Equal(t, map[string]int{
		"Free Cover":  1,
		"VIP Tables":  1,
		"Event Promo": 1,
	}, counts.Map())
}

func TestClassifyCountsMessagesNotKeywords(t *testing.T) {
	// "free" and "cover" both hit Free Cover but the message counts once.
	counts := Classify(msgs("free entry, cover waived", "FREE shots"), DefaultRules())

	assert.Equal(t, 2, counts.Get("Free Cover"))
}

func TestClassifyCaseInsensitiveSubstring(t *testing.T) {
	counts := Classify(msgs("CAMPUS night", "Celebrate with us", "djs all night"), DefaultRules())

	assert.Equal(t, 1, counts.Get("Student Offer"))
	assert.Equal(t, 1, counts.Get("Birthday Offer"))
	assert.Equal(t, 1, counts.Get("Event Promo"))
}

func TestClassifyOmitsZeroThemes(t *testing.T) {
	counts := Classify(msgs("hello there", "see you soon"), DefaultRules())

	assert.Equal(t, 0, counts.Len())
	assert.Empty(t, counts.Entries())
	assert.Empty(t, counts.Map())
}

func TestClassifyEmptyInput(t *testing.T) {
	assert.Equal(t, 0, Classify(nil, DefaultRules()).Len())
}

func TestClassifyInsertionOrder(t *testing.T) {
	counts := Classify(msgs("birthday bash", "student night", "birthday again"), DefaultRules())

	assert.Equal(t, []ThemeCount{
		{Name: "Birthday Offer", Count: 2},
		{Name: "Student Offer", Count: 1},
	}, counts.Entries())
}

func TestThemes(t *testing.T) {
	assert.Equal(t, []string{"VIP Tables", "Birthday Offer"}, Themes("Bottle service for your birthday", DefaultRules()))
	assert.Empty(t, Themes("nothing relevant", DefaultRules()))
}
