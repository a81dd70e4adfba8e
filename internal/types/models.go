// internal/types/models.go
package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is implemented by every entity kind stored in a collection. WithID
// returns a copy of the record carrying the given identifier.
type Record[T any] interface {
	RecordID() string
	WithID(id string) T
}

// Event is a planned night out or happening.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Theme string `json:"theme"`
	Notes string `json:"notes"`
}

func (e Event) RecordID() string       { return e.ID }
func (e Event) WithID(id string) Event { e.ID = id; return e }

// Idea is a free-form idea with a priority label.
type Idea struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Priority    string `json:"priority"`
	Description string `json:"description"`
}

func (i Idea) RecordID() string      { return i.ID }
func (i Idea) WithID(id string) Idea { i.ID = id; return i }

// MediaAsset is an uploaded image kept inline as a data URL.
type MediaAsset struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	DataURL string `json:"dataUrl"`
}

func (m MediaAsset) RecordID() string            { return m.ID }
func (m MediaAsset) WithID(id string) MediaAsset { m.ID = id; return m }

// Message is a logged promotional text. It feeds theme classification and
// the weekly histogram.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

func (m Message) RecordID() string         { return m.ID }
func (m Message) WithID(id string) Message { m.ID = id; return m }

// UnmarshalJSON decodes a message tolerating a malformed createdAt. A value
// that is neither a timestamp string nor epoch milliseconds decodes as the
// zero time so one bad record does not fail the whole collection.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID        string          `json:"id"`
		Text      string          `json:"text"`
		CreatedAt json.RawMessage `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.ID = raw.ID
	m.Text = raw.Text
	m.CreatedAt = parseCreatedAt(raw.CreatedAt)
	return nil
}

var createdAtLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", time.DateOnly}

func parseCreatedAt(raw json.RawMessage) time.Time {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		for _, layout := range createdAtLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}
	var ms float64
	if err := json.Unmarshal(raw, &ms); err == nil && ms > 0 {
		return time.UnixMilli(int64(ms)).UTC()
	}
	return time.Time{}
}

// ContactProfile tags a phone number with an audience profile.
type ContactProfile struct {
	ID      string `json:"id"`
	Phone   string `json:"phone"`
	Profile string `json:"profile"`
	Notes   string `json:"notes"`
}

func (c ContactProfile) RecordID() string                { return c.ID }
func (c ContactProfile) WithID(id string) ContactProfile { c.ID = id; return c }

// Kind names one entity collection.
type Kind string

const (
	KindEvent   Kind = "events"
	KindIdea    Kind = "ideas"
	KindMedia   Kind = "media"
	KindMessage Kind = "messages"
	KindContact Kind = "contacts"
)

// Kinds lists every collection kind in a fixed order.
var Kinds = []Kind{KindEvent, KindIdea, KindMedia, KindMessage, KindContact}

var storeKeys = map[Kind]string{
	KindEvent:   "theo_events",
	KindIdea:    "theo_ideas",
	KindMedia:   "theo_media",
	KindMessage: "theo_sms_messages",
	KindContact: "theo_sms_profiles",
}

// StoreKey returns the durable store key holding the kind's sequence.
func (k Kind) StoreKey() string {
	return storeKeys[k]
}

// ParseKind resolves a kind name (as used in URLs and CLI commands).
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := storeKeys[k]
	return k, ok
}
