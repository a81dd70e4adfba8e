// internal/types/ids.go
package types

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	idAlphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength = 6
)

// ID formats accepted by GeneratorFor.
const (
	IDFormatTimestamp = "timestamp"
	IDFormatUUID      = "uuid"
)

// IDGenerator produces a fresh record identifier on every call.
type IDGenerator func() string

// NewRecordID returns "<unix millis>_<6 base-36 chars>". Uniqueness is
// probabilistic: no check against existing ids is made.
func NewRecordID() string {
	return newTimestampID(time.Now())
}

func newTimestampID(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "_" + randomSuffix(idSuffixLength)
}

func randomSuffix(n int) string {
	max := big.NewInt(int64(len(idAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		buf[i] = idAlphabet[v.Int64()]
	}
	return string(buf)
}

// NewUUIDRecordID returns a random UUID v4 string.
func NewUUIDRecordID() string {
	return uuid.New().String()
}

// GeneratorFor maps a configured id format to a generator. Unknown or empty
// formats fall back to the timestamp format.
func GeneratorFor(format string) IDGenerator {
	switch format {
	case IDFormatUUID:
		return NewUUIDRecordID
	default:
		return NewRecordID
	}
}
