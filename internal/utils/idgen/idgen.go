package idgen

import (
	"crypto/rand"
	"fmt"
	mrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// AttemptPrefix marks tap attempt ids.
const AttemptPrefix = "tap_"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mrand.New(mrand.NewSource(time.Now().UnixNano())), 0)
)

// NewAttemptID returns a tap_* ULID. Ids sort by creation time.
func NewAttemptID() string {
	return AttemptPrefix + strings.ToLower(newULID(time.Now()).String())
}

func newULID(at time.Time) ulid.ULID {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy)
}

// IsAttemptID reports whether value is a tap_* ULID.
func IsAttemptID(value string) bool {
	if !strings.HasPrefix(value, AttemptPrefix) {
		return false
	}
	_, err := ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(value, AttemptPrefix)))
	return err == nil
}

// AttemptTime extracts the creation time encoded in an attempt id.
func AttemptTime(value string) (time.Time, error) {
	id, err := ulid.ParseStrict(strings.ToUpper(strings.TrimPrefix(value, AttemptPrefix)))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse attempt id: %w", err)
	}
	return ulid.Time(id.Time()), nil
}

// GenerateSecureID generates a random alphanumeric id with the given prefix.
func GenerateSecureID(prefix string, length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	const charset = "0123456789abcdefghijklmnopqrstuvwxyz"
	encoded := make([]byte, length)
	for i := range encoded {
		encoded[i] = charset[int(bytes[i])%len(charset)]
	}
	return prefix + "_" + string(encoded), nil
}
