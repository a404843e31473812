package sanitizer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sync/atomic"
)

// Level controls how card numbers and other personal data appear in logs.
type Level string

const (
	// LevelNone redacts values entirely.
	LevelNone Level = "none"
	// LevelHashed replaces values with a salted hash prefix.
	LevelHashed Level = "hashed"
	// LevelFull logs values unchanged.
	LevelFull Level = "full"
)

var (
	cardPattern  = regexp.MustCompile(`\b637805\d{9}\b|\b\d{9}\b`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Sanitizer masks card numbers before they reach logs.
type Sanitizer struct {
	level Level
	salt  string
}

// New creates a sanitizer. Unknown levels behave as LevelHashed.
func New(level Level, salt string) *Sanitizer {
	switch level {
	case LevelNone, LevelHashed, LevelFull:
	default:
		level = LevelHashed
	}
	return &Sanitizer{level: level, salt: salt}
}

// Level returns the effective level.
func (s *Sanitizer) Level() Level {
	return s.level
}

// CardID masks a single card number. Hashed output keeps the last four
// digits so operators can still tell cards apart.
func (s *Sanitizer) CardID(id string) string {
	if id == "" {
		return ""
	}
	switch s.level {
	case LevelFull:
		return id
	case LevelNone:
		return "[CARD]"
	default:
		return fmt.Sprintf("[CARD:%s…%s]", s.hash(id), lastDigits(id, 4))
	}
}

// Text masks card numbers and email addresses inside free text such as a
// terminal failure message.
func (s *Sanitizer) Text(input string) string {
	if s.level == LevelFull || input == "" {
		return input
	}
	out := cardPattern.ReplaceAllStringFunc(input, s.CardID)
	return emailPattern.ReplaceAllStringFunc(out, func(match string) string {
		if s.level == LevelNone {
			return "[EMAIL]"
		}
		return fmt.Sprintf("[EMAIL:%s]", s.hash(match))
	})
}

func (s *Sanitizer) hash(data string) string {
	h := sha256.Sum256([]byte(data + s.salt))
	return hex.EncodeToString(h[:])[:8]
}

func lastDigits(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[len(id)-n:]
}

var defaultSanitizer atomic.Pointer[Sanitizer]

func init() {
	defaultSanitizer.Store(New(LevelHashed, ""))
}

// SetDefault replaces the process-wide sanitizer used by CardID and Text.
func SetDefault(s *Sanitizer) {
	if s != nil {
		defaultSanitizer.Store(s)
	}
}

// Default returns the process-wide sanitizer.
func Default() *Sanitizer {
	return defaultSanitizer.Load()
}

// CardID masks id with the default sanitizer.
func CardID(id string) string {
	return Default().CardID(id)
}

// Text masks input with the default sanitizer.
func Text(input string) string {
	return Default().Text(input)
}
