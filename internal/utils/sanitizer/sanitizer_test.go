package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const card = "637805123456789"

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		want  Level
	}{
		{"none level", LevelNone, LevelNone},
		{"hashed level", LevelHashed, LevelHashed},
		{"full level", LevelFull, LevelFull},
		{"unknown falls back to hashed", Level("loud"), LevelHashed},
		{"empty falls back to hashed", "", LevelHashed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.level, "salt")
			require.NotNil(t, s)
			assert.Equal(t, tt.want, s.Level())
		})
	}
}

func TestCardID(t *testing.T) {
	assert.Equal(t, card, New(LevelFull, "salt").CardID(card))
	assert.Equal(t, "[CARD]", New(LevelNone, "salt").CardID(card))
	assert.Equal(t, "", New(LevelHashed, "salt").CardID(""))

	hashed := New(LevelHashed, "salt").CardID(card)
	assert.NotContains(t, hashed, "123456")
	assert.Contains(t, hashed, "6789]")
	assert.Equal(t, hashed, New(LevelHashed, "salt").CardID(card), "hash is stable")
	assert.NotEqual(t, hashed, New(LevelHashed, "other").CardID(card), "salt changes the hash")
}

func TestText(t *testing.T) {
	s := New(LevelHashed, "salt")

	tests := []struct {
		name        string
		input       string
		notContains []string
		contains    []string
	}{
		{
			name:        "full card number",
			input:       "Card 637805123456789 is blocked",
			notContains: []string{"637805123456789"},
			contains:    []string{"Card [CARD:", "is blocked"},
		},
		{
			name:        "short card number",
			input:       "unknown card 123456789",
			notContains: []string{"123456789"},
			contains:    []string{"unknown card [CARD:"},
		},
		{
			name:        "email",
			input:       "contact support@beep.example.com",
			notContains: []string{"support@beep.example.com"},
			contains:    []string{"[EMAIL:"},
		},
		{
			name:     "nothing sensitive",
			input:    "Insufficient balance",
			contains: []string{"Insufficient balance"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Text(tt.input)
			for _, v := range tt.notContains {
				assert.NotContains(t, got, v)
			}
			for _, v := range tt.contains {
				assert.Contains(t, got, v)
			}
		})
	}

	assert.Equal(t, "Card [CARD] is blocked", New(LevelNone, "").Text("Card 637805123456789 is blocked"))
	assert.Equal(t, "Card 637805123456789 is blocked", New(LevelFull, "").Text("Card 637805123456789 is blocked"))
}

func TestDefault(t *testing.T) {
	prev := Default()
	t.Cleanup(func() { SetDefault(prev) })

	assert.Equal(t, LevelHashed, Default().Level())

	SetDefault(New(LevelNone, ""))
	assert.Equal(t, "[CARD]", CardID(card))
	assert.Equal(t, "id [CARD]", Text("id "+card))

	SetDefault(nil)
	assert.Equal(t, LevelNone, Default().Level())
}
