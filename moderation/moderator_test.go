package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g. "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
			words:    []string{"badger"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "badger badger badger",
			expected: "****** ****** ******",
			words:    []string{"badger", "badger", "badger"},
		},
		{
			name:     "Uppercase input",
			input:    "A SNAKE appeared",
			expected: "A ***** appeared",
			words:    []string{"snake"},
		},
		{
			name:     "Leet speak",
			input:    "a b4dg3r walks",
			expected: "a ****** walks",
			words:    []string{"badger"},
		},
		{
			name:     "Nothing to censor",
			input:    "chat-relay is quiet today",
			expected: "chat-relay is quiet today",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			censored, found := mod.Censor(tt.input)
			req.Equal(tt.expected, censored)
			req.Equal(tt.words, found)
		})
	}
}

func TestModerator_EmptyDictionaryIsPassThrough(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator(nil, replacementChar)
	req.NoError(err)

	censored, found := mod.Censor("anything goes")
	req.Equal("anything goes", censored)
	req.Nil(found)
}
