package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const maskChar = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g., "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake", "mushroom"}
	mod, err := NewModerator(dictionary, maskChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "multiple occurrences",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name:     "leet speak and internal punctuation",
			input:    "Look at B.4.d.g.€r !",
			expected: "Look at ********** !",
		},
		{
			name:     "uppercase and noise",
			input:    "S-N-A-K-E is a B.A.D.G.E.R",
			expected: "********* is a ***********",
		},
		{
			name:     "accents around the match are untouched",
			input:    "Un été avec un badger",
			expected: "Un été avec un ******",
		},
		{
			name:     "clean input passes through",
			input:    "nothing to see here",
			expected: "nothing to see here",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, mod.Censor(tt.input))
		})
	}
}

func TestLoadDictionary_EmbeddedListIsUsable(t *testing.T) {
	req := require.New(t)

	dict, err := LoadDictionary()
	req.NoError(err)
	req.NotEmpty(dict.Words)
	req.Contains(dict.Languages, "en")

	mod, err := NewModerator(dict.Words, maskChar)
	req.NoError(err)
	req.Equal("what an *****", mod.Censor("what an idiot"))
}
