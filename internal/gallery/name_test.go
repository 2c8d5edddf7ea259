package gallery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName_Accepted(t *testing.T) {
	tests := map[string]string{
		"alice":           "alice",
		"  Bob  ":         "Bob",
		"Jan Novák":       "Jan Novák",
		"Jan Nova\u0301k": "Jan Novák",
		"O'Brien":         "O'Brien",
		"mary-jane":       "mary-jane",
		"dr. who":         "dr. who",
		"Agent 47":        "Agent 47",
	}

	for input, want := range tests {
		t.Run(input, func(t *testing.T) {
			got, err := SanitizeName(input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSanitizeName_Rejected(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"alice_2024",
		"../etc",
		".hidden",
		"a..b",
		"a/b",
		`a\b`,
		"tab\there",
		"smile😀",
		strings.Repeat("x", 65),
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := SanitizeName(input)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestSanitizeName_LengthCountsRunes(t *testing.T) {
	name := strings.Repeat("ř", 64)
	got, err := SanitizeName(name)
	require.NoError(t, err)
	assert.Equal(t, name, got)
}

func TestSearchKey(t *testing.T) {
	assert.Equal(t, "jan novak", searchKey("Jan Novák"))
	assert.Equal(t, "zlutoucky kun", searchKey("Žluťoučký-kůň"))
	assert.Equal(t, "mary jane", searchKey("  MARY -  Jane "))
	assert.Equal(t, "o'brien", searchKey("O'Brien"))
	assert.Empty(t, searchKey(""))
}
