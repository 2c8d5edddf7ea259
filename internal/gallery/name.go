package gallery

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kozaktomas/face-recognizer/internal/constants"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidName is returned when an identity name is empty or unusable as a file stem.
var ErrInvalidName = errors.New("invalid name")

// SanitizeName validates an identity name and returns its canonical form.
// The canonical form is trimmed and NFC-normalized so that visually identical
// names always map to the same stored file.
func SanitizeName(name string) (string, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	if utf8.RuneCountInString(name) > constants.MaxNameLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", ErrInvalidName, constants.MaxNameLength)
	}
	if strings.Contains(name, constants.NameDelimiter) {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidName, constants.NameDelimiter)
	}
	if strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, r := range name {
		if !isNameRune(r) {
			return "", fmt.Errorf("%w: unexpected character %q", ErrInvalidName, r)
		}
	}
	return name, nil
}

func isNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) {
		return true
	}
	switch r {
	case ' ', '-', '.', '\'':
		return true
	}
	return false
}

// searchKey folds a name for substring search: diacritics are stripped, case
// is folded and dashes count as spaces, so "jan novak" finds "Jan Novák".
func searchKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	folded = strings.ReplaceAll(strings.ToLower(folded), "-", " ")
	return strings.Join(strings.Fields(folded), " ")
}
