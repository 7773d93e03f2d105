package pipeline

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares dictation text for the model: NFKC folding (full-width
// digits, ligatures, non-breaking spaces), control characters dropped and
// whitespace collapsed.
func Normalize(dictation string) string {
	folded := norm.NFKC.String(dictation)

	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, folded)

	return strings.Join(strings.Fields(cleaned), " ")
}
