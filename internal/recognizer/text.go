package recognizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// PostProcessText prepares raw decoder output for manga speech bubbles:
// NFC normalization, then every whitespace, control and zero-width rune is
// removed. Japanese text has no word spacing, so any space the model emits
// is noise.
func PostProcessText(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsSpace(r), unicode.IsControl(r), isZeroWidth(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isZeroWidth(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u2060', '\uFEFF':
		return true
	}
	return false
}
