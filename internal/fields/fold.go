package fields

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldT strips diacritics. NFKD also maps compatibility forms ("Nº" -> "No")
// so ordinal markers in fiscal labels survive the fold.
var foldT = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases and removes accents. All keyword tables are stored folded
// and every keyword match runs on folded text, so "Endereço", "ENDERECO"
// and OCR-mangled "endereco" anchor the same way.
func Fold(s string) string {
	out, _, err := transform.String(foldT, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return strings.ToLower(out)
}

// DigitsOnly strips every non-digit rune. Idempotent.
func DigitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
