package fields

import (
	"strings"
	"unicode"
)

// ExtractSupplier recovers the issuer name. Three tiers, first success wins:
// lines just above the tax id, then a legal-suffix or sector-keyword line in
// the document head, then the first name-shaped line. A line that fails the
// filters is never guessed at; callers get nil instead.
func ExtractSupplier(text string, r Rules) *string {
	lines := nonEmptyLines(text)
	if s := supplierNearTaxID(lines, r); s != nil {
		return s
	}
	if s := supplierByKeyword(lines, r); s != nil {
		return s
	}
	return supplierByShape(lines, r)
}

// supplierNearTaxID walks up to three non-empty lines above the first
// tax-id-bearing line, nearest first, preferring one that carries a
// legal-entity suffix.
func supplierNearTaxID(lines []string, r Rules) *string {
	idx := -1
	for i, line := range lines {
		if reCNPJ.MatchString(line) || reCPF.MatchString(line) {
			idx = i
			break
		}
	}
	if idx <= 0 {
		return nil
	}

	var fallback *string
	for off := 1; off <= 3 && idx-off >= 0; off++ {
		line := lines[idx-off]
		if !supplierShape(line, r) {
			continue
		}
		if hasKeyword(Fold(line), r.LegalSuffixes) {
			s := line
			return &s
		}
		if fallback == nil {
			s := line
			fallback = &s
		}
	}
	return fallback
}

// supplierByKeyword scans the first ten non-empty lines for one bearing a
// legal suffix or sector keyword, skipping address- and contact-looking
// lines.
func supplierByKeyword(lines []string, r Rules) *string {
	for i, line := range lines {
		if i >= 10 {
			break
		}
		if len(line) <= 5 {
			continue
		}
		folded := Fold(line)
		if !hasKeyword(folded, r.LegalSuffixes) && !hasKeyword(folded, r.SectorKeywords) {
			continue
		}
		if hasKeyword(folded, r.AddressIndicators) || hasKeyword(folded, r.AddressStops) {
			continue
		}
		s := line
		return &s
	}
	return nil
}

// supplierByShape takes the first compact caps or title-case line in the
// document head that does not look like a date, id, amount or address.
func supplierByShape(lines []string, r Rules) *string {
	for i, line := range lines {
		if i >= 5 {
			break
		}
		if len(line) > 80 || !supplierShape(line, r) {
			continue
		}
		if reCNPJ.MatchString(line) || reCPF.MatchString(line) {
			continue
		}
		s := line
		return &s
	}
	return nil
}

// supplierShape is the shared filter: long enough, predominantly uppercase
// or title-case, free of date, currency, address and contact tokens.
func supplierShape(line string, r Rules) bool {
	if len(strings.TrimSpace(line)) <= 5 {
		return false
	}
	if !upperOrTitle(line) {
		return false
	}
	folded := Fold(line)
	if reDate.MatchString(folded) || reMoney.MatchString(folded) {
		return false
	}
	if hasKeyword(folded, r.AddressIndicators) || hasKeyword(folded, r.AddressStops) {
		return false
	}
	return true
}

func upperOrTitle(s string) bool {
	letters, uppers := 0, 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters == 0 {
		return false
	}
	if float64(uppers)/float64(letters) >= 0.6 {
		return true
	}
	return isTitleCase(s)
}

// isTitleCase requires every word beyond connective length to start with
// an uppercase letter.
func isTitleCase(s string) bool {
	seen := false
	for _, w := range strings.Fields(s) {
		runes := []rune(w)
		if len(runes) <= 3 {
			continue
		}
		var first rune
		for _, r := range runes {
			if unicode.IsLetter(r) {
				first = r
				break
			}
		}
		if first == 0 {
			continue
		}
		if !unicode.IsUpper(first) {
			return false
		}
		seen = true
	}
	return seen
}

// nonEmptyLines splits text into trimmed, non-empty lines.
func nonEmptyLines(text string) []string {
	raw := strings.Split(text, "\n")
	out := make([]string, 0, len(raw))
	for _, l := range raw {
		if t := strings.TrimSpace(l); t != "" {
			out = append(out, t)
		}
	}
	return out
}
