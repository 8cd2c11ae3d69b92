package fields

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NormalizeMoney converts a currency-shaped token to a canonical decimal
// string with two places ("R$ 1.234,56" -> "1234.56"). The decimal
// separator is taken to be the last dot or comma; every other dot and comma
// is grouping. Returns nil when the cleaned token does not parse; never
// panics on junk.
func NormalizeMoney(raw string) *string {
	s := strings.TrimSpace(raw)
	for _, sym := range []string{"R$", "r$", "$"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, sym))
	}
	if s == "" {
		return nil
	}

	intPart, fracPart := s, ""
	if cut := strings.LastIndexAny(s, ".,"); cut >= 0 {
		intPart, fracPart = s[:cut], s[cut+1:]
	}
	intPart = DigitsOnly(intPart)
	if intPart == "" && fracPart == "" {
		return nil
	}
	if intPart == "" {
		intPart = "0"
	}
	candidate := intPart
	if fracPart != "" {
		candidate = intPart + "." + fracPart
	}

	d, err := decimal.NewFromString(candidate)
	if err != nil {
		return nil
	}
	out := d.StringFixed(2)
	return &out
}

// ExtractTotal scans for total labels case-insensitively and reads the
// first currency-shaped number in a bounded window after each, in position
// order. With no anchored hit it falls back to the largest currency-shaped
// number in the whole text. The fallback is intentionally lossy (an
// unrelated large figure can win) and callers must treat it as
// low-confidence; it is kept for compatibility with the anchored path
// always tried first.
func ExtractTotal(text string, r Rules) *string {
	folded := Fold(text)
	for _, a := range anchorPositions(folded, r.TotalKeywords) {
		win := window(folded, a.pos+len(a.kw), totalWindow)
		if m := reMoney.FindString(win); m != "" {
			if n := NormalizeMoney(m); n != nil {
				return n
			}
		}
	}
	return maxMoney(folded)
}

func maxMoney(folded string) *string {
	var best *decimal.Decimal
	for _, m := range reMoney.FindAllString(folded, -1) {
		n := NormalizeMoney(m)
		if n == nil {
			continue
		}
		d, err := decimal.NewFromString(*n)
		if err != nil {
			continue
		}
		if best == nil || d.GreaterThan(*best) {
			best = &d
		}
	}
	if best == nil {
		return nil
	}
	out := best.StringFixed(2)
	return &out
}
