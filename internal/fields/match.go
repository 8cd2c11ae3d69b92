package fields

import (
	"sort"
	"strings"
)

// anchor is one keyword occurrence in folded text.
type anchor struct {
	pos int
	kw  string
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

// boundedAt reports whether kw occurring at pos in s sits on word
// boundaries. Only edges that are alphanumeric need a boundary, so "av."
// matches mid-sentence while "total" refuses to fire inside "subtotal".
func boundedAt(s, kw string, pos int) bool {
	if isAlnum(kw[0]) && pos > 0 && isAlnum(s[pos-1]) {
		return false
	}
	end := pos + len(kw)
	if isAlnum(kw[len(kw)-1]) && end < len(s) && isAlnum(s[end]) {
		return false
	}
	return true
}

// anchorPositions returns every boundary-valid occurrence of every keyword,
// ordered by position; ties keep table order so more specific entries win.
func anchorPositions(folded string, keywords []string) []anchor {
	var out []anchor
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(folded[from:], kw)
			if i < 0 {
				break
			}
			i += from
			if boundedAt(folded, kw, i) {
				out = append(out, anchor{pos: i, kw: kw})
			}
			from = i + 1
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].pos < out[j].pos })
	return out
}

// hasKeyword reports whether any keyword occurs in folded text on word
// boundaries.
func hasKeyword(folded string, keywords []string) bool {
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		for from := 0; ; {
			i := strings.Index(folded[from:], kw)
			if i < 0 {
				break
			}
			i += from
			if boundedAt(folded, kw, i) {
				return true
			}
			from = i + 1
		}
	}
	return false
}
