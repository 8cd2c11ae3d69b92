package fields

// ExtractDocNumber finds the fiscal document number in a bounded window
// after a label keyword, falling back to the first short digit run anywhere
// in the text when no label anchors. No checksum validation is attempted.
func ExtractDocNumber(text string, r Rules) *string {
	folded := Fold(text)
	for _, a := range anchorPositions(folded, r.DocNumberKeywords) {
		win := window(folded, a.pos+len(a.kw), docNumberWindow)
		loc := reNumberToken.FindStringIndex(win)
		if loc == nil {
			continue
		}
		// Short anchors like "nf" and "no" double as ordinary Portuguese
		// words; for those the digits must follow immediately, with only
		// separator junk in between.
		if len(a.kw) <= 4 && !separatorsOnly(win[:loc[0]]) {
			continue
		}
		m := win[loc[0]:loc[1]]
		return &m
	}
	if m := reNumberToken.FindString(folded); m != "" {
		return &m
	}
	return nil
}

// window slices up to size bytes starting at start, clamped to s.
func window(s string, start, size int) string {
	if start >= len(s) {
		return ""
	}
	end := start + size
	if end > len(s) {
		end = len(s)
	}
	return s[start:end]
}

func separatorsOnly(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', ':', '.', '-', '#', '/':
		default:
			return false
		}
	}
	return true
}
