package fields

import "time"

// ExtractDate finds the document date. A keyword-anchored match is
// preferred over any unanchored one, even when the unanchored match
// appears earlier in the text.
func ExtractDate(text string, r Rules) *string {
	folded := Fold(text)
	for _, a := range anchorPositions(folded, r.DateKeywords) {
		win := window(folded, a.pos+len(a.kw), dateWindow)
		if m := reDate.FindString(win); m != "" {
			return normalizeDate(m)
		}
	}
	if m := reDate.FindString(folded); m != "" {
		return normalizeDate(m)
	}
	return nil
}

// normalizeDate renders day-first and ISO matches as YYYY-MM-DD. A match
// that fails to parse (out-of-range day, bogus month) is kept verbatim;
// a found date is never discarded.
func normalizeDate(m string) *string {
	for _, layout := range []string{"02/01/2006", "02/01/06", "2006-01-02"} {
		if t, err := time.Parse(layout, m); err == nil {
			s := t.Format("2006-01-02")
			return &s
		}
	}
	return &m
}
