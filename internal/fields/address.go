package fields

import "strings"

const maxAddressLines = 4

// ExtractAddress collects the first bounded run of address-looking lines
// and joins them with spaces. The run starts at the first line carrying an
// address indicator, continues through further indicator lines, tolerates
// one short continuation line right after the start (city/state lines
// rarely carry a keyword), and stops at any excluded-content marker.
func ExtractAddress(text string, r Rules) *string {
	lines := nonEmptyLines(text)

	start := -1
	for i, line := range lines {
		if hasKeyword(Fold(line), r.AddressIndicators) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	collected := []string{lines[start]}
	for j := start + 1; j < len(lines) && len(collected) < maxAddressLines; j++ {
		folded := Fold(lines[j])
		if hasKeyword(folded, r.AddressStops) {
			break
		}
		if hasKeyword(folded, r.AddressIndicators) {
			collected = append(collected, lines[j])
			continue
		}
		if len(collected) == 1 && len(lines[j]) <= 60 && !reMoney.MatchString(folded) {
			collected = append(collected, lines[j])
			continue
		}
		break
	}

	joined := strings.Join(collected, " ")
	joined = stripPostalLabel(joined)
	joined = strings.Join(strings.Fields(joined), " ")
	if joined == "" {
		return nil
	}
	return &joined
}

// stripPostalLabel drops a leading "CEP"-style label, keeping the code.
func stripPostalLabel(s string) string {
	folded := Fold(s)
	if !strings.HasPrefix(folded, "cep") {
		return s
	}
	if len(folded) > 3 && folded[3] >= 'a' && folded[3] <= 'z' {
		return s
	}
	rest := s[3:]
	return strings.TrimLeft(rest, " \t:.-")
}
