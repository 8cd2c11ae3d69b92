package fields

import (
	"strings"
	"unicode"

	"github.com/dfalmeida/notas-extractor/internal/document"
)

const minItemLineLen = 8

type scanState int

const (
	beforeItems scanState = iota
	inItems
	done
)

// ExtractItems runs the two-phase item scan: find the items-section start
// keyword, then accumulate subsequent lines that carry a currency-shaped
// number and alphabetic content. Block-listed labels are skipped without
// ending the section; an end keyword or the ceiling finishes it for good.
// There is no way back to the searching state, so trailing boilerplate
// that happens to look like an item is never captured.
func ExtractItems(text string, r Rules) []document.ItemCandidate {
	var items []document.ItemCandidate
	state := beforeItems

	for _, raw := range strings.Split(text, "\n") {
		if state == done {
			break
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		folded := Fold(line)

		switch state {
		case beforeItems:
			if hasKeyword(folded, r.ItemStartKeywords) {
				state = inItems
			}
		case inItems:
			if hasKeyword(folded, r.ItemBlockList) {
				continue
			}
			if hasKeyword(folded, r.ItemEndKeywords) {
				state = done
				continue
			}
			if !itemShaped(line) {
				continue
			}
			items = append(items, decomposeItem(line))
			if len(items) >= r.MaxItems {
				state = done
			}
		}
	}
	return items
}

func itemShaped(line string) bool {
	if len(line) < minItemLineLen {
		return false
	}
	if !reMoney.MatchString(line) {
		return false
	}
	for _, r := range line {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// decomposeItem splits a captured line into a description and trailing
// values: with two or more currency tokens the last two are unit and total,
// with one it is the total alone. Quantity is not recoverable from a flat
// line and stays nil.
func decomposeItem(line string) document.ItemCandidate {
	c := document.ItemCandidate{Description: line}
	locs := reMoney.FindAllStringIndex(line, -1)
	if len(locs) == 0 {
		return c
	}
	if desc := strings.TrimRight(strings.TrimSpace(line[:locs[0][0]]), " -x.,:*"); desc != "" {
		c.Description = desc
	}
	last := locs[len(locs)-1]
	c.TotalValue = NormalizeMoney(line[last[0]:last[1]])
	if len(locs) >= 2 {
		prev := locs[len(locs)-2]
		c.UnitValue = NormalizeMoney(line[prev[0]:prev[1]])
	}
	return c
}
