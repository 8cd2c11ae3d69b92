// Package rows finalizes extraction output into canonical rows ready for
// any tabular sink.
package rows

import (
	"time"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
)

// Structured stamps parser-built rows with the processing time. Header
// fields, indexes and confidence come from the parser untouched.
func Structured(in []document.CanonicalRow, now time.Time) []document.CanonicalRow {
	out := make([]document.CanonicalRow, len(in))
	stamp := timestamp(now)
	for i, r := range in {
		r.ProcessedAt = stamp
		out[i] = r
	}
	return out
}

// FromHeuristics merges the shared field bundle with each item candidate,
// one row per item. With no items it still emits a single row with a nil
// item index carrying the header fields, so the document is never silently
// dropped. Monetary fields stay normalized decimal strings all the way to
// the sink.
func FromHeuristics(src document.Source, b document.FieldBundle, items []document.ItemCandidate, now time.Time) []document.CanonicalRow {
	base := document.CanonicalRow{
		SourceFilename: src.Filename,
		SourceID:       src.ID,
		SupplierName:   b.SupplierName,
		SupplierTaxID:  b.SupplierTaxID,
		DocNumber:      b.DocNumber,
		DocDate:        b.DocDate,
		DocTotalValue:  b.DocTotal,
		AssociatedCPF:  b.AssociatedCPF,
		Method:         constants.MethodOCRHeuristic,
		Confidence:     constants.ConfidenceHeuristic,
		ProcessedAt:    timestamp(now),
		Observations:   observations(b),
	}

	if len(items) == 0 {
		return []document.CanonicalRow{base}
	}

	out := make([]document.CanonicalRow, 0, len(items))
	for i, it := range items {
		r := base
		idx := i + 1
		desc := it.Description
		r.ItemIndex = &idx
		r.ItemDesc = &desc
		r.ItemQuantity = it.Quantity
		r.ItemUnitValue = it.UnitValue
		r.ItemTotalValue = it.TotalValue
		out = append(out, r)
	}
	return out
}

// observations carries fields without a canonical column, currently just
// the issuer address.
func observations(b document.FieldBundle) string {
	obs := b.Observations
	if b.Address != nil {
		if obs != "" {
			obs += " | "
		}
		obs += "End.: " + *b.Address
	}
	return obs
}

func timestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339)
}
