// Package fields turns raw document text into structured invoice fields.
// Every extractor is a pure function over the text and a Rules table, so
// rules can be swapped per call without touching package state.
package fields

import "github.com/dfalmeida/notas-extractor/internal/document"

// Extract runs every field heuristic over the text and assembles the
// bundle. It never fails; fields without a confident match stay nil.
func Extract(text string, r Rules) document.FieldBundle {
	return document.FieldBundle{
		SupplierName:  ExtractSupplier(text, r),
		SupplierTaxID: ExtractCNPJ(text),
		DocNumber:     ExtractDocNumber(text, r),
		DocDate:       ExtractDate(text, r),
		DocTotal:      ExtractTotal(text, r),
		AssociatedCPF: ExtractCPF(text),
		Address:       ExtractAddress(text, r),
	}
}
