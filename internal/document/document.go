package document

import (
	"github.com/dfalmeida/notas-extractor/constants"
)

// Source is one document fetched by a collaborator. The pipeline reads it
// and never mutates it; the ID is the dedup key for the ledger.
type Source struct {
	ID        string
	Filename  string
	MediaType string // declared by the source, may be empty
	Content   []byte
}

// CanonicalRow is one invoice line item, or a synthetic header-only row
// when no items are recoverable. Monetary fields are normalized decimal
// strings, never floats.
type CanonicalRow struct {
	SourceFilename string                     `json:"source_filename"`
	SourceID       string                     `json:"source_id"`
	SupplierName   *string                    `json:"fornecedor_razao_social"`
	SupplierTaxID  *string                    `json:"fornecedor_cnpj"`
	DocNumber      *string                    `json:"nota_numero"`
	DocDate        *string                    `json:"nota_data"`
	ItemIndex      *int                       `json:"item_index"`
	ItemDesc       *string                    `json:"item_descricao"`
	ItemQuantity   *string                    `json:"item_quantidade"`
	ItemUnitValue  *string                    `json:"item_valor_unitario"`
	ItemTotalValue *string                    `json:"item_valor_total"`
	DocTotalValue  *string                    `json:"nota_valor_total"`
	AssociatedCPF  *string                    `json:"cpf_associado"`
	Method         constants.ExtractionMethod `json:"metodo_extracao"`
	Confidence     float64                    `json:"confidence"`
	ProcessedAt    string                     `json:"processed_at"` // UTC, ISO-8601
	Observations   string                     `json:"observacoes"`
}

// Values returns the row in constants.RowHeader order, nil for null fields.
// Both sinks (XLSX and SQL) write through this so column order never drifts.
func (r CanonicalRow) Values() []any {
	return []any{
		r.SourceFilename,
		r.SourceID,
		deref(r.SupplierName),
		deref(r.SupplierTaxID),
		deref(r.DocNumber),
		deref(r.DocDate),
		derefInt(r.ItemIndex),
		deref(r.ItemDesc),
		deref(r.ItemQuantity),
		deref(r.ItemUnitValue),
		deref(r.ItemTotalValue),
		deref(r.DocTotalValue),
		deref(r.AssociatedCPF),
		string(r.Method),
		r.Confidence,
		r.ProcessedAt,
		r.Observations,
	}
}

// FieldBundle is the intermediate result of heuristic extraction: header
// fields only, all nullable, discarded after row expansion.
type FieldBundle struct {
	SupplierName  *string
	SupplierTaxID *string // CNPJ, digits only
	DocNumber     *string
	DocDate       *string // YYYY-MM-DD when parseable, else raw match
	DocTotal      *string // normalized decimal string
	AssociatedCPF *string // digits only
	Address       *string // folded into Observations by the normalizer
	Observations  string
}

// ItemCandidate is one line captured by the item scan. Values are filled
// from trailing currency tokens when the line carries them; quantity stays
// nil on the heuristic path.
type ItemCandidate struct {
	Description string
	Quantity    *string
	UnitValue   *string
	TotalValue  *string
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func derefInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
