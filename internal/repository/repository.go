// Package repository persists the processing ledger and the extracted rows.
// Two backends implement the same pair of interfaces: an embedded SQLite
// store for single-machine runs and a Postgres store for shared deployments.
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
)

// Entry is one ledger record: a document that was seen, with the outcome
// of its processing. SourceID is the content hash, so a renamed copy of an
// already-processed file still matches.
type Entry struct {
	ID          string
	SourceID    string
	Filename    string
	ProcessedAt time.Time
	Status      constants.LedgerStatus
	Rows        int
	Message     string
}

// Ledger answers "was this document already processed" and records results.
// Entries returns newest first; a non-positive limit means no limit.
type Ledger interface {
	Processed(ctx context.Context, sourceID string) (bool, error)
	Record(ctx context.Context, e Entry) error
	Entries(ctx context.Context, limit int) ([]Entry, error)
}

// RowStore persists canonical rows. AppendRows replaces any rows previously
// stored for the same source, so re-processing a document never duplicates
// its items. A non-positive limit on Rows means no limit.
type RowStore interface {
	AppendRows(ctx context.Context, rows []document.CanonicalRow) error
	Rows(ctx context.Context, limit int) ([]document.CanonicalRow, error)
}

// Store is what the binaries hold: both interfaces plus the closer, so the
// backend switch stays in one place.
type Store interface {
	Ledger
	RowStore
	Close() error
}

// rowColumns is the extracted_rows column list in constants.RowHeader order;
// inserts bind document.CanonicalRow.Values() against it positionally.
const rowColumns = `source_filename, source_id, fornecedor_razao_social,
	fornecedor_cnpj, nota_numero, nota_data, item_index, item_descricao,
	item_quantidade, item_valor_unitario, item_valor_total, nota_valor_total,
	cpf_associado, metodo_extracao, confidence, processed_at, observacoes`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRow rebuilds a canonical row from a SELECT over rowColumns. Both
// database/sql rows and pgx rows satisfy rowScanner.
func scanRow(s rowScanner) (document.CanonicalRow, error) {
	var (
		r                                         document.CanonicalRow
		supplier, taxID, number, date             sql.NullString
		desc, qty, unit, itemTotal, docTotal, cpf sql.NullString
		itemIndex                                 sql.NullInt64
		method                                    string
	)
	err := s.Scan(
		&r.SourceFilename, &r.SourceID, &supplier, &taxID, &number, &date,
		&itemIndex, &desc, &qty, &unit, &itemTotal, &docTotal, &cpf,
		&method, &r.Confidence, &r.ProcessedAt, &r.Observations,
	)
	if err != nil {
		return document.CanonicalRow{}, err
	}
	r.SupplierName = nullable(supplier)
	r.SupplierTaxID = nullable(taxID)
	r.DocNumber = nullable(number)
	r.DocDate = nullable(date)
	r.ItemDesc = nullable(desc)
	r.ItemQuantity = nullable(qty)
	r.ItemUnitValue = nullable(unit)
	r.ItemTotalValue = nullable(itemTotal)
	r.DocTotalValue = nullable(docTotal)
	r.AssociatedCPF = nullable(cpf)
	if itemIndex.Valid {
		idx := int(itemIndex.Int64)
		r.ItemIndex = &idx
	}
	r.Method = constants.ExtractionMethod(method)
	return r, nil
}

func nullable(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

// sourceOrder returns the distinct source ids in first-seen order, so the
// replace-then-insert in AppendRows touches each document exactly once.
func sourceOrder(rows []document.CanonicalRow) []string {
	seen := make(map[string]struct{}, len(rows))
	order := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.SourceID]; ok {
			continue
		}
		seen[r.SourceID] = struct{}{}
		order = append(order, r.SourceID)
	}
	return order
}
