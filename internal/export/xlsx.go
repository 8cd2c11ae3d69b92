// Package export writes canonical rows and ledger entries to XLSX
// workbooks: a DATA sheet in the fixed row-header order and a LOGS sheet
// mirroring the ledger.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/repository"
)

// Workbook appends to one XLSX file, creating it with both sheets and
// their headers on first use. Each call opens, appends and saves, so a
// crash between batches never loses earlier documents.
type Workbook struct {
	path   string
	logger *slog.Logger
}

func NewWorkbook(path string, logger *slog.Logger) *Workbook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workbook{path: path, logger: logger}
}

// AppendRows writes rows to the DATA sheet after the current last row.
func (w *Workbook) AppendRows(_ context.Context, rows []document.CanonicalRow) error {
	if len(rows) == 0 {
		return nil
	}
	start := time.Now()
	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	next, err := nextRow(f, constants.DataSheet)
	if err != nil {
		return err
	}
	for _, r := range rows {
		writeRow(f, constants.DataSheet, next, r.Values())
		next++
	}
	if err := w.save(f, created); err != nil {
		return err
	}
	w.logger.Info("export.xlsx.ok",
		"path", w.path,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// AppendEntries mirrors ledger entries onto the LOGS sheet.
func (w *Workbook) AppendEntries(_ context.Context, entries []repository.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	f, created, err := w.open()
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	next, err := nextRow(f, constants.LogsSheet)
	if err != nil {
		return err
	}
	for _, e := range entries {
		writeRow(f, constants.LogsSheet, next, entryValues(e))
		next++
	}
	return w.save(f, created)
}

// Build renders rows and entries into a fresh workbook and returns its
// bytes, for dumps that bypass the on-disk file.
func Build(rows []document.CanonicalRow, entries []repository.Entry) ([]byte, error) {
	f := newWorkbookFile()
	defer func() { _ = f.Close() }()

	for i, r := range rows {
		writeRow(f, constants.DataSheet, i+2, r.Values())
	}
	for i, e := range entries {
		writeRow(f, constants.LogsSheet, i+2, entryValues(e))
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// open loads the workbook at w.path, or builds a new one when the file
// does not exist yet. Existing workbooks get missing sheets restored.
func (w *Workbook) open() (*excelize.File, bool, error) {
	if _, err := os.Stat(w.path); os.IsNotExist(err) {
		return newWorkbookFile(), true, nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	ensureSheet(f, constants.DataSheet, constants.RowHeader)
	ensureSheet(f, constants.LogsSheet, constants.LogHeader)
	return f, false, nil
}

func (w *Workbook) save(f *excelize.File, created bool) error {
	var err error
	if created {
		err = f.SaveAs(w.path)
	} else {
		err = f.Save()
	}
	if err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

// newWorkbookFile builds an in-memory workbook with DATA and LOGS sheets,
// headers written and a few columns widened for reading.
func newWorkbookFile() *excelize.File {
	f := excelize.NewFile()
	_ = f.SetSheetName("Sheet1", constants.DataSheet)
	writeRow(f, constants.DataSheet, 1, headerValues(constants.RowHeader))
	ensureSheet(f, constants.LogsSheet, constants.LogHeader)

	_ = f.SetColWidth(constants.DataSheet, "A", "B", 24) // filename, id
	_ = f.SetColWidth(constants.DataSheet, "C", "C", 32) // supplier
	_ = f.SetColWidth(constants.DataSheet, "H", "H", 36) // item description
	_ = f.SetColWidth(constants.DataSheet, "Q", "Q", 48) // observations
	_ = f.SetColWidth(constants.LogsSheet, "A", "B", 24)
	_ = f.SetColWidth(constants.LogsSheet, "F", "F", 48)
	return f
}

func ensureSheet(f *excelize.File, name string, header []string) {
	if index, _ := f.GetSheetIndex(name); index != -1 {
		return
	}
	_, _ = f.NewSheet(name)
	writeRow(f, name, 1, headerValues(header))
}

// nextRow returns the first free row index on the sheet.
func nextRow(f *excelize.File, sheet string) (int, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return len(rows) + 1, nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		if v == nil {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func headerValues(header []string) []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}

func entryValues(e repository.Entry) []any {
	return []any{
		e.SourceID,
		e.Filename,
		e.ProcessedAt.UTC().Format(time.RFC3339),
		string(e.Status),
		e.Rows,
		e.Message,
	}
}
