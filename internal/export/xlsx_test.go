package export

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/repository"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

func sampleRow(desc string, idx *int) document.CanonicalRow {
	return document.CanonicalRow{
		SourceFilename: "cupom.pdf",
		SourceID:       "src-1",
		SupplierName:   strp("MERCADO BOM PRECO LTDA"),
		SupplierTaxID:  strp("12345678000195"),
		ItemIndex:      idx,
		ItemDesc:       strp(desc),
		ItemTotalValue: strp("9.90"),
		DocTotalValue:  strp("37.40"),
		Method:         constants.MethodOCRHeuristic,
		Confidence:     constants.ConfidenceHeuristic,
		ProcessedAt:    "2024-01-10T15:04:05Z",
		Observations:   "End.: Rua das Flores, 123",
	}
}

func sampleEntry() repository.Entry {
	return repository.Entry{
		ID:          "e1",
		SourceID:    "src-1",
		Filename:    "cupom.pdf",
		ProcessedAt: time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC),
		Status:      constants.StatusOK,
		Rows:        3,
		Message:     "",
	}
}

func TestAppendRowsCreatesWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notas.xlsx")
	w := NewWorkbook(path, nil)

	require.NoError(t, w.AppendRows(context.Background(), []document.CanonicalRow{
		sampleRow("Arroz 5kg", intp(1)),
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(constants.DataSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, constants.RowHeader, rows[0])

	cell := func(ref string) string {
		v, err := f.GetCellValue(constants.DataSheet, ref)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "cupom.pdf", cell("A2"))
	assert.Equal(t, "src-1", cell("B2"))
	assert.Equal(t, "MERCADO BOM PRECO LTDA", cell("C2"))
	assert.Equal(t, "1", cell("G2"))
	assert.Equal(t, "Arroz 5kg", cell("H2"))
	assert.Equal(t, "ocr-heuristic", cell("N2"))
	assert.Equal(t, "0.6", cell("O2"))
	assert.Equal(t, "2024-01-10T15:04:05Z", cell("P2"))

	logsHeader, err := f.GetRows(constants.LogsSheet)
	require.NoError(t, err)
	require.NotEmpty(t, logsHeader, "LOGS sheet must exist with its header")
	assert.Equal(t, constants.LogHeader, logsHeader[0])
}

func TestAppendRowsAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notas.xlsx")
	w := NewWorkbook(path, nil)
	ctx := context.Background()

	require.NoError(t, w.AppendRows(ctx, []document.CanonicalRow{sampleRow("a", intp(1))}))
	require.NoError(t, w.AppendRows(ctx, []document.CanonicalRow{
		sampleRow("b", intp(1)),
		sampleRow("c", intp(2)),
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(constants.DataSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header plus three appended rows")
}

func TestAppendRowsNilCellsStayEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notas.xlsx")
	w := NewWorkbook(path, nil)

	r := sampleRow("sem numero", nil)
	r.DocNumber = nil
	require.NoError(t, w.AppendRows(context.Background(), []document.CanonicalRow{r}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	num, err := f.GetCellValue(constants.DataSheet, "E2")
	require.NoError(t, err)
	assert.Empty(t, num)
	idx, err := f.GetCellValue(constants.DataSheet, "G2")
	require.NoError(t, err)
	assert.Empty(t, idx)
}

func TestAppendEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notas.xlsx")
	w := NewWorkbook(path, nil)

	require.NoError(t, w.AppendEntries(context.Background(), []repository.Entry{sampleEntry()}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(constants.LogsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, constants.LogHeader, rows[0])

	cell := func(ref string) string {
		v, err := f.GetCellValue(constants.LogsSheet, ref)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "src-1", cell("A2"))
	assert.Equal(t, "cupom.pdf", cell("B2"))
	assert.Equal(t, "2024-01-10T15:04:05Z", cell("C2"))
	assert.Equal(t, "OK", cell("D2"))
	assert.Equal(t, "3", cell("E2"))
}

func TestBuild(t *testing.T) {
	b, err := Build(
		[]document.CanonicalRow{sampleRow("Arroz 5kg", intp(1)), sampleRow("Feijao", intp(2))},
		[]repository.Entry{sampleEntry()},
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	data, err := f.GetRows(constants.DataSheet)
	require.NoError(t, err)
	assert.Len(t, data, 3)

	logs, err := f.GetRows(constants.LogsSheet)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}
