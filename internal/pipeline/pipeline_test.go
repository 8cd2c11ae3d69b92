package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/fields"
	"github.com/dfalmeida/notas-extractor/internal/ocr"
)

const nfeSample = `<?xml version="1.0" encoding="UTF-8"?>
<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe>
      <ide>
        <nNF>123</nNF>
        <dEmi>2024-01-05</dEmi>
      </ide>
      <emit>
        <CNPJ>12345678000195</CNPJ>
        <xNome>ACME LTDA</xNome>
      </emit>
      <det nItem="1">
        <prod>
          <xProd>Widget</xProd>
          <qCom>2</qCom>
          <vUnCom>10.00</vUnCom>
          <vProd>20.00</vProd>
        </prod>
      </det>
      <total>
        <ICMSTot>
          <vNF>20.00</vNF>
        </ICMSTot>
      </total>
    </infNFe>
  </NFe>
</nfeProc>`

const receiptText = `MERCADO BOM PRECO LTDA
CNPJ: 12.345.678/0001-95
Data: 05/01/2024
Cupom Fiscal 4821
TOTAL GERAL R$ 37,40`

// stubAcquirer records the paths it was asked to read and returns a canned
// result. checkPath runs inside Extract so tests can assert on the scratch
// file while it still exists.
type stubAcquirer struct {
	res       ocr.Result
	err       error
	paths     []string
	checkPath func(path string)
}

func (s *stubAcquirer) Extract(_ context.Context, path string) (ocr.Result, error) {
	s.paths = append(s.paths, path)
	if s.checkPath != nil {
		s.checkPath(path)
	}
	return s.res, s.err
}

func newTestPipeline(acq TextAcquirer) *Pipeline {
	p := New(acq, fields.DefaultRules(), nil)
	p.now = func() time.Time { return time.Date(2024, 1, 10, 15, 4, 5, 0, time.UTC) }
	return p
}

func pdfSource(name string) document.Source {
	return document.Source{ID: "src-pdf", Filename: name, MediaType: "application/pdf", Content: []byte("%PDF-1.4 stub")}
}

func TestProcessStructured(t *testing.T) {
	acq := &stubAcquirer{}
	p := newTestPipeline(acq)

	res := p.Process(context.Background(), document.Source{
		ID:        "src-xml",
		Filename:  "nota.xml",
		MediaType: "application/xml",
		Content:   []byte(nfeSample),
	})

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, constants.FormatStructured, res.Format)
	assert.Equal(t, "structured", res.Method)
	require.Len(t, res.Rows, 1)

	r := res.Rows[0]
	require.NotNil(t, r.SupplierName)
	assert.Equal(t, "ACME LTDA", *r.SupplierName)
	assert.Equal(t, constants.MethodStructured, r.Method)
	assert.Equal(t, constants.ConfidenceStructured, r.Confidence)
	assert.Equal(t, "2024-01-10T15:04:05Z", r.ProcessedAt)
	assert.Empty(t, acq.paths, "structured path must not touch the acquirer")
}

func TestProcessStructuredNoItems(t *testing.T) {
	p := newTestPipeline(&stubAcquirer{})

	res := p.Process(context.Background(), document.Source{
		ID:       "src-xml",
		Filename: "vazia.xml",
		Content:  []byte(`<?xml version="1.0"?><nfeProc><NFe><infNFe><ide><nNF>9</nNF></ide></infNFe></NFe></nfeProc>`),
	})

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Empty(t, res.Rows)
}

func TestProcessMalformedXML(t *testing.T) {
	p := newTestPipeline(&stubAcquirer{})

	res := p.Process(context.Background(), document.Source{
		ID:       "src-xml",
		Filename: "quebrada.xml",
		Content:  []byte("<nfeProc><NFe><infNFe>"),
	})

	assert.Equal(t, OutcomeParseError, res.Outcome)
	assert.NotEmpty(t, res.Detail)
	assert.Empty(t, res.Rows)
}

func TestProcessUnsupported(t *testing.T) {
	acq := &stubAcquirer{}
	p := newTestPipeline(acq)

	res := p.Process(context.Background(), document.Source{
		ID:       "src-doc",
		Filename: "contrato.docx",
		Content:  []byte("PK"),
	})

	assert.Equal(t, OutcomeUnsupported, res.Outcome)
	assert.Equal(t, constants.FormatUnsupported, res.Format)
	assert.Empty(t, res.Rows)
	assert.Empty(t, acq.paths)
}

func TestProcessPDFHeuristics(t *testing.T) {
	acq := &stubAcquirer{res: ocr.Result{Text: receiptText, Pages: 1, Method: "native-text"}}
	p := newTestPipeline(acq)

	res := p.Process(context.Background(), pdfSource("cupom.pdf"))

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, constants.FormatPageImage, res.Format)
	assert.Equal(t, "native-text", res.Method)
	require.Len(t, res.Rows, 1)

	r := res.Rows[0]
	require.NotNil(t, r.SupplierName)
	assert.Equal(t, "MERCADO BOM PRECO LTDA", *r.SupplierName)
	require.NotNil(t, r.SupplierTaxID)
	assert.Equal(t, "12345678000195", *r.SupplierTaxID)
	require.NotNil(t, r.DocTotalValue)
	assert.Equal(t, "37.40", *r.DocTotalValue)
	assert.Equal(t, constants.MethodOCRHeuristic, r.Method)
	assert.Equal(t, constants.ConfidenceHeuristic, r.Confidence)
}

func TestProcessPlainTextSkipsAcquirer(t *testing.T) {
	acq := &stubAcquirer{}
	p := newTestPipeline(acq)

	res := p.Process(context.Background(), document.Source{
		ID:        "src-txt",
		Filename:  "recibo.txt",
		MediaType: "text/plain",
		Content:   []byte(receiptText),
	})

	assert.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, constants.FormatText, res.Format)
	assert.Equal(t, "plain-text", res.Method)
	require.Len(t, res.Rows, 1)
	assert.Empty(t, acq.paths, "plain text never needs acquisition")
}

func TestProcessAcquirerError(t *testing.T) {
	acq := &stubAcquirer{
		res: ocr.Result{Method: "pdf-ocr", Warnings: []string{"page 2: tesseract: boom"}},
		err: errors.New("recognition failed on all 2 pages"),
	}
	p := newTestPipeline(acq)

	res := p.Process(context.Background(), pdfSource("ruim.pdf"))

	assert.Equal(t, OutcomeOCRError, res.Outcome)
	assert.Equal(t, "recognition failed on all 2 pages", res.Detail)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, []string{"page 2: tesseract: boom"}, res.Warnings)
	assert.Empty(t, res.Rows)
}

func TestProcessEmptyText(t *testing.T) {
	acq := &stubAcquirer{res: ocr.Result{Text: "  \n\t ", Pages: 1, Method: "pdf-ocr"}}
	p := newTestPipeline(acq)

	res := p.Process(context.Background(), pdfSource("branca.pdf"))

	assert.Equal(t, OutcomeNoText, res.Outcome)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Empty(t, res.Rows)
}

func TestProcessScratchFileLifecycle(t *testing.T) {
	var seen string
	acq := &stubAcquirer{
		res: ocr.Result{Text: receiptText, Method: "native-text"},
		checkPath: func(path string) {
			seen = path
			b, err := os.ReadFile(path)
			require.NoError(t, err, "scratch file must exist while the acquirer runs")
			assert.Equal(t, "%PDF-1.4 stub", string(b))
		},
	}
	p := newTestPipeline(acq)

	p.Process(context.Background(), pdfSource("cupom.pdf"))

	require.NotEmpty(t, seen)
	assert.Equal(t, "cupom.pdf", filepath.Base(seen), "extension must survive the spill")
	_, err := os.Stat(seen)
	assert.True(t, os.IsNotExist(err), "scratch file must be removed after processing")
}
