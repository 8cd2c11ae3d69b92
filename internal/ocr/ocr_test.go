package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRunner struct {
	calls    [][]string
	handlers map[string]func(args []string) ([]byte, []byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	h, ok := s.handlers[name]
	if !ok {
		return nil, nil, fmt.Errorf("unexpected command %q", name)
	}
	return h(args)
}

func (s *stubRunner) callsTo(name string) [][]string {
	var out [][]string
	for _, c := range s.calls {
		if c[0] == name {
			out = append(out, c)
		}
	}
	return out
}

// pdftoppmWritesPages fakes rasterization by creating page files under the
// prefix the extractor passed in.
func pdftoppmWritesPages(t *testing.T, n int) func(args []string) ([]byte, []byte, error) {
	t.Helper()
	return func(args []string) ([]byte, []byte, error) {
		prefix := args[len(args)-1]
		for i := 1; i <= n; i++ {
			if err := os.WriteFile(fmt.Sprintf("%s-%d.png", prefix, i), []byte("png"), 0o600); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	}
}

func newTestExtractor(t *testing.T, stub *stubRunner) *Extractor {
	t.Helper()
	e := NewExtractor(Config{}, nil)
	e.runner = stub
	return e
}

func tempDoc(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not a real document"), 0o600))
	return path
}

const longNative = "SUPERMERCADO BOM PREÇO LTDA\nCNPJ 12.345.678/0001-95\nTOTAL 10,00\n"

func TestExtractPDFNativeTextSufficient(t *testing.T) {
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) {
			return []byte(longNative + "\f segunda pagina com mais conteudo util\n"), nil, nil
		},
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "nota.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "native-text", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "SUPERMERCADO")
	assert.Empty(t, stub.callsTo("tesseract"), "good native text must not reach OCR")
}

func TestExtractPDFEscalatesToOCRWhenNativeThin(t *testing.T) {
	recognized := "CUPOM FISCAL\nArroz 25,90\nTOTAL 25,90\nconteudo reconhecido da pagina"
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) { return []byte("x\n"), nil, nil },
		"pdftoppm":  pdftoppmWritesPages(t, 2),
		"tesseract": func([]string) ([]byte, []byte, error) { return []byte(recognized), nil, nil },
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "nota.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "CUPOM FISCAL")

	calls := stub.callsTo("tesseract")
	require.Len(t, calls, 2, "one recognition per rendered page")
	assert.Contains(t, calls[0], "por+eng", "bilingual recognition is the default")

	ppm := stub.callsTo("pdftoppm")
	require.Len(t, ppm, 1)
	assert.Contains(t, ppm[0], "216", "default DPI is 3x the page base")
}

func TestExtractPDFNativeFailureIsAWarning(t *testing.T) {
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) {
			return nil, []byte("syntax error"), fmt.Errorf("exit status 1")
		},
		"pdftoppm":  pdftoppmWritesPages(t, 1),
		"tesseract": func([]string) ([]byte, []byte, error) { return []byte(longNative), nil, nil },
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "nota.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtractPDFMissingPdftotextFallsBackInProcess(t *testing.T) {
	// The temp file is not a real PDF, so the in-process reader fails too;
	// the cascade must still end up in OCR instead of aborting.
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) {
			return nil, nil, &exec.Error{Name: "pdftotext", Err: exec.ErrNotFound}
		},
		"pdftoppm":  pdftoppmWritesPages(t, 1),
		"tesseract": func([]string) ([]byte, []byte, error) { return []byte(longNative), nil, nil },
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "nota.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "native text")
}

func TestExtractPDFRasterizeFailure(t *testing.T) {
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) { return []byte(""), nil, nil },
		"pdftoppm": func([]string) ([]byte, []byte, error) {
			return nil, []byte("cannot open"), fmt.Errorf("exit status 1")
		},
	}}
	e := newTestExtractor(t, stub)

	_, err := e.Extract(context.Background(), tempDoc(t, "nota.pdf"))
	require.Error(t, err)
}

func TestExtractImage(t *testing.T) {
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"tesseract": func([]string) ([]byte, []byte, error) { return []byte(longNative), nil, nil },
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "cupom.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "image-ocr", res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "TOTAL 10,00")
}

func TestRecognizePageRetriesWithAlternateSegmentation(t *testing.T) {
	longer := "TEXTO RECONHECIDO NA SEGUNDA PASSADA COM BLOCO UNIFORME DE CONTEUDO"
	call := 0
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"tesseract": func(args []string) ([]byte, []byte, error) {
			call++
			if call == 1 {
				return []byte("curto"), nil, nil
			}
			return []byte(longer), nil, nil
		},
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "cupom.png"))
	require.NoError(t, err)
	assert.Equal(t, longer, res.Text)

	calls := stub.callsTo("tesseract")
	require.Len(t, calls, 2)
	assert.NotContains(t, strings.Join(calls[0], " "), "--psm")
	assert.Contains(t, strings.Join(calls[1], " "), "--psm 6")
}

func TestRecognizePageKeepsFirstWhenRetryShorter(t *testing.T) {
	first := strings.Repeat("texto curto mas razoavel ", 3) // over the retry threshold
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"tesseract": func([]string) ([]byte, []byte, error) { return []byte(first), nil, nil },
	}}
	e := newTestExtractor(t, stub)

	res, err := e.Extract(context.Background(), tempDoc(t, "cupom.png"))
	require.NoError(t, err)
	require.Len(t, stub.callsTo("tesseract"), 1, "no retry above the threshold")
	assert.Equal(t, strings.TrimSpace(first), res.Text)
}

func TestExtractImageFailure(t *testing.T) {
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"tesseract": func([]string) ([]byte, []byte, error) {
			return nil, []byte("no image"), fmt.Errorf("exit status 1")
		},
	}}
	e := newTestExtractor(t, stub)

	_, err := e.Extract(context.Background(), tempDoc(t, "cupom.png"))
	require.Error(t, err)
}

func TestExtractUnsupportedExtension(t *testing.T) {
	e := newTestExtractor(t, &stubRunner{})
	_, err := e.Extract(context.Background(), "planilha.docx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestNormalize(t *testing.T) {
	in := "LINHA  UM\t\tcom tabs\r\n\r\n\r\n\r\nlinha dois   \n____\npreço  10,00\fpagina dois"
	out := Normalize(in)

	assert.NotContains(t, out, "\r")
	assert.NotContains(t, out, "\t")
	assert.NotContains(t, out, "\f")
	assert.NotContains(t, out, "____")
	assert.NotContains(t, out, "  ")
	assert.Contains(t, out, "preço 10,00")
	assert.Contains(t, out, "pagina dois")
}

type stubCloud struct {
	text  string
	calls int
}

func (s *stubCloud) RecognizeFile(context.Context, string, string) (string, error) {
	s.calls++
	return s.text, nil
}

func TestExtractPDFUsesCloudWhenConfigured(t *testing.T) {
	cloud := &stubCloud{text: longNative}
	stub := &stubRunner{handlers: map[string]func([]string) ([]byte, []byte, error){
		"pdftotext": func([]string) ([]byte, []byte, error) { return []byte(""), nil, nil },
	}}
	e := NewExtractor(Config{Cloud: cloud}, nil)
	e.runner = stub

	res, err := e.Extract(context.Background(), tempDoc(t, "nota.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "cloud-ocr", res.Method)
	assert.Equal(t, 1, cloud.calls)
	assert.Empty(t, stub.callsTo("pdftoppm"), "cloud path skips local rasterization")
}
