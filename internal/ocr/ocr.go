// Package ocr acquires text from page-bearing documents: native text layer
// first, rasterized OCR when the yield is too thin to be usable.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dfalmeida/notas-extractor/constants"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	Languages string // tesseract -l value, default "por+eng"
	DPI       int    // rasterization DPI, default 216 (3x the 72dpi page base)
	MaxPages  int    // 0 = no limit

	TessdataDir string
	PSM         int // primary page segmentation mode; 0 = tesseract default
	RetryPSM    int // alternate segmentation for short yields, default 6

	MinNativeChars  int // native text under this escalates to OCR, default 30
	RetryUnderChars int // recognition under this triggers the PSM retry, default 50

	// Cloud, when set, replaces the local rasterize+tesseract path: the
	// whole file goes to the remote recognizer in one call.
	Cloud CloudRecognizer
}

// CloudRecognizer is a remote OCR service taking the document as-is.
type CloudRecognizer interface {
	RecognizeFile(ctx context.Context, path, mimeType string) (string, error)
}

// Result is the acquired text plus how it was obtained. Failures along the
// way that did not prevent a usable result are collected as warnings.
type Result struct {
	Text     string
	Pages    int
	Method   string // "native-text" | "pdf-ocr" | "image-ocr" | "cloud-ocr"
	Language string
	Duration time.Duration
	Warnings []string
}

type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "por+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 216
	}
	if cfg.RetryPSM == 0 {
		cfg.RetryPSM = 6
	}
	if cfg.MinNativeChars <= 0 {
		cfg.MinNativeChars = 30
	}
	if cfg.RetryUnderChars <= 0 {
		cfg.RetryUnderChars = 50
	}
	return &Extractor{cfg: cfg, runner: execRunner{}, logger: logger}
}

// Extract picks a strategy from the file extension. An error means the
// acquisition machinery itself failed; thin or empty text with a nil error
// means the document simply has nothing more to give.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("ocr.extract.start", "path", path, "ext", ext)

	var res Result
	var err error
	switch {
	case ext == "pdf":
		res, err = e.extractPDF(ctx, path)
	case constants.IsImageExt(ext):
		res, err = e.extractImage(ctx, path)
	default:
		return Result{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	res.Duration = time.Since(start)
	if err != nil {
		e.logger.Error("ocr.extract.failed", "path", path, "method", res.Method, "error", err)
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"path", path,
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
