// Package pipeline runs one document through the extraction cascade:
// classify, then parse structured markup or acquire text and apply the
// field heuristics, and finally normalize everything into canonical rows.
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/classify"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/fields"
	"github.com/dfalmeida/notas-extractor/internal/nfe"
	"github.com/dfalmeida/notas-extractor/internal/ocr"
	"github.com/dfalmeida/notas-extractor/internal/rows"
)

// Outcome tags one document's extraction for the ledger and the logs.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeNoText      Outcome = "no_text_extracted"
	OutcomeUnsupported Outcome = "unsupported_format"
	OutcomeParseError  Outcome = "parse_error"
	OutcomeOCRError    Outcome = "ocr_error"
)

// Result is everything one document produced. Zero rows with OutcomeOK
// means the document was readable but had nothing to extract; callers
// must not treat that as failure.
type Result struct {
	Rows     []document.CanonicalRow
	Outcome  Outcome
	Detail   string // parse or ocr error detail, empty otherwise
	Format   constants.DocFormat
	Method   string // how text was acquired, empty when none was needed
	Warnings []string
}

// TextAcquirer yields text for a page-bearing document on disk.
type TextAcquirer interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

type Pipeline struct {
	logger   *slog.Logger
	acquirer TextAcquirer
	rules    fields.Rules
	now      func() time.Time
}

func New(acquirer TextAcquirer, rules fields.Rules, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:   logger,
		acquirer: acquirer,
		rules:    rules,
		now:      time.Now,
	}
}

// Process runs the full cascade for one document. It never returns an
// error: every failure mode is an Outcome, so a bad document cannot stop
// a batch.
func (p *Pipeline) Process(ctx context.Context, src document.Source) Result {
	start := time.Now()
	format := classify.Classify(src.Filename, src.MediaType)
	p.logger.Debug("pipeline.start", "source_id", src.ID, "filename", src.Filename, "format", format)

	var res Result
	switch format {
	case constants.FormatStructured:
		res = p.processStructured(src)
	case constants.FormatText:
		res = p.heuristics(src, constants.FormatText, string(src.Content), "plain-text", nil)
	case constants.FormatPageImage:
		res = p.processPageImage(ctx, src)
	default:
		res = Result{Outcome: OutcomeUnsupported, Format: constants.FormatUnsupported}
	}

	p.logger.Info("pipeline.done",
		"source_id", src.ID,
		"filename", src.Filename,
		"format", res.Format,
		"outcome", res.Outcome,
		"rows", len(res.Rows),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res
}

func (p *Pipeline) processStructured(src document.Source) Result {
	parsed, err := nfe.Parse(src)
	if err != nil {
		p.logger.Error("pipeline.parse.failed", "source_id", src.ID, "error", err)
		return Result{Outcome: OutcomeParseError, Detail: err.Error(), Format: constants.FormatStructured}
	}
	return Result{
		Rows:    rows.Structured(parsed, p.now()),
		Outcome: OutcomeOK,
		Format:  constants.FormatStructured,
		Method:  string(constants.MethodStructured),
	}
}

func (p *Pipeline) processPageImage(ctx context.Context, src document.Source) Result {
	path, cleanup, err := p.spill(src)
	if err != nil {
		return Result{Outcome: OutcomeOCRError, Detail: err.Error(), Format: constants.FormatPageImage}
	}
	defer cleanup()

	acquired, err := p.acquirer.Extract(ctx, path)
	if err != nil {
		p.logger.Error("pipeline.acquire.failed", "source_id", src.ID, "error", err)
		return Result{
			Outcome:  OutcomeOCRError,
			Detail:   err.Error(),
			Format:   constants.FormatPageImage,
			Method:   acquired.Method,
			Warnings: acquired.Warnings,
		}
	}
	return p.heuristics(src, constants.FormatPageImage, acquired.Text, acquired.Method, acquired.Warnings)
}

// heuristics runs the keyword extractor over acquired text and builds the
// best-effort rows.
func (p *Pipeline) heuristics(src document.Source, format constants.DocFormat, text, method string, warnings []string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Outcome: OutcomeNoText, Format: format, Method: method, Warnings: warnings}
	}
	bundle := fields.Extract(text, p.rules)
	items := fields.ExtractItems(text, p.rules)
	return Result{
		Rows:     rows.FromHeuristics(src, bundle, items, p.now()),
		Outcome:  OutcomeOK,
		Format:   format,
		Method:   method,
		Warnings: warnings,
	}
}

// spill writes the document bytes to a scratch file so the external OCR
// binaries can read them. The cleanup runs on every exit path.
func (p *Pipeline) spill(src document.Source) (string, func(), error) {
	dir, err := os.MkdirTemp("", "notas-doc-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			p.logger.Warn("pipeline.tmp.remove_failed", "dir", dir, "error", rmErr)
		}
	}
	path := filepath.Join(dir, filepath.Base(src.Filename))
	if err := os.WriteFile(path, src.Content, 0o600); err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}
