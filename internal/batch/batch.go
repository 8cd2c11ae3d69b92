// Package batch drives a set of documents through the pipeline serially,
// consulting the ledger before each one and recording every outcome. One
// document's failure never stops the run.
package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/pipeline"
	"github.com/dfalmeida/notas-extractor/internal/repository"
)

// Processor is the per-document cascade; *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, src document.Source) pipeline.Result
}

// RowSink receives extracted rows. Both repository stores and the XLSX
// workbook satisfy it.
type RowSink interface {
	AppendRows(ctx context.Context, rows []document.CanonicalRow) error
}

// EntrySink mirrors ledger entries, best effort.
type EntrySink interface {
	AppendEntries(ctx context.Context, entries []repository.Entry) error
}

// RunnerConfig wires the runner's collaborators and knobs.
type RunnerConfig struct {
	Processor    Processor
	Ledger       repository.Ledger
	Sinks        []RowSink
	EntrySinks   []EntrySink
	DocTimeout   time.Duration // wall clock per document, 0 means no limit
	ReprocessAll bool          // ignore the ledger's already-processed check
}

// Summary tallies one run.
type Summary struct {
	RunID     string
	Processed int
	Skipped   int
	Failed    int
	Rows      int
}

type Runner struct {
	cfg    RunnerConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewRunner(cfg RunnerConfig, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, logger: logger, now: time.Now}
}

// Run processes docs in order. A cancelled context stops the run between
// documents; everything already recorded stays recorded.
func (r *Runner) Run(ctx context.Context, docs []document.Source) Summary {
	sum := Summary{RunID: uuid.NewString()}
	start := time.Now()
	r.logger.Info("batch.run.start", "run_id", sum.RunID, "docs", len(docs))

	for _, src := range docs {
		if ctx.Err() != nil {
			r.logger.Warn("batch.run.cancelled", "run_id", sum.RunID, "remaining", len(docs)-sum.Processed-sum.Skipped-sum.Failed)
			break
		}
		r.runOne(ctx, src, &sum)
	}

	r.logger.Info("batch.run.done",
		"run_id", sum.RunID,
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"rows", sum.Rows,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sum
}

func (r *Runner) runOne(ctx context.Context, src document.Source, sum *Summary) {
	if !r.cfg.ReprocessAll {
		seen, err := r.cfg.Ledger.Processed(ctx, src.ID)
		if err != nil {
			r.logger.Error("batch.ledger.lookup_failed", "source_id", src.ID, "error", err)
			sum.Failed++
			return
		}
		if seen {
			r.logger.Debug("batch.skip", "source_id", src.ID, "filename", src.Filename)
			sum.Skipped++
			return
		}
	}

	docCtx := ctx
	if r.cfg.DocTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, r.cfg.DocTimeout)
		defer cancel()
	}
	res := r.cfg.Processor.Process(docCtx, src)

	status, message := statusFor(res)
	if len(res.Rows) > 0 {
		for _, sink := range r.cfg.Sinks {
			if err := sink.AppendRows(ctx, res.Rows); err != nil {
				r.logger.Error("batch.sink.failed", "source_id", src.ID, "error", err)
				status, message = constants.StatusFailedSink, err.Error()
				break
			}
		}
	}

	entry := repository.Entry{
		SourceID:    src.ID,
		Filename:    src.Filename,
		ProcessedAt: r.now().UTC(),
		Status:      status,
		Rows:        len(res.Rows),
		Message:     message,
	}
	if err := r.cfg.Ledger.Record(ctx, entry); err != nil {
		r.logger.Error("batch.ledger.record_failed", "source_id", src.ID, "error", err)
	}
	for _, es := range r.cfg.EntrySinks {
		if err := es.AppendEntries(ctx, []repository.Entry{entry}); err != nil {
			r.logger.Warn("batch.entry_mirror.failed", "source_id", src.ID, "error", err)
		}
	}

	r.logger.Info("batch.doc.done",
		"source_id", src.ID,
		"filename", src.Filename,
		"status", status,
		"rows", len(res.Rows),
	)
	switch status {
	case constants.StatusParseError, constants.StatusOCRError, constants.StatusFailedSink:
		sum.Failed++
	default:
		sum.Processed++
		sum.Rows += len(res.Rows)
	}
}

// statusFor maps a pipeline outcome to the ledger status vocabulary.
func statusFor(res pipeline.Result) (constants.LedgerStatus, string) {
	switch res.Outcome {
	case pipeline.OutcomeOK:
		if len(res.Rows) == 0 {
			return constants.StatusNoRows, ""
		}
		return constants.StatusOK, ""
	case pipeline.OutcomeNoText:
		return constants.StatusNoText, ""
	case pipeline.OutcomeUnsupported:
		return constants.StatusUnsupported, ""
	case pipeline.OutcomeParseError:
		return constants.StatusParseError, res.Detail
	case pipeline.OutcomeOCRError:
		return constants.StatusOCRError, res.Detail
	default:
		return constants.StatusNoRows, ""
	}
}
