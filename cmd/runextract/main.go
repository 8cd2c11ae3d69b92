// Command runextract runs the extraction pipeline against a single file
// and dumps the canonical rows as JSON. Debugging aid for tuning OCR and
// field rules without touching the ledger.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dfalmeida/notas-extractor/internal/common"
	"github.com/dfalmeida/notas-extractor/internal/fields"
	"github.com/dfalmeida/notas-extractor/internal/ingest"
	"github.com/dfalmeida/notas-extractor/internal/ocr"
	"github.com/dfalmeida/notas-extractor/internal/pipeline"
)

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runextract <file>")
		os.Exit(2)
	}

	rules := fields.DefaultRules()
	if cfg.RulesPath != "" {
		r, err := fields.LoadRules(cfg.RulesPath)
		if err != nil {
			logger.Error("runextract.rules.invalid", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
		rules = r
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	folder := ingest.NewFolder(ingest.FolderConfig{}, logger)
	src, err := folder.Load(ctx, os.Args[1])
	if err != nil {
		logger.Error("runextract.load.failed", "path", os.Args[1], "error", err)
		os.Exit(1)
	}

	pipe := pipeline.New(newExtractor(cfg, logger), rules, logger)

	start := time.Now()
	res := pipe.Process(ctx, src)
	dur := time.Since(start)

	logger.Info("runextract.done",
		"filename", src.Filename,
		"format", res.Format,
		"outcome", res.Outcome,
		"method", res.Method,
		"rows", len(res.Rows),
		"warnings", res.Warnings,
		"duration_ms", dur.Milliseconds(),
	)

	out, err := json.MarshalIndent(res.Rows, "", "  ")
	if err != nil {
		logger.Error("runextract.marshal.failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(out))

	if res.Outcome == pipeline.OutcomeParseError || res.Outcome == pipeline.OutcomeOCRError {
		if res.Detail != "" {
			logger.Error("runextract.failed", "outcome", res.Outcome, "detail", res.Detail)
		}
		os.Exit(1)
	}
}

func newExtractor(cfg *common.Config, logger *slog.Logger) *ocr.Extractor {
	ocrCfg := ocr.Config{
		Pdftotext:   cfg.OCR.Pdftotext,
		Pdftoppm:    cfg.OCR.Pdftoppm,
		Tesseract:   cfg.OCR.Tesseract,
		Languages:   cfg.OCR.Languages,
		DPI:         cfg.OCR.DPI,
		MaxPages:    cfg.OCR.MaxPages,
		PSM:         cfg.OCR.PSM,
		RetryPSM:    cfg.OCR.RetryPSM,
		TessdataDir: cfg.OCR.TessdataDir,
	}
	if cfg.OCR.DocAIProjectID != "" && cfg.OCR.DocAIProcessorID != "" {
		ocrCfg.Cloud = ocr.NewDocAI(ocr.DocAIConfig{
			ProjectID:       cfg.OCR.DocAIProjectID,
			Location:        cfg.OCR.DocAILocation,
			ProcessorID:     cfg.OCR.DocAIProcessorID,
			CredentialsFile: cfg.OCR.DocAICredentials,
		}, logger)
	}
	return ocr.NewExtractor(ocrCfg, logger)
}
