// Command notas is the batch CLI: process a folder of fiscal documents,
// export the row store to a workbook, and inspect rules and the ledger.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dfalmeida/notas-extractor/internal/batch"
	"github.com/dfalmeida/notas-extractor/internal/common"
	"github.com/dfalmeida/notas-extractor/internal/export"
	"github.com/dfalmeida/notas-extractor/internal/fields"
	"github.com/dfalmeida/notas-extractor/internal/ingest"
	"github.com/dfalmeida/notas-extractor/internal/ocr"
	"github.com/dfalmeida/notas-extractor/internal/pipeline"
	"github.com/dfalmeida/notas-extractor/internal/repository"
)

var version = "0.1.0"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "notas",
		Short: "Field extraction for Brazilian fiscal documents",
		Long: `notas reads NF-e XML, PDF and photographed receipts, extracts the
invoice fields (supplier, CNPJ, number, date, items, totals) and writes
canonical rows to a database and an XLSX workbook. A content-hash ledger
keeps every document from being processed twice.`,
		Version: version,
	}

	rootCmd.AddCommand(processCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(ledgerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func processCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process every supported document in a folder",
		Long: `Process lists the folder, skips documents the ledger has already seen,
runs each one through the extraction cascade and appends the rows to the
database and the workbook.

Example:
  notas process --dir ./inbox
  notas process --dir ./notas --recursive --reprocess --xlsx relatorio.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				return errors.New("--dir flag is required")
			}

			cfg := common.LoadConfig()
			if cmd.Flags().Changed("xlsx") {
				cfg.Export.WorkbookPath, _ = cmd.Flags().GetString("xlsx")
			}
			if cmd.Flags().Changed("rules") {
				cfg.RulesPath, _ = cmd.Flags().GetString("rules")
			}
			if cmd.Flags().Changed("recursive") {
				cfg.Ingest.Recursive, _ = cmd.Flags().GetBool("recursive")
			}
			if cmd.Flags().Changed("reprocess") {
				cfg.Batch.ReprocessAll, _ = cmd.Flags().GetBool("reprocess")
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Batch.DocTimeout, _ = cmd.Flags().GetDuration("timeout")
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rules, err := loadRules(cfg.RulesPath)
			if err != nil {
				return err
			}
			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			workbook := export.NewWorkbook(cfg.Export.WorkbookPath, logger)
			pipe := pipeline.New(newExtractor(cfg, logger), rules, logger)
			runner := batch.NewRunner(batch.RunnerConfig{
				Processor:    pipe,
				Ledger:       store,
				Sinks:        []batch.RowSink{store, workbook},
				EntrySinks:   []batch.EntrySink{workbook},
				DocTimeout:   cfg.Batch.DocTimeout,
				ReprocessAll: cfg.Batch.ReprocessAll,
			}, logger)

			folder := ingest.NewFolder(ingest.FolderConfig{
				Root:       dir,
				Recursive:  cfg.Ingest.Recursive,
				SkipHidden: cfg.Ingest.SkipHidden,
			}, logger)
			sources, stats, err := folder.List(ctx)
			if err != nil {
				return err
			}

			sum := runner.Run(ctx, sources)
			fmt.Printf("Scanned %d files, %d supported.\n", stats.Scanned, stats.Matched)
			fmt.Printf("Processed %d, skipped %d, failed %d; %d rows extracted (run %s).\n",
				sum.Processed, sum.Skipped, sum.Failed, sum.Rows, sum.RunID)
			fmt.Printf("Workbook: %s\n", cfg.Export.WorkbookPath)
			return nil
		},
	}

	cmd.Flags().String("dir", "", "folder with documents (required)")
	cmd.Flags().String("xlsx", "", "workbook path (default from XLSX_PATH)")
	cmd.Flags().String("rules", "", "extraction rules override file (default from RULES_PATH)")
	cmd.Flags().Bool("recursive", false, "descend into subfolders")
	cmd.Flags().Bool("reprocess", false, "ignore the ledger and process everything again")
	cmd.Flags().Duration("timeout", 0, "per-document timeout (default from DOC_TIMEOUT)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the row store and ledger to a fresh workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			rows, err := store.Rows(ctx, limit)
			if err != nil {
				return err
			}
			entries, err := store.Entries(ctx, limit)
			if err != nil {
				return err
			}
			b, err := export.Build(rows, entries)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Printf("Wrote %d rows and %d ledger entries to %s.\n", len(rows), len(entries), out)
			return nil
		},
	}

	cmd.Flags().String("out", "notas-export.xlsx", "output workbook path")
	cmd.Flags().Int("limit", 0, "maximum rows and entries, 0 for all")
	return cmd
}

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate extraction rules",
	}
	cmd.AddCommand(rulesShowCmd())
	cmd.AddCommand(rulesCheckCmd())
	return cmd
}

func rulesShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective rules as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("rules")
			if path == "" {
				path = common.LoadConfig().RulesPath
			}
			rules, err := loadRules(path)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(rules, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(b))
			return nil
		},
	}
	cmd.Flags().String("rules", "", "rules override file (default from RULES_PATH)")
	return cmd
}

func rulesCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rules override file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := fields.LoadRules(args[0]); err != nil {
				return err
			}
			fmt.Printf("%s: ok\n", args[0])
			return nil
		},
	}
}

func ledgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "List recent ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			cfg := common.LoadConfig()
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := openStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Entries(ctx, limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("Ledger is empty.")
				return nil
			}
			for _, e := range entries {
				fmt.Printf("%s  %-12s  %3d rows  %s", e.ProcessedAt.Format("2006-01-02 15:04:05"), e.Status, e.Rows, e.Filename)
				if e.Message != "" {
					fmt.Printf("  (%s)", e.Message)
				}
				fmt.Println()
			}
			return nil
		},
	}

	cmd.Flags().Int("limit", 20, "maximum entries, 0 for all")
	return cmd
}

func newLogger(cfg *common.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// loadRules fails hard when an explicit override file is broken; silently
// falling back to defaults would hide typos from the operator.
func loadRules(path string) (fields.Rules, error) {
	if path == "" {
		return fields.DefaultRules(), nil
	}
	rules, err := fields.LoadRules(path)
	if err != nil {
		return fields.Rules{}, fmt.Errorf("rules override %s: %w", path, err)
	}
	return rules, nil
}

func openStore(ctx context.Context, cfg *common.Config, logger *slog.Logger) (repository.Store, error) {
	if cfg.Database.Driver == "postgres" {
		return repository.OpenPostgres(ctx, repository.PostgresConfig{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
	}
	return repository.OpenSQLite(cfg.Database.Path, logger)
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
