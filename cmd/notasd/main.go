// Command notasd watches an inbox folder and processes every document
// that lands in it. A gRPC health endpoint reports liveness while the
// watcher runs.
package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/dfalmeida/notas-extractor/internal/batch"
	"github.com/dfalmeida/notas-extractor/internal/common"
	"github.com/dfalmeida/notas-extractor/internal/document"
	"github.com/dfalmeida/notas-extractor/internal/export"
	"github.com/dfalmeida/notas-extractor/internal/fields"
	"github.com/dfalmeida/notas-extractor/internal/ingest"
	"github.com/dfalmeida/notas-extractor/internal/ocr"
	"github.com/dfalmeida/notas-extractor/internal/pipeline"
	"github.com/dfalmeida/notas-extractor/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("notasd.config.invalid", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("notasd.store.open_failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()
	if pg, ok := store.(*repository.Postgres); ok {
		if err := pg.Ping(ctx, cfg.Database.DialTimeout); err != nil {
			logger.Error("notasd.store.ping_failed", "error", err)
			os.Exit(1)
		}
	}

	rules := fields.DefaultRules()
	if cfg.RulesPath != "" {
		r, err := fields.LoadRules(cfg.RulesPath)
		if err != nil {
			logger.Error("notasd.rules.invalid", "path", cfg.RulesPath, "error", err)
			os.Exit(1)
		}
		rules = r
	}

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
		Root:       cfg.Ingest.InboxDir,
		Recursive:  cfg.Ingest.Recursive,
		SkipHidden: cfg.Ingest.SkipHidden,
	}, logger)

	evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Ingest.InboxDir},
		InitialScan: cfg.Ingest.InitialScan,
		Debounce:    cfg.Ingest.Debounce,
	}, logger)
	if err != nil {
		logger.Error("notasd.watch.start_failed", "inbox", cfg.Ingest.InboxDir, "error", err)
		os.Exit(1)
	}

	go func() {
		for err := range errCh {
			logger.Error("notasd.watch.failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for path := range evCh {
			src, err := folder.Load(ctx, path)
			if err != nil {
				logger.Warn("notasd.load.failed", "path", path, "error", err)
				continue
			}
			runner.Run(ctx, []document.Source{src})
		}
	}()

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("notasd.listen.failed", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("notasd.started", "inbox", cfg.Ingest.InboxDir, "addr", cfg.Server.GRPCAddr)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("notasd.grpc.serve_failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("notasd.stopping")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()
	<-done
	logger.Info("notasd.stopped")
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
