package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
)

// DocAIConfig identifies a Document AI OCR processor.
type DocAIConfig struct {
	ProjectID       string
	Location        string // processor region, e.g. "us" or "eu"
	ProcessorID     string
	CredentialsFile string // empty = ambient application default credentials
}

// DocAI sends whole documents to Google Document AI, which rasterizes and
// recognizes server-side. Wire it into Config.Cloud to replace the local
// pdftoppm+tesseract path.
type DocAI struct {
	cfg    DocAIConfig
	logger *slog.Logger
}

func NewDocAI(cfg DocAIConfig, logger *slog.Logger) *DocAI {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	return &DocAI{cfg: cfg, logger: logger}
}

func (d *DocAI) RecognizeFile(ctx context.Context, path, mimeType string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", d.cfg.Location)
	opts := []option.ClientOption{option.WithEndpoint(endpoint)}
	if d.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(d.cfg.CredentialsFile))
	}
	client, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return "", fmt.Errorf("create document ai client: %w", err)
	}
	defer func() { _ = client.Close() }()

	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.cfg.ProjectID, d.cfg.Location, d.cfg.ProcessorID)
	req := &documentaipb.ProcessRequest{
		Name: name,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		SkipHumanReview: true,
	}

	resp, err := client.ProcessDocument(ctx, req)
	if err != nil {
		return "", fmt.Errorf("process document: %w", err)
	}

	text := resp.GetDocument().GetText()
	d.logger.Info("ocr.docai.ok", "processor", d.cfg.ProcessorID, "chars", len(text))
	return text, nil
}
