// Package common resolves configuration for the binaries from the
// environment. Every knob lives in an explicit struct field; packages never
// read env vars themselves.
package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds everything the binaries wire together.
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	Ingest    IngestConfig
	Batch     BatchConfig
	Export    ExportConfig
	RulesPath string
	LogLevel  string
}

// DatabaseConfig selects and tunes the ledger/row-store backend.
type DatabaseConfig struct {
	Driver           string // "sqlite" or "postgres"
	Path             string // sqlite file path
	DSN              string // postgres connection string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig carries the text-acquisition knobs. Empty strings and zeros
// mean "use the extractor's defaults".
type OCRConfig struct {
	Pdftotext   string
	Pdftoppm    string
	Tesseract   string
	Languages   string
	DPI         int
	MaxPages    int
	PSM         int
	RetryPSM    int
	TessdataDir string

	DocAIProjectID   string
	DocAILocation    string
	DocAIProcessorID string
	DocAICredentials string
}

type IngestConfig struct {
	InboxDir    string
	Recursive   bool
	SkipHidden  bool
	InitialScan bool
	Debounce    time.Duration
}

type BatchConfig struct {
	DocTimeout   time.Duration
	ReprocessAll bool
}

type ExportConfig struct {
	WorkbookPath string
}

// LoadConfig reads the environment. Call godotenv.Load first in binaries
// that support an .env file.
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           getEnv("DB_DRIVER", "sqlite"),
			Path:             getEnv("DB_PATH", "notas.db"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Pdftotext:        getEnv("PDFTOTEXT_BIN", ""),
			Pdftoppm:         getEnv("PDFTOPPM_BIN", ""),
			Tesseract:        getEnv("TESSERACT_BIN", ""),
			Languages:        getEnv("OCR_LANGUAGES", ""),
			DPI:              getEnvAsInt("OCR_DPI", 0),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 0),
			PSM:              getEnvAsInt("OCR_PSM", 0),
			RetryPSM:         getEnvAsInt("OCR_RETRY_PSM", 0),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			DocAIProjectID:   getEnv("DOCAI_PROJECT_ID", ""),
			DocAILocation:    getEnv("DOCAI_LOCATION", ""),
			DocAIProcessorID: getEnv("DOCAI_PROCESSOR_ID", ""),
			DocAICredentials: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Ingest: IngestConfig{
			InboxDir:    getEnv("INBOX_DIR", "./inbox"),
			Recursive:   getEnvAsBool("INBOX_RECURSIVE", false),
			SkipHidden:  getEnvAsBool("INBOX_SKIP_HIDDEN", true),
			InitialScan: getEnvAsBool("INBOX_INITIAL_SCAN", true),
			Debounce:    getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
		Batch: BatchConfig{
			DocTimeout:   getEnvAsDuration("DOC_TIMEOUT", 2*time.Minute),
			ReprocessAll: getEnvAsBool("REPROCESS_ALL", false),
		},
		Export: ExportConfig{
			WorkbookPath: getEnv("XLSX_PATH", "notas.xlsx"),
		},
		RulesPath: getEnv("RULES_PATH", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
	}
}

// SlogLevel maps the LOG_LEVEL value onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks the fields every binary needs before wiring starts.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return NewAppError("CONFIG_ERROR", "DB_PATH is required for the sqlite driver", ErrInvalidInput)
		}
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for the postgres driver", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR",
			fmt.Sprintf("unknown DB_DRIVER %q, want sqlite or postgres", c.Database.Driver),
			ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
