// Package ingest reads documents from the local filesystem: a one-shot
// folder listing for batch runs and an fsnotify watcher for the daemon.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfalmeida/notas-extractor/constants"
	"github.com/dfalmeida/notas-extractor/internal/document"
)

// FolderConfig selects what the folder source picks up.
type FolderConfig struct {
	Root       string
	Recursive  bool
	SkipHidden bool
}

// Stats summarizes one folder listing.
type Stats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// Folder lists a local directory and loads each supported file into a
// document.Source. The source id is the hex SHA-256 of the content, so a
// renamed or copied file keeps its identity in the ledger.
type Folder struct {
	cfg    FolderConfig
	logger *slog.Logger
}

func NewFolder(cfg FolderConfig, logger *slog.Logger) *Folder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Folder{cfg: cfg, logger: logger}
}

// List walks the root and returns a source per supported file, in lexical
// path order. Unreadable files are counted and logged, never fatal.
func (f *Folder) List(ctx context.Context) ([]document.Source, Stats, error) {
	if strings.TrimSpace(f.cfg.Root) == "" {
		return nil, Stats{}, fmt.Errorf("folder root is required")
	}

	var (
		sources []document.Source
		stats   Stats
	)
	err := filepath.WalkDir(f.cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			f.logger.Warn("ingest.walk.failed", "path", path, "error", walkErr)
			stats.Failed++
			return nil
		}
		if d.IsDir() {
			if path == f.cfg.Root {
				return nil
			}
			if f.cfg.SkipHidden && isHidden(path) {
				return filepath.SkipDir
			}
			if !f.cfg.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		stats.Scanned++
		if f.cfg.SkipHidden && isHidden(path) {
			return nil
		}
		if !allowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		src, err := f.Load(ctx, path)
		if err != nil {
			f.logger.Warn("ingest.read.failed", "path", path, "error", err)
			stats.Failed++
			return nil
		}
		sources = append(sources, src)
		return nil
	})
	if err != nil {
		return sources, stats, fmt.Errorf("walk %s: %w", f.cfg.Root, err)
	}
	f.logger.Info("ingest.list.ok",
		"root", f.cfg.Root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"failed", stats.Failed,
	)
	return sources, stats, nil
}

// Load reads one file into a source. The declared media type comes from
// the extension; the classifier sniffs content anyway.
func (f *Folder) Load(_ context.Context, path string) (document.Source, error) {
	ext := constants.NormalizeExt(filepath.Ext(path))
	if !allowedExt(ext) {
		return document.Source{}, fmt.Errorf("unsupported extension: %q", ext)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return document.Source{}, fmt.Errorf("read %s: %w", path, err)
	}
	sum := sha256.Sum256(b)
	return document.Source{
		ID:        hex.EncodeToString(sum[:]),
		Filename:  filepath.Base(path),
		MediaType: constants.MediaTypeForExt(ext),
		Content:   b,
	}, nil
}

func allowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
