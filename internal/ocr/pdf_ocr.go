package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads the native text layer first and escalates to OCR when
// the yield is under MinNativeChars. A native failure downgrades to a
// warning; only the recognition machinery failing is an error.
func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	text, pages, warns, err := e.nativeText(ctx, path)
	if err != nil {
		warns = append(warns, fmt.Sprintf("native text: %v", err))
		text = ""
	}
	if len(strings.TrimSpace(text)) >= e.cfg.MinNativeChars {
		return Result{
			Text:     Normalize(text),
			Pages:    pages,
			Method:   "native-text",
			Language: e.cfg.Languages,
			Warnings: warns,
		}, nil
	}
	e.logger.Debug("ocr.native.thin", "path", path, "chars", len(strings.TrimSpace(text)))

	if e.cfg.Cloud != nil {
		out, err := e.cfg.Cloud.RecognizeFile(ctx, path, "application/pdf")
		if err != nil {
			return Result{Method: "cloud-ocr", Warnings: warns}, err
		}
		return Result{Text: Normalize(out), Pages: pages, Method: "cloud-ocr", Warnings: warns}, nil
	}

	ocrText, ocrPages, w, err := e.pdfOCR(ctx, path)
	warns = append(warns, w...)
	if err != nil {
		return Result{Pages: ocrPages, Method: "pdf-ocr", Warnings: warns}, err
	}
	return Result{
		Text:     Normalize(ocrText),
		Pages:    ocrPages,
		Method:   "pdf-ocr",
		Language: e.cfg.Languages,
		Warnings: warns,
	}, nil
}

// nativeText shells out to pdftotext, falling back to an in-process reader
// when the binary is not installed so native-first still works on hosts
// without poppler.
func (e *Extractor) nativeText(ctx context.Context, path string) (string, int, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err == nil {
		text := string(out)
		// pdftotext separates pages with a form feed.
		return text, 1 + strings.Count(text, "\f"), nil, nil
	}
	if !errors.Is(err, exec.ErrNotFound) {
		return "", 0, []string{truncate(string(errb), 8<<10)}, err
	}

	e.logger.Debug("ocr.native.inprocess", "path", path)
	text, pages, err := pdfLayerText(path)
	if err != nil {
		return "", 0, nil, err
	}
	return text, pages, nil, nil
}

// pdfLayerText extracts the embedded text layer without external binaries.
// The library panics on some malformed files, so recover to an error.
func pdfLayerText(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf text layer: %v", r)
		}
	}()

	b, err := os.ReadFile(path)
	if err != nil {
		return "", 0, err
	}
	rd, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", 0, err
	}

	var sb strings.Builder
	pages = rd.NumPage()
	for i := 1; i <= pages; i++ {
		page := rd.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, rowErr := page.GetTextByRow()
		if rowErr != nil {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\f")
		}
		for _, row := range rows {
			for _, word := range row.Content {
				sb.WriteString(word.S)
				sb.WriteString(" ")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), pages, nil
}

// pdfOCR rasterizes every page and recognizes them one by one. Pages that
// fail recognition become warnings; the call errors only when no page came
// through at all.
func (e *Extractor) pdfOCR(ctx context.Context, path string) (string, int, []string, error) {
	tmpDir, err := os.MkdirTemp("", "notas-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("ocr.tmpdir.remove_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", strconv.Itoa(e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{truncate(string(errb), 8<<10)}, err
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, nil, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	recognized := 0
	for _, img := range matches {
		txt, w, err := e.recognizePage(ctx, img)
		warns = append(warns, w...)
		if err != nil {
			warns = append(warns, fmt.Sprintf("%s: %v", filepath.Base(img), err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(txt)
		recognized++
	}
	if recognized == 0 {
		return "", len(matches), warns, fmt.Errorf("recognition failed on all %d pages", len(matches))
	}
	return b.String(), len(matches), warns, nil
}
