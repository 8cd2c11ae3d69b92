package ocr

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dfalmeida/notas-extractor/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (Result, error) {
	if e.cfg.Cloud != nil {
		mt := constants.MediaTypeForExt(filepath.Ext(path))
		out, err := e.cfg.Cloud.RecognizeFile(ctx, path, mt)
		if err != nil {
			return Result{Method: "cloud-ocr"}, err
		}
		return Result{Text: Normalize(out), Pages: 1, Method: "cloud-ocr"}, nil
	}

	txt, warns, err := e.recognizePage(ctx, path)
	if err != nil {
		return Result{Method: "image-ocr", Warnings: warns}, err
	}
	return Result{
		Text:     Normalize(txt),
		Pages:    1,
		Method:   "image-ocr",
		Language: e.cfg.Languages,
		Warnings: warns,
	}, nil
}

// recognizePage runs tesseract once, then retries with the alternate page
// segmentation when the first pass comes back under RetryUnderChars. The
// longer non-empty result wins.
func (e *Extractor) recognizePage(ctx context.Context, path string) (string, []string, error) {
	txt, warns, err := e.tesseract(ctx, path, e.cfg.PSM)
	if err != nil {
		return "", warns, err
	}
	if e.cfg.RetryPSM > 0 && e.cfg.RetryPSM != e.cfg.PSM && len(strings.TrimSpace(txt)) < e.cfg.RetryUnderChars {
		alt, w, altErr := e.tesseract(ctx, path, e.cfg.RetryPSM)
		warns = append(warns, w...)
		if altErr == nil && len(strings.TrimSpace(alt)) > len(strings.TrimSpace(txt)) {
			e.logger.Debug("ocr.psm_retry.won", "path", path, "psm", e.cfg.RetryPSM, "chars", len(alt))
			txt = alt
		}
	}
	return txt, warns, nil
}

// tesseract <file> stdout -l <langs> [--psm N] [--tessdata-dir D]
func (e *Extractor) tesseract(ctx context.Context, path string, psm int) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Languages}
	if psm > 0 {
		args = append(args, "--psm", strconv.Itoa(psm))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{truncate(string(errb), 8<<10)}, fmt.Errorf("tesseract: %w", err)
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil, nil
}
