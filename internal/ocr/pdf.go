package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
)

// minPDFTextChars is the text-layer size below which a PDF is treated as
// scanned and rasterized for OCR.
const minPDFTextChars = 16

func (e *Extractor) extractPDF(ctx context.Context, path string, progress ProgressFunc) (ExtractionResult, error) {
	res := ExtractionResult{SourceKind: constants.SourcePDF, Language: e.cfg.TesseractLang}

	text, pages, warns, err := e.pdfToText(ctx, path)
	res.Warnings = append(res.Warnings, warns...)
	if err == nil && len(strings.TrimSpace(text)) >= minPDFTextChars {
		res.Text = Normalize(text)
		res.Pages = pages
		res.Method = "pdf-text"
		res.Engine = "pdftotext"
		res.Confidence = heuristicConfidence(res.Text)
		progress.report(1)
		return res, nil
	}
	if err != nil {
		e.logger.Warn("pdftotext failed, falling back to ocr", "path", path, "error", err)
	}

	text, pages, warns, err = e.pdfToOCR(ctx, path, progress)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, err
	}
	res.Text = Normalize(text)
	res.Pages = pages
	res.Method = "pdf-ocr"
	res.Engine = e.engine.Name()
	res.Confidence = heuristicConfidence(res.Text)
	return res, nil
}

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// A form-feed \f is used as page separator by default
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string, progress ProgressFunc) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "fo-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func(path string) {
		if err := os.RemoveAll(path); err != nil {
			e.logger.Warn("failed to remove temp dir", "dir", path, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", e.cfg.DPI), "-png", path, prefix)
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if e.cfg.MaxPages > 0 && len(matches) > e.cfg.MaxPages {
		matches = matches[:e.cfg.MaxPages]
	}
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for i, img := range matches {
		txt, err := e.engine.Recognize(ctx, img)
		if err != nil {
			warns = append(warns, err.Error())
			progress.report(float64(i+1) / float64(len(matches)))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n") // keep a clear page break marker
		}
		b.WriteString(txt)
		progress.report(float64(i+1) / float64(len(matches)))
	}
	if b.Len() == 0 {
		return "", len(matches), warns, fmt.Errorf("ocr failed on all %d pages", len(matches))
	}
	return b.String(), len(matches), warns, nil
}
