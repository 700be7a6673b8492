package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	var warn []string
	ext := constants.NormalizeExt(filepath.Ext(path))
	if e.cfg.Preprocess || needsReencode(ext) {
		dir, err := os.MkdirTemp("", "fo-img-*")
		if err != nil {
			return ExtractionResult{SourceKind: constants.SourceImage}, err
		}
		defer os.RemoveAll(dir)
		prepared, err := prepareImage(path, dir, e.cfg.Preprocess)
		if err != nil {
			// tesseract may still read it natively
			warn = append(warn, err.Error())
		} else {
			path = prepared
		}
	}

	txt, err := e.engine.Recognize(ctx, path)
	if err != nil {
		return ExtractionResult{SourceKind: constants.SourceImage, Warnings: warn}, err
	}
	txt = Normalize(txt)

	// compute confidence
	var ocrConf float32
	if cli, ok := e.engine.(*cliEngine); ok && e.cfg.EnableTSVConfidence {
		if c, err2 := cli.tsvConfidence(ctx, path); err2 == nil {
			ocrConf = c
		} else {
			warn = append(warn, err2.Error())
		}
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceKind: constants.SourceImage,
		Method:     "image-ocr",
		Engine:     e.engine.Name(),
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: blendConfidence(ocrConf, heuristicConfidence(txt)),
	}, nil
}

// tsvConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (c *cliEngine) tsvConfidence(ctx context.Context, path string) (float32, error) {
	out, errb, err := c.runner.Run(ctx, c.cfg.Tesseract, c.args(path, "tsv")...)
	if err != nil {
		return 0, &toolError{tool: "tesseract TSV", err: err, stderr: string(errb)}
	}
	return parseTSVConfidence(string(out)), nil
}

// parseTSVConfidence averages the conf column (11th of 12) of tesseract
// TSV output, skipping the header and non-word rows (conf -1).
func parseTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := cols[10]
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}

type toolError struct {
	tool   string
	err    error
	stderr string
}

func (t *toolError) Error() string {
	return t.tool + ": " + t.err.Error() + ": " + truncate(t.stderr, 512)
}

func (t *toolError) Unwrap() error { return t.err }
