package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
)

type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "por+eng"
	DPI           int    // rasterization DPI for scanned PDFs, default 300
	MaxPages      int    // 0 = no limit

	TessdataDir         string
	HeicConverter       string
	EnableTSVConfidence bool

	PSM int // default 6, a uniform block of text keeps table rows on one line
	OEM int // 1 = LSTM; leave 0 to use default

	// Preprocess grayscales, stretches contrast, thresholds and upscales
	// images before recognition.
	Preprocess bool

	ArtifactCacheDir string
}

type ExtractionResult struct {
	Text       string
	Pages      int
	SourceKind constants.SourceKind
	Method     string // "pdf-text" | "pdf-ocr" | "image-ocr"
	Engine     string
	Language   string
	Duration   time.Duration
	Warnings   []string
	Confidence float32
}

// ProgressFunc receives the completed fraction (0..1) of a long OCR run.
type ProgressFunc func(fraction float64)

func (p ProgressFunc) report(f float64) {
	if p != nil {
		p(f)
	}
}

type Extractor struct {
	cfg    Config
	runner Runner
	engine Engine
	logger *slog.Logger
}

type Option func(*Extractor)

// WithRunner replaces the exec runner used for external tools.
func WithRunner(r Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithEngine replaces the recognition engine (tesseract CLI by default).
func WithEngine(engine Engine) Option {
	return func(e *Extractor) { e.engine = engine }
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "por+eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	if cfg.ArtifactCacheDir == "" {
		cfg.ArtifactCacheDir = "./tmp"
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	if e.engine == nil {
		e.engine = newCLIEngine(cfg, e.runner)
	}
	return e
}

// Extract picks a strategy based on file extension. Failures are wrapped
// as SOURCE_READ_FAILURE.
func (e *Extractor) Extract(ctx context.Context, path string, progress ProgressFunc) (ExtractionResult, error) {
	res, err := e.extract(ctx, path, progress)
	if err != nil {
		return res, common.SourceReadError("ocr "+filepath.Base(path), err)
	}
	return res, nil
}

func (e *Extractor) extract(ctx context.Context, path string, progress ProgressFunc) (ExtractionResult, error) {
	start := time.Now()
	ext := constants.NormalizeExt(filepath.Ext(path))
	if st, err := os.Stat(path); err == nil {
		e.logger.Debug("starting ocr extraction", "path", path, "ext", ext, "size", humanize.Bytes(uint64(st.Size())), "engine", e.engine.Name())
	}
	progress.report(0)
	kind, _ := constants.KindForExt(ext)
	switch kind {
	case constants.SourcePDF:
		res, err := e.extractPDF(ctx, path, progress)
		res.Duration = time.Since(start)
		return res, err
	case constants.SourceImage:
		var cleanup func()
		var warns []string
		if isHEICExt(ext) {
			hashHex, _ := contentHashFromCtx(ctx)
			out, w, c, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, e.cfg.ArtifactCacheDir, hashHex)
			warns = append(warns, w...)
			if err != nil {
				e.logger.Error("heic conversion failed", "path", path, "error", err)
				return ExtractionResult{SourceKind: constants.SourceImage, Warnings: warns}, err
			}
			cleanup = c
			path = out
		}
		if cleanup != nil {
			defer cleanup()
		}
		res, err := e.extractImage(ctx, path)
		res.Duration = time.Since(start)
		res.Warnings = append(res.Warnings, warns...)
		if err == nil {
			progress.report(1)
		}
		return res, err
	default:
		e.logger.Error("unsupported ocr extension", "extension", ext)
		return ExtractionResult{}, fmt.Errorf("unsupported extension: %q", ext)
	}
}

func isHEICExt(ext string) bool {
	return ext == "heic" || ext == "heif"
}

type ctxKey string

const (
	ctxKeyContentHash ctxKey = "ocr.content_hash_hex"
)

// WithContentHash stores the hex-encoded SHA256 for downstream reuse.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok
}
