package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
	"github.com/joseph-ayodele/fleetops-tracker/internal/llm"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleetops-tracker/internal/repository"
)

// TextExtractor is the OCR side of the pipeline.
type TextExtractor interface {
	Extract(ctx context.Context, path string, progress ocr.ProgressFunc) (ocr.ExtractionResult, error)
}

// Outcome is what one processed file produced. Result is filled even when
// persisting it failed.
type Outcome struct {
	FileID uuid.UUID               `json:"file_id"`
	JobID  uuid.UUID               `json:"job_id"`
	Result extract.Result          `json:"result"`
	Saved  []entity.ScheduleRecord `json:"saved,omitempty"`
}

// Processor coordinates text extraction, table extraction, the optional
// LLM fallback and persistence.
type Processor struct {
	logger      *slog.Logger
	files       repository.SourceFileRepository
	jobs        repository.ExtractJobRepository
	records     repository.RecordRepository
	text        TextExtractor
	llm         llm.RecordsExtractor
	opts        extract.Options
	cache       *resultCache
	concurrency int
}

type Option func(*Processor)

// WithLLM enables the model fallback for files where every rule-based
// strategy comes up empty.
func WithLLM(x llm.RecordsExtractor) Option {
	return func(p *Processor) { p.llm = x }
}

func WithOptions(opts extract.Options) Option {
	return func(p *Processor) { p.opts = opts }
}

// WithCacheSize keeps the last n extraction results keyed by text
// fingerprint. 0 disables the cache.
func WithCacheSize(n int) Option {
	return func(p *Processor) { p.cache = newResultCache(n) }
}

// WithConcurrency bounds ProcessBatch.
func WithConcurrency(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func NewProcessor(
	logger *slog.Logger,
	files repository.SourceFileRepository,
	jobs repository.ExtractJobRepository,
	records repository.RecordRepository,
	text TextExtractor,
	opts ...Option,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Processor{
		logger:      logger,
		files:       files,
		jobs:        jobs,
		records:     records,
		text:        text,
		opts:        extract.DefaultOptions(),
		concurrency: 4,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Options returns the extraction options in effect.
func (p *Processor) Options() extract.Options { return p.opts }

// ProcessFile loads a stored file, starts an extract_job, obtains text or
// rows, extracts records and persists them.
//
// An empty result finishes the job as EMPTY and returns a
// RECOGNITION_EMPTY error along with the outcome.
func (p *Processor) ProcessFile(ctx context.Context, fileID uuid.UUID, progress ocr.ProgressFunc) (Outcome, error) {
	start := time.Now()
	out := Outcome{FileID: fileID}

	file, err := p.files.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return out, common.NotFoundError("source file not found: " + fileID.String())
		}
		return out, common.PersistenceError("get file", err)
	}

	kind, supported := constants.KindForExt(file.FileExt)
	job, err := p.jobs.Start(ctx, &file.ID, kind)
	if err != nil {
		return out, common.PersistenceError("start job", err)
	}
	out.JobID = job.ID
	logger := p.logger.With("file_id", fileID, "job_id", job.ID)

	var src source
	if supported {
		src, err = p.loadSource(ctx, file, kind, progress)
	} else {
		err = common.SourceReadError("unsupported extension "+file.FileExt, errUnsupported)
	}
	if err != nil {
		logger.Error("pipeline.text.failed", "kind", kind, "error", err)
		if fErr := p.jobs.FinishFailure(ctx, job.ID, err.Error()); fErr != nil {
			logger.Error("pipeline.job.finish_failed", "error", fErr)
		}
		return out, err
	}
	if err := p.jobs.FinishText(ctx, job.ID, src.text, src.confidence); err != nil {
		return out, common.PersistenceError("store text", err)
	}
	logger.Info("pipeline.text.ok",
		"kind", kind,
		"method", src.method,
		"chars", len(src.text),
		"rows", len(src.rows),
		"confidence", src.confidence,
	)

	out.Result = p.extract(ctx, src, file.Filename)

	saved, err := p.records.Save(ctx, &file.ID, &job.ID, out.Result.Records)
	if err != nil {
		logger.Error("pipeline.save.failed", "records", len(out.Result.Records), "error", err)
		if fErr := p.jobs.FinishFailure(ctx, job.ID, "save records: "+err.Error()); fErr != nil {
			logger.Error("pipeline.job.finish_failed", "error", fErr)
		}
		return out, common.PersistenceError("save records", err)
	}
	out.Saved = saved

	if err := p.jobs.FinishExtract(ctx, job.ID, out.Result); err != nil {
		return out, common.PersistenceError("finish job", err)
	}

	logger.Info("pipeline.extract.ok",
		"strategy", out.Result.StrategyUsed,
		"records", len(out.Result.Records),
		"warnings", len(out.Result.Warnings),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if out.Result.Empty() {
		return out, common.RecognitionEmptyError()
	}
	return out, nil
}

// ExtractText runs the paste path: no file, no job, nothing persisted.
func (p *Processor) ExtractText(ctx context.Context, text string) (extract.Result, error) {
	res := p.extract(ctx, source{text: text}, "")
	p.logger.Debug("pipeline.extract_text",
		"strategy", res.StrategyUsed,
		"records", len(res.Records),
		"chars", len(text),
	)
	if res.Empty() {
		return res, common.RecognitionEmptyError()
	}
	return res, nil
}

// extract runs the rule-based extractor, then the LLM fallback when it
// came up empty. Results are cached by content fingerprint.
func (p *Processor) extract(ctx context.Context, src source, filename string) extract.Result {
	key := src.fingerprint()
	if res, ok := p.cache.get(key); ok {
		p.logger.Debug("pipeline.cache.hit", "key", key)
		return res
	}

	var res extract.Result
	if src.rows != nil {
		res = extract.ExtractRows(src.rows, p.opts)
	} else {
		res = extract.Extract(src.text, p.opts)
	}
	res = p.fallback(ctx, src.text, filename, res)

	// empty results are retried, the text may be edited or the LLM back
	if !res.Empty() {
		p.cache.put(key, res)
	}
	return res
}

func (p *Processor) fallback(ctx context.Context, text, filename string, res extract.Result) extract.Result {
	if !res.Empty() || p.llm == nil || strings.TrimSpace(text) == "" {
		return res
	}
	req := llm.ExtractRequest{Text: text, Warnings: res.Warnings}
	if filename != "" {
		req.FilenameHint = filepath.Base(filename)
	}
	pairs, _, err := p.llm.ExtractRecords(ctx, req)
	if err != nil {
		p.logger.Warn("pipeline.llm.failed", "error", err)
		res.Warnings = append(res.Warnings, "llm fallback failed: "+err.Error())
		return res
	}

	recs, warns := llm.Records(pairs, p.opts)
	out := extract.Result{
		Records:      extract.Deduplicate(recs),
		StrategyUsed: extract.SourceLLM,
		Warnings:     append(res.Warnings, warns...),
	}
	if out.Empty() {
		out.StrategyUsed = extract.StrategyNone
	}
	p.logger.Info("pipeline.llm.ok", "pairs", len(pairs), "records", len(out.Records))
	return out
}
