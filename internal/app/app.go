// Package app wires configuration into the concrete components every
// command needs.
package app

import (
	"context"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/export"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ingest"
	"github.com/joseph-ayodele/fleetops-tracker/internal/llm/openai"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleetops-tracker/internal/pipeline"
	"github.com/joseph-ayodele/fleetops-tracker/internal/repository"
	"github.com/joseph-ayodele/fleetops-tracker/internal/server"
)

// InMemoryDSN is a private SQLite database that lives as long as the
// process.
const InMemoryDSN = "file:fleetops?mode=memory&cache=shared"

type App struct {
	Config *common.Config
	Logger *slog.Logger

	DB      *repository.DB
	Files   repository.SourceFileRepository
	Jobs    repository.ExtractJobRepository
	Records repository.RecordRepository

	OCR       *ocr.Extractor
	LLM       *openai.Client // nil without an API key
	Processor *pipeline.Processor
	Ingestor  *ingest.FSIngestor
	Exporter  *export.Service

	closers []func() error
}

// New opens the database and builds the processing stack.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	a := &App{
		Config:  cfg,
		Logger:  logger,
		DB:      db,
		Files:   repository.NewSourceFileRepository(db, logger),
		Jobs:    repository.NewExtractJobRepository(db, logger),
		Records: repository.NewRecordRepository(db, logger),
	}

	ocrCfg := ocr.Config{
		TesseractLang:       cfg.OCR.Language,
		TessdataDir:         cfg.OCR.TessdataDir,
		HeicConverter:       cfg.OCR.HeicConverter,
		ArtifactCacheDir:    cfg.OCR.ArtifactCacheDir,
		Preprocess:          cfg.OCR.Preprocess,
		EnableTSVConfidence: true,
	}
	var ocrOpts []ocr.Option
	if strings.EqualFold(cfg.OCR.Engine, "gosseract") {
		engine, closeEngine, err := ocr.NewGosseractEngine(ocrCfg)
		if err != nil {
			a.Close()
			logger.Error("failed to start in-process OCR", "error", err)
			return nil, err
		}
		a.closers = append(a.closers, closeEngine)
		ocrOpts = append(ocrOpts, ocr.WithEngine(engine))
	}
	a.OCR = ocr.NewExtractor(ocrCfg, logger, ocrOpts...)

	procOpts := []pipeline.Option{
		pipeline.WithOptions(pipeline.OptionsFromConfig(cfg.Extract)),
		pipeline.WithCacheSize(cfg.Extract.CacheSize),
		pipeline.WithConcurrency(cfg.Extract.BatchConcurrency),
	}
	client := openai.NewClient(openai.Config{
		APIKey:          cfg.LLM.APIKey,
		BaseURL:         cfg.LLM.BaseURL,
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		Timeout:         cfg.LLM.Timeout,
		LenientOptional: true,
	}, logger)
	if client.Enabled() {
		a.LLM = client
		procOpts = append(procOpts, pipeline.WithLLM(client))
		logger.Info("llm fallback enabled", "model", cfg.LLM.Model)
	} else {
		logger.Info("llm fallback disabled, OPENAI_API_KEY not set")
	}

	a.Processor = pipeline.NewProcessor(logger, a.Files, a.Jobs, a.Records, a.OCR, procOpts...)
	a.Ingestor = ingest.NewFSIngestor(a.Files, cfg.Server.UploadDir, cfg.Server.MaxUploadBytes, logger)
	a.Exporter = export.NewService(logger)
	return a, nil
}

// Deps exposes the app to the HTTP and gRPC transports.
func (a *App) Deps() server.Deps {
	return server.Deps{
		Extractor: a.Processor,
		Ingestor:  a.Ingestor,
		Records:   a.Records,
		Exporter:  a.Exporter,
		DB:        a.DB,
		Config:    a.Config.Server,
		Logger:    a.Logger,
	}
}

// Close releases the OCR engine and the database.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
	if a.DB != nil {
		a.DB.Close(a.Logger)
		a.DB = nil
	}
}
