package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/internal/async"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/export"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ingest"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ocr"
	"github.com/joseph-ayodele/fleetops-tracker/internal/pipeline"
	"github.com/joseph-ayodele/fleetops-tracker/internal/repository"
)

// Extractor is the part of pipeline.Processor the transports use.
type Extractor interface {
	ExtractText(ctx context.Context, text string) (extract.Result, error)
	ProcessFile(ctx context.Context, fileID uuid.UUID, progress ocr.ProgressFunc) (pipeline.Outcome, error)
	Options() extract.Options
}

type HealthChecker interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Deps wires the handlers. Queue is optional; without it uploads are
// always processed inline.
type Deps struct {
	Extractor Extractor
	Ingestor  ingest.Ingestor
	Records   repository.RecordRepository
	Exporter  *export.Service
	Queue     async.Queue
	DB        HealthChecker
	Config    common.ServerConfig
	Logger    *slog.Logger
}

// Router is the HTTP API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     common.ServerConfig
}

func NewRouter(d Deps) *Router {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Config.MaxUploadBytes <= 0 {
		d.Config.MaxUploadBytes = 20 << 20
	}
	return &Router{
		handler:    &Handler{Deps: d, logger: d.Logger.With("component", "api")},
		middleware: NewMiddleware(d.Logger),
		config:     d.Config,
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Extraction
		router.Post("/extract", r.handler.ExtractText)
		router.Post("/extract/upload", r.handler.ExtractUpload)

		// Records
		router.Get("/records", r.handler.ListRecords)
		router.Post("/records", r.handler.ImportRecords)
		router.Post("/records/manual", r.handler.CreateManualRecord)
		router.Patch("/records/{id}", r.handler.UpdateRecord)
		router.Delete("/records/{id}", r.handler.DeleteRecord)

		// Export
		router.Get("/export", r.handler.Export)

		// Health check
		router.Get("/health", r.handler.GetHealth)
	})

	return router
}

// Handler holds the API endpoints.
type Handler struct {
	Deps
	logger *slog.Logger
}

func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.HealthCheck(r.Context(), 2*time.Second); err != nil {
			writeError(w, r, common.PersistenceError("database unreachable", err), nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
