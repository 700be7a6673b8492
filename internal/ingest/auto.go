package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/fleetops-tracker/internal/async"
)

// AutoIngest registers every file the watcher reports and queues new
// content for extraction. It returns when ctx is done.
func AutoIngest(ctx context.Context, cfg WatchConfig, ing Ingestor, q async.Queue) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	paths, errs, err := StartWatcher(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("ingest.watch.started", "roots", cfg.Roots, "debounce", cfg.Debounce)

	for {
		select {
		case <-ctx.Done():
			logger.Info("ingest.watch.stopped")
			return nil
		case err, ok := <-errs:
			if ok {
				logger.Warn("ingest.watch.error", "error", err)
			}
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			res, err := ing.IngestPath(ctx, p)
			if err != nil {
				// written then removed before we got to it
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				logger.Error("ingest.watch.file_failed", "path", p, "error", err)
				continue
			}
			if res.Deduplicated {
				logger.Debug("ingest.watch.duplicate", "path", p, "file_id", res.FileID)
				continue
			}
			if err := q.Enqueue(ctx, async.Job{FileID: res.FileID, TraceID: res.HashHex[:12]}); err != nil {
				logger.Error("ingest.watch.enqueue_failed", "file_id", res.FileID, "error", err)
			}
		}
	}
}
