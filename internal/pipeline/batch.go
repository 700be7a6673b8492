package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// BatchResult collects per-file outcomes and the globally deduplicated
// records across all of them.
type BatchResult struct {
	Outcomes []Outcome           `json:"outcomes"`
	Failures map[uuid.UUID]error `json:"-"`
	Merged   extract.Result      `json:"merged"`
}

// BatchProgressFunc reports how many files have finished.
type BatchProgressFunc func(done, total int)

// ProcessBatch processes files concurrently, bounded by the configured
// concurrency. A failing file never stops the others; it is listed in
// Failures. An empty file counts as a failure with RECOGNITION_EMPTY.
// Only a cancelled context ends the batch early.
func (p *Processor) ProcessBatch(ctx context.Context, fileIDs []uuid.UUID, progress BatchProgressFunc) (BatchResult, error) {
	start := time.Now()
	outcomes := make([]Outcome, len(fileIDs))
	errs := make([]error, len(fileIDs))

	var (
		mu   sync.Mutex
		done int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, id := range fileIDs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i], errs[i] = p.ProcessFile(gctx, id, nil)

			mu.Lock()
			done++
			n := done
			mu.Unlock()
			if progress != nil {
				progress(n, len(fileIDs))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}

	br := BatchResult{Failures: map[uuid.UUID]error{}}
	results := make([]extract.Result, 0, len(fileIDs))
	for i, out := range outcomes {
		if errs[i] != nil {
			br.Failures[fileIDs[i]] = errs[i]
			p.logger.Warn("pipeline.batch.file_failed",
				"file_id", fileIDs[i], "code", common.ErrorCode(errs[i]), "error", errs[i])
		}
		if out.JobID == uuid.Nil {
			continue
		}
		br.Outcomes = append(br.Outcomes, out)
		results = append(results, out.Result)
	}
	br.Merged = extract.Merge(results...)

	p.logger.Info("pipeline.batch.ok",
		"files", len(fileIDs),
		"failed", len(br.Failures),
		"records", len(br.Merged.Records),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return br, nil
}
