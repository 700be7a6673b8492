// Command schedule-batch ingests a directory of schedules, extracts every
// file and exports the merged records.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/app"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		inmem  = flag.Bool("inmem", false, "use in-memory SQLite database")
		dir    = flag.String("dir", "", "directory to process schedules from (required)")
		out    = flag.String("out", "", "output file path (optional, defaults to parent directory)")
		format = flag.String("format", "excel", "output format")
		hidden = flag.Bool("hidden", false, "include hidden files and directories")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	exportFormat, ok := constants.CanonicalExportFormat(*format)
	if !ok {
		printError("Error: unknown --format %q\n", *format)
		os.Exit(1)
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *inmem {
		cfg.Database.Driver = "sqlite"
		cfg.Database.DSN = app.InMemoryDSN
	}
	logger := common.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	start := time.Now()
	logger.Info("starting ingestion", "dir", *dir)
	results, stats, err := a.Ingestor.IngestDirectory(ctx, *dir, !*hidden)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, r := range results {
		if r.Err != "" {
			logger.Warn("file skipped", "path", r.SourcePath, "error", r.Err)
			continue
		}
		if !seen[r.FileID] {
			seen[r.FileID] = true
			ids = append(ids, r.FileID)
		}
	}

	batch, err := a.Processor.ProcessBatch(ctx, ids, func(done, total int) {
		logger.Info("batch progress", "done", done, "total", total)
	})
	if err != nil {
		logger.Error("batch aborted", "error", err)
		os.Exit(1)
	}

	art, err := a.Exporter.Export(ctx, batch.Merged.Records, exportFormat)
	if err != nil {
		logger.Error("failed to export", "error", err)
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(filepath.Clean(*dir)), art.Filename)
	}
	if err := os.WriteFile(*out, art.Data, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files scanned: %d (%s)\n", stats.Matched, humanize.Bytes(stats.Bytes))
	fmt.Printf("- Files processed: %d\n", len(ids)-len(batch.Failures))
	fmt.Printf("- Failures: %d\n", len(batch.Failures))
	for id, ferr := range batch.Failures {
		fmt.Printf("    %s: %v\n", id, ferr)
	}
	fmt.Printf("- Records: %d (%s)\n", len(batch.Merged.Records), batch.Merged.StrategyUsed)
	fmt.Printf("- Output: %s (%s, %s)\n", *out, humanize.Bytes(uint64(len(art.Data))), time.Since(start).Round(time.Millisecond))
}
