package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string    `json:"source_path"`
	FileID       uuid.UUID `json:"file_id"`
	Filename     string    `json:"filename"`
	Deduplicated bool      `json:"deduplicated"`
	HashHex      string    `json:"hash"`
	FileExt      string    `json:"file_ext"`
	Size         int64     `json:"size"`
	UploadedAt   time.Time `json:"uploaded_at"`
	Err          string    `json:"error,omitempty"`
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
	Bytes        uint64
}

func (s DirStats) String() string {
	return fmt.Sprintf("scanned=%d matched=%d ok=%d dedup=%d failed=%d size=%s",
		s.Scanned, s.Matched, s.Succeeded, s.Deduplicated, s.Failed, humanize.Bytes(s.Bytes))
}

// Ingestor is the behavior the transports depend on.
type Ingestor interface {
	// IngestPath registers a single file already on disk.
	IngestPath(ctx context.Context, path string) (IngestionResult, error)
	// IngestReader stores an upload under the ingestor's upload dir and registers it.
	IngestReader(ctx context.Context, filename string, r io.Reader) (IngestionResult, error)
	// IngestDirectory ingests all matching files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}
