package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/repository"
)

var ErrUnsupportedExt = errors.New("unsupported or missing extension")

// FSIngestor registers files from the local filesystem, deduplicated by
// sha256 of their content.
type FSIngestor struct {
	Files     repository.SourceFileRepository
	UploadDir string
	MaxBytes  int64
	logger    *slog.Logger
}

func NewFSIngestor(files repository.SourceFileRepository, uploadDir string, maxBytes int64, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{
		Files:     files,
		UploadDir: uploadDir,
		MaxBytes:  maxBytes,
		logger:    logger,
	}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, fmt.Errorf("abs path: %w", err)
	}
	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		i.logger.Warn("ingest.path.unsupported", "path", abs, "ext", ext)
		return out, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}

	f, err := os.Open(abs)
	if err != nil {
		return out, common.SourceReadError("open "+filepath.Base(abs), err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			i.logger.Warn("ingest.path.close_failed", "path", abs, "error", err)
		}
	}()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return out, common.SourceReadError("hash "+filepath.Base(abs), err)
	}
	return i.register(ctx, abs, filepath.Base(abs), ext, n, h.Sum(nil))
}

// IngestReader writes r to UploadDir under its content hash, then registers
// it. Identical uploads share one row and one file.
func (i *FSIngestor) IngestReader(ctx context.Context, filename string, r io.Reader) (IngestionResult, error) {
	var out IngestionResult

	ext := constants.NormalizeExt(filepath.Ext(filename))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("%w: %q", ErrUnsupportedExt, ext)
	}
	if i.UploadDir == "" {
		return out, errors.New("upload dir not configured")
	}
	if err := os.MkdirAll(i.UploadDir, 0o755); err != nil {
		return out, common.SourceReadError("create upload dir", err)
	}

	tmp, err := os.CreateTemp(i.UploadDir, "upload-*.part")
	if err != nil {
		return out, common.SourceReadError("create upload", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if i.MaxBytes > 0 {
		r = io.LimitReader(r, i.MaxBytes+1)
	}
	h := sha256.New()
	n, err := io.Copy(io.MultiWriter(tmp, h), r)
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return out, common.SourceReadError("write upload", err)
	}
	if i.MaxBytes > 0 && n > i.MaxBytes {
		return out, common.NewAppError(common.CodeInvalidInput,
			fmt.Sprintf("upload exceeds %s", humanize.Bytes(uint64(i.MaxBytes))), nil)
	}

	sum := h.Sum(nil)
	dest := filepath.Join(i.UploadDir, hex.EncodeToString(sum)+"."+ext)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return out, common.SourceReadError("store upload", err)
	}
	return i.register(ctx, dest, filepath.Base(filename), ext, n, sum)
}

func (i *FSIngestor) register(ctx context.Context, path, filename, ext string, size int64, sum []byte) (IngestionResult, error) {
	row, dedup, err := i.Files.UpsertByHash(ctx, path, filename, ext, int(size), sum, time.Now().UTC())
	if err != nil {
		return IngestionResult{}, common.PersistenceError("register file", err)
	}
	i.logger.Info("ingest.file.ok",
		"file_id", row.ID,
		"filename", filename,
		"size", humanize.Bytes(uint64(size)),
		"deduplicated", dedup,
	)
	return IngestionResult{
		SourcePath:   row.SourcePath,
		FileID:       row.ID,
		Filename:     row.Filename,
		Deduplicated: dedup,
		HashHex:      hex.EncodeToString(sum),
		FileExt:      row.FileExt,
		Size:         size,
		UploadedAt:   row.UploadedAt,
	}, nil
}

// IngestDirectory walks root, skips hidden entries if requested and calls
// IngestPath for each supported file. A failing file is recorded and the
// walk continues.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		stats.Bytes += uint64(r.Size)
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})

	i.logger.Info("ingest.dir.done", "root", root, "stats", stats.String())
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}
