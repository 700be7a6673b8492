package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
)

type SourceFileRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.SourceFile, error)
	GetByHash(ctx context.Context, hash []byte) (*entity.SourceFile, error)
	Create(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.SourceFile, error)
	UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.SourceFile, bool, error)
}

type sourceFileRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewSourceFileRepository(db *DB, logger *slog.Logger) SourceFileRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sourceFileRepo{
		db:     db,
		logger: logger,
	}
}

const fileColumns = `id, source_path, content_hash, filename, file_ext, file_size, uploaded_at`

func scanFile(row interface{ Scan(...any) error }) (*entity.SourceFile, error) {
	var (
		f        entity.SourceFile
		uploaded int64
	)
	if err := row.Scan(&f.ID, &f.SourcePath, &f.ContentHash, &f.Filename, &f.FileExt, &f.FileSize, &uploaded); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source file: %w", common.ErrNotFound)
		}
		return nil, err
	}
	f.UploadedAt = fromMillis(uploaded)
	return &f, nil
}

func (r *sourceFileRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.SourceFile, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+fileColumns+` FROM source_file WHERE id = ?`), id)
	return scanFile(row)
}

func (r *sourceFileRepo) GetByHash(ctx context.Context, hash []byte) (*entity.SourceFile, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+fileColumns+` FROM source_file WHERE content_hash = ?`), hash)
	f, err := scanFile(row)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		r.logger.Error("failed to get source file by hash", "error", err)
	}
	return f, err
}

func (r *sourceFileRepo) Create(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.SourceFile, error) {
	f := &entity.SourceFile{
		ID:          uuid.New(),
		SourcePath:  sourcePath,
		ContentHash: hash,
		Filename:    filename,
		FileExt:     ext,
		FileSize:    size,
		UploadedAt:  uploadedAt.UTC().Truncate(time.Millisecond),
	}
	_, err := r.db.ExecContext(ctx, r.db.rebind(`INSERT INTO source_file (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`),
		f.ID, f.SourcePath, f.ContentHash, f.Filename, f.FileExt, f.FileSize, millis(f.UploadedAt))
	if err != nil {
		r.logger.Error("failed to create source file", "source_path", sourcePath, "filename", filename, "error", err)
		return nil, err
	}
	return f, nil
}

// UpsertByHash returns the existing row for identical content, or creates
// one. The bool reports whether the row already existed.
func (r *sourceFileRepo) UpsertByHash(ctx context.Context, sourcePath, filename, ext string, size int, hash []byte, uploadedAt time.Time) (*entity.SourceFile, bool, error) {
	existing, err := r.GetByHash(ctx, hash)
	if err == nil {
		return existing, true, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}
	row, err := r.Create(ctx, sourcePath, filename, ext, size, hash, uploadedAt)
	if err != nil {
		r.logger.Error("failed to upsert source file by hash", "source_path", sourcePath, "filename", filename, "error", err)
		return nil, false, err
	}
	return row, false, nil
}
