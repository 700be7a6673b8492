package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

type ExtractJobRepository interface {
	Start(ctx context.Context, fileID *uuid.UUID, kind constants.SourceKind) (*entity.ExtractJob, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error)
	FinishText(ctx context.Context, jobID uuid.UUID, text string, confidence float32) error
	FinishExtract(ctx context.Context, jobID uuid.UUID, res extract.Result) error
	FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error
}

type extractJobRepo struct {
	db  *DB
	log *slog.Logger
}

func NewExtractJobRepository(db *DB, log *slog.Logger) ExtractJobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &extractJobRepo{db: db, log: log}
}

func (r *extractJobRepo) Start(ctx context.Context, fileID *uuid.UUID, kind constants.SourceKind) (*entity.ExtractJob, error) {
	job := &entity.ExtractJob{
		ID:         uuid.New(),
		FileID:     fileID,
		SourceKind: kind,
		StartedAt:  time.Now().UTC().Truncate(time.Millisecond),
		Status:     constants.JobStatusRunning,
	}
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`INSERT INTO extract_job (id, file_id, source_kind, started_at, status) VALUES (?, ?, ?, ?, ?)`),
		job.ID, fileID, string(kind), millis(job.StartedAt), string(job.Status))
	if err != nil {
		r.log.Error("extract_job start failed", "file_id", fileID, "err", err)
		return nil, err
	}
	r.log.Info("extract_job started", "job_id", job.ID, "file_id", fileID, "source_kind", kind)
	return job, nil
}

func (r *extractJobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractJob, error) {
	var (
		job                                entity.ExtractJob
		fileID                             uuid.NullUUID
		kind, status                       string
		started                            int64
		finished                           sql.NullInt64
		errMsg, text, strategy, warningsJS sql.NullString
		conf                               sql.NullFloat64
	)
	err := r.db.QueryRowContext(ctx, r.db.rebind(
		`SELECT id, file_id, source_kind, started_at, finished_at, status, error_message, text,
		        text_confidence, strategy_used, warnings, record_count
		   FROM extract_job WHERE id = ?`), id).
		Scan(&job.ID, &fileID, &kind, &started, &finished, &status, &errMsg, &text, &conf, &strategy, &warningsJS, &job.RecordCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("extract job %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if fileID.Valid {
		job.FileID = &fileID.UUID
	}
	job.SourceKind = constants.SourceKind(kind)
	job.Status = constants.JobStatus(status)
	job.StartedAt = fromMillis(started)
	if finished.Valid {
		t := fromMillis(finished.Int64)
		job.FinishedAt = &t
	}
	job.ErrorMessage = nullString(errMsg)
	job.Text = nullString(text)
	job.StrategyUsed = nullString(strategy)
	if conf.Valid {
		c := float32(conf.Float64)
		job.TextConf = &c
	}
	if warningsJS.Valid && warningsJS.String != "" {
		if err := json.Unmarshal([]byte(warningsJS.String), &job.Warnings); err != nil {
			r.log.Warn("extract_job warnings unreadable", "job_id", id, "err", err)
		}
	}
	return &job, nil
}

func (r *extractJobRepo) FinishText(ctx context.Context, jobID uuid.UUID, text string, confidence float32) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE extract_job SET text = ?, text_confidence = ?, status = ? WHERE id = ?`),
		text, confidence, string(constants.JobStatusTextOK), jobID)
	if err != nil {
		r.log.Error("extract_job finish(TEXT_OK) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Info("extract_job text ready (TEXT_OK)", "job_id", jobID, "chars", len(text))
	return nil
}

// FinishExtract records the extraction outcome. An empty result ends the
// job as EMPTY rather than FAILED.
func (r *extractJobRepo) FinishExtract(ctx context.Context, jobID uuid.UUID, res extract.Result) error {
	status := constants.JobStatusExtractOK
	if res.Empty() {
		status = constants.JobStatusEmpty
	}
	warnings, err := json.Marshal(res.Warnings)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE extract_job SET status = ?, strategy_used = ?, warnings = ?, record_count = ?, finished_at = ? WHERE id = ?`),
		string(status), res.StrategyUsed, string(warnings), len(res.Records), millis(time.Now()), jobID)
	if err != nil {
		r.log.Error("extract_job finish failed", "job_id", jobID, "status", status, "err", err)
		return err
	}
	r.log.Info("extract_job finished", "job_id", jobID, "status", status,
		"strategy", res.StrategyUsed, "records", len(res.Records), "warnings", len(res.Warnings))
	return nil
}

func (r *extractJobRepo) FinishFailure(ctx context.Context, jobID uuid.UUID, message string) error {
	_, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE extract_job SET status = ?, error_message = ?, finished_at = ? WHERE id = ?`),
		string(constants.JobStatusFailed), message, millis(time.Now()), jobID)
	if err != nil {
		r.log.Error("extract_job finish(FAILED) failed", "job_id", jobID, "err", err)
		return err
	}
	r.log.Warn("extract_job finished (FAILED)", "job_id", jobID, "error", message)
	return nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
