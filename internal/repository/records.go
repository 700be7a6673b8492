package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// RecordRepository is the generic CRUD store for schedule records.
type RecordRepository interface {
	Save(ctx context.Context, fileID, jobID *uuid.UUID, recs []extract.Record) ([]entity.ScheduleRecord, error)
	List(ctx context.Context, f entity.RecordFilter) ([]entity.ScheduleRecord, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.ScheduleRecord, error)
	Update(ctx context.Context, id uuid.UUID, rec extract.Record) (*entity.ScheduleRecord, error)
	SetValidated(ctx context.Context, id uuid.UUID, validated bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type recordRepo struct {
	db  *DB
	log *slog.Logger
}

func NewRecordRepository(db *DB, log *slog.Logger) RecordRepository {
	if log == nil {
		log = slog.Default()
	}
	return &recordRepo{db: db, log: log}
}

const recordColumns = `id, file_id, job_id, sched_time, fleet_number, confidence, source, validated, created_at, updated_at`

// Save inserts records in one transaction. A record repeating a
// (job, time, fleet) key already stored keeps the higher confidence.
func (r *recordRepo) Save(ctx context.Context, fileID, jobID *uuid.UUID, recs []extract.Record) ([]entity.ScheduleRecord, error) {
	if len(recs) == 0 {
		return []entity.ScheduleRecord{}, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, r.db.rebind(
		`INSERT INTO schedule_record (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (job_id, sched_time, fleet_number) DO UPDATE SET
		   confidence = CASE WHEN excluded.confidence > schedule_record.confidence
		                     THEN excluded.confidence ELSE schedule_record.confidence END,
		   source = CASE WHEN excluded.confidence > schedule_record.confidence
		                 THEN excluded.source ELSE schedule_record.source END,
		   validated = excluded.validated,
		   updated_at = excluded.updated_at
		 RETURNING id, confidence, source, created_at`))
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	out := make([]entity.ScheduleRecord, 0, len(recs))
	for _, rec := range recs {
		sr := entity.ScheduleRecord{
			ID:        uuid.New(),
			FileID:    fileID,
			JobID:     jobID,
			Record:    rec,
			CreatedAt: now,
			UpdatedAt: now,
		}
		var created int64
		err := stmt.QueryRowContext(ctx, sr.ID, fileID, jobID, rec.Time, rec.FleetNumber,
			rec.Confidence, rec.Source, rec.Validated, millis(now), millis(now)).
			Scan(&sr.ID, &sr.Confidence, &sr.Source, &created)
		if err != nil {
			r.log.Error("schedule_record insert failed", "time", rec.Time, "fleet_number", rec.FleetNumber, "err", err)
			return nil, err
		}
		sr.CreatedAt = fromMillis(created)
		out = append(out, sr)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	r.log.Info("schedule_record saved", "count", len(out), "job_id", jobID)
	return out, nil
}

func (r *recordRepo) List(ctx context.Context, f entity.RecordFilter) ([]entity.ScheduleRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.FileID != nil {
		where, args = append(where, "file_id = ?"), append(args, *f.FileID)
	}
	if f.JobID != nil {
		where, args = append(where, "job_id = ?"), append(args, *f.JobID)
	}
	if f.Validated != nil {
		where, args = append(where, "validated = ?"), append(args, *f.Validated)
	}
	if f.From != "" {
		where, args = append(where, "sched_time >= ?"), append(args, f.From)
	}
	if f.To != "" {
		// "12:00:59" sorts before "12:01", so a plain <= keeps seconds inside the minute
		where, args = append(where, "sched_time <= ?"), append(args, f.To+":59")
	}
	if f.Fleet != "" {
		where, args = append(where, "fleet_number = ?"), append(args, strings.ToUpper(f.Fleet))
	}

	q := `SELECT ` + recordColumns + ` FROM schedule_record`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY sched_time, fleet_number, created_at`
	if f.Limit > 0 {
		q += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, r.db.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entity.ScheduleRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

func (r *recordRepo) Get(ctx context.Context, id uuid.UUID) (*entity.ScheduleRecord, error) {
	row := r.db.QueryRowContext(ctx, r.db.rebind(`SELECT `+recordColumns+` FROM schedule_record WHERE id = ?`), id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule record %s: %w", id, common.ErrNotFound)
	}
	return rec, err
}

// Update replaces the editable fields of a record.
func (r *recordRepo) Update(ctx context.Context, id uuid.UUID, rec extract.Record) (*entity.ScheduleRecord, error) {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE schedule_record SET sched_time = ?, fleet_number = ?, confidence = ?, source = ?, validated = ?, updated_at = ? WHERE id = ?`),
		rec.Time, rec.FleetNumber, rec.Confidence, rec.Source, rec.Validated, millis(time.Now()), id)
	if err := affectedOne(res, err, id); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *recordRepo) SetValidated(ctx context.Context, id uuid.UUID, validated bool) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(
		`UPDATE schedule_record SET validated = ?, updated_at = ? WHERE id = ?`),
		validated, millis(time.Now()), id)
	return affectedOne(res, err, id)
}

func (r *recordRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, r.db.rebind(`DELETE FROM schedule_record WHERE id = ?`), id)
	if err := affectedOne(res, err, id); err != nil {
		return err
	}
	r.log.Info("schedule_record deleted", "record_id", id)
	return nil
}

func affectedOne(res sql.Result, err error, id uuid.UUID) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("schedule record %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func scanRecord(row interface{ Scan(...any) error }) (*entity.ScheduleRecord, error) {
	var (
		rec              entity.ScheduleRecord
		fileID, jobID    uuid.NullUUID
		created, updated int64
	)
	err := row.Scan(&rec.ID, &fileID, &jobID, &rec.Time, &rec.FleetNumber, &rec.Confidence,
		&rec.Source, &rec.Validated, &created, &updated)
	if err != nil {
		return nil, err
	}
	if fileID.Valid {
		rec.FileID = &fileID.UUID
	}
	if jobID.Valid {
		rec.JobID = &jobID.UUID
	}
	rec.CreatedAt = fromMillis(created)
	rec.UpdatedAt = fromMillis(updated)
	return &rec, nil
}
