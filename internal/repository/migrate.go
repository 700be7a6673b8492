package repository

import (
	"context"
	"fmt"
	"strings"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS source_file (
		id {{uuid}} PRIMARY KEY,
		source_path TEXT NOT NULL,
		content_hash {{blob}} NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		file_ext TEXT NOT NULL,
		file_size BIGINT NOT NULL,
		uploaded_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS extract_job (
		id {{uuid}} PRIMARY KEY,
		file_id {{uuid}} REFERENCES source_file(id) ON DELETE CASCADE,
		source_kind TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		finished_at BIGINT,
		status TEXT NOT NULL,
		error_message TEXT,
		text TEXT,
		text_confidence REAL,
		strategy_used TEXT,
		warnings TEXT,
		record_count INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_record (
		id {{uuid}} PRIMARY KEY,
		file_id {{uuid}} REFERENCES source_file(id) ON DELETE SET NULL,
		job_id {{uuid}} REFERENCES extract_job(id) ON DELETE CASCADE,
		sched_time TEXT NOT NULL,
		fleet_number TEXT NOT NULL,
		confidence INTEGER NOT NULL,
		source TEXT NOT NULL,
		validated {{bool}} NOT NULL,
		created_at BIGINT NOT NULL,
		updated_at BIGINT NOT NULL,
		UNIQUE (job_id, sched_time, fleet_number)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_extract_job_file_id ON extract_job(file_id)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_record_time ON schedule_record(sched_time)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_record_fleet ON schedule_record(fleet_number)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_record_file_id ON schedule_record(file_id)`,
}

// Migrate creates the tables if they do not exist.
func (db *DB) Migrate(ctx context.Context) error {
	types := strings.NewReplacer("{{uuid}}", "TEXT", "{{blob}}", "BLOB", "{{bool}}", "INTEGER")
	if db.driver == DriverPostgres {
		types = strings.NewReplacer("{{uuid}}", "UUID", "{{blob}}", "BYTEA", "{{bool}}", "BOOLEAN")
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, types.Replace(stmt)); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
