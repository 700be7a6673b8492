package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// ScheduleRecord is a persisted extract.Record.
type ScheduleRecord struct {
	ID     uuid.UUID  `json:"id"`
	FileID *uuid.UUID `json:"file_id,omitempty"`
	JobID  *uuid.UUID `json:"job_id,omitempty"`
	extract.Record
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordFilter narrows a record listing. Zero fields are ignored.
type RecordFilter struct {
	FileID    *uuid.UUID
	JobID     *uuid.UUID
	Validated *bool
	From      string // inclusive HH:MM
	To        string // inclusive HH:MM
	Fleet     string
	Limit     int
}

// Records strips persistence fields.
func Records(rs []ScheduleRecord) []extract.Record {
	out := make([]extract.Record, len(rs))
	for i, r := range rs {
		out[i] = r.Record
	}
	return out
}
