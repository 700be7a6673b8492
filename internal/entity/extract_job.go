package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
)

// ExtractJob represents an extract job for data transfer between layers.
// FileID is nil for pasted text.
type ExtractJob struct {
	ID           uuid.UUID            `json:"id"`
	FileID       *uuid.UUID           `json:"file_id,omitempty"`
	SourceKind   constants.SourceKind `json:"source_kind"`
	StartedAt    time.Time            `json:"started_at"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
	Status       constants.JobStatus  `json:"status"`
	ErrorMessage *string              `json:"error_message,omitempty"`
	Text         *string              `json:"text,omitempty"`
	TextConf     *float32             `json:"text_confidence,omitempty"`
	StrategyUsed *string              `json:"strategy_used,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
	RecordCount  int                  `json:"record_count"`
}
