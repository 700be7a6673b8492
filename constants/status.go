package constants

// JobStatus is the canonical status for rows in extract_job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued    JobStatus = "QUEUED"     // queued for processing
	JobStatusRunning   JobStatus = "RUNNING"    // in progress
	JobStatusTextOK    JobStatus = "TEXT_OK"    // text or rows obtained
	JobStatusExtractOK JobStatus = "EXTRACT_OK" // records extracted and saved
	JobStatusEmpty     JobStatus = "EMPTY"      // nothing recognized, retry with edited text
	JobStatusFailed    JobStatus = "FAILED"     // terminal failure
)

// Terminal reports whether no further transition is expected.
func (s JobStatus) Terminal() bool {
	return s == JobStatusExtractOK || s == JobStatusEmpty || s == JobStatusFailed
}
