package extract

// Strategy tags carried on every Record.
const (
	SourceSameLine  = "same_line"
	SourceColumn    = "column"
	SourceProximity = "proximity"
	SourceWholeText = "whole_text"
	SourceManual    = "manual"
	SourceLLM       = "llm"
)

// Confidence per strategy. Higher wins during deduplication.
const (
	ConfidenceManual    = 100
	ConfidenceSameLine  = 95
	ConfidenceColumn    = 85
	ConfidenceProximity = 60
	ConfidenceWholeText = 40
	ConfidenceLLM       = 30

	// AutoValidateThreshold is the minimum confidence at which an automatic
	// match is considered validated without human review.
	AutoValidateThreshold = 90
)

// Record is one extracted schedule row.
type Record struct {
	Time        string `json:"time"`         // HH:MM or HH:MM:SS, 24h
	FleetNumber string `json:"fleet_number"` // 3-6 digits, optional letter prefix
	Confidence  int    `json:"confidence"`
	Source      string `json:"source"`
	Validated   bool   `json:"validated"`
}

// Key is the deduplication key.
func (r Record) Key() string {
	return r.Time + "|" + r.FleetNumber
}

// Pair is an un-normalized time/fleet token pair as found in the source.
type Pair struct {
	Time        string `json:"time"`
	FleetNumber string `json:"fleet_number"`
}

// ManualInput is a record typed in by a reviewer.
type ManualInput struct {
	Time        string `json:"time"`
	FleetNumber string `json:"fleet_number"`
}

// Candidate is a recognized pair before normalization.
type Candidate struct {
	Pair
	Line       int // 1-based source line number, 0 when unknown
	Confidence int
	Source     string

	timeAt, fleetAt tokenRef
}

// tokenRef locates a token by source line number and byte offset within
// the trimmed line. The zero value is an unknown position.
type tokenRef struct {
	line, start int
}
