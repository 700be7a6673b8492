package llm

import (
	"context"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// Document is the JSON shape we want back from the model.
type Document struct {
	Records []extract.Pair `json:"records"`
}

type ExtractRequest struct {
	Text         string
	FilenameHint string
	// Warnings from the rule-based pass, passed along as hints.
	Warnings []string
}

// RecordsExtractor is the interface the pipeline falls back to when every
// rule-based strategy comes up empty.
type RecordsExtractor interface {
	ExtractRecords(ctx context.Context, req ExtractRequest) ([]extract.Pair, []byte /*rawJSON*/, error)
}

// Records runs model output through the same normalization as the
// rule-based strategies, at the lowest confidence.
func Records(pairs []extract.Pair, opts extract.Options) ([]extract.Record, []string) {
	return extract.Pairs(pairs, extract.SourceLLM, extract.ConfidenceLLM, opts)
}
