package pipeline

import (
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// OptionsFromConfig maps the [extract] config section onto extractor
// options.
func OptionsFromConfig(cfg common.ExtractConfig) extract.Options {
	opts := extract.Options{
		FilterBreakRows: extract.BoolPtr(cfg.FilterBreakRows),
		BreakMarkers:    cfg.BreakMarkers,
		HeaderHints: extract.HeaderHints{
			Time:  cfg.TimeHints,
			Fleet: cfg.FleetHints,
		},
		FleetBeforeTime: cfg.FleetBeforeTime,
		ProximityWindow: cfg.ProximityWindow,
		MergeStrategies: cfg.MergeStrategies,
		KeepSeconds:     cfg.KeepSeconds,
	}
	if strings.EqualFold(cfg.FleetFormat, "alphanumeric") {
		opts.FleetFormat = extract.FleetAlphanumeric
	}
	return opts
}
