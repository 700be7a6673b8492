package extract

// FleetFormat selects which fleet-number shapes are accepted.
type FleetFormat int

const (
	// FleetDigits accepts 3-6 digit fleet numbers only.
	FleetDigits FleetFormat = iota
	// FleetAlphanumeric also accepts a 1-3 letter prefix (e.g. "AB123").
	FleetAlphanumeric
)

// HeaderHints name the columns the column strategy looks for.
type HeaderHints struct {
	Time  []string `toml:"time" json:"time"`
	Fleet []string `toml:"fleet" json:"fleet"`
}

var (
	defaultTimeHints  = []string{"agendamento", "horario", "hora", "time", "schedule"}
	defaultFleetHints = []string{"frota", "fleet", "veiculo", "vehicle"}

	defaultBreakMarkers = []string{"refeicao", "refeição", "almoco", "almoço", "intervalo", "meal", "lunch", "break"}

	defaultHeaderWords = []string{
		"agendamento", "horario", "hora", "frota", "modelo", "servico", "tempo",
		"duracao", "placa", "veiculo", "schedule", "time", "fleet", "model",
		"service", "duration", "vehicle", "plate",
	}
)

// Options tune an extraction. The zero value is usable; DefaultOptions
// documents the effective defaults.
type Options struct {
	// FilterBreakRows drops rows containing a break marker. Nil means true.
	FilterBreakRows *bool
	// BreakMarkers replaces the default break/meal marker list.
	BreakMarkers []string
	// HeaderHints replaces the default column hints for the column strategy.
	HeaderHints HeaderHints
	// FleetFormat selects digit-only or letter-prefixed fleet numbers.
	FleetFormat FleetFormat
	// FleetBeforeTime flips the same-line search direction for tables whose
	// fleet column precedes the time column.
	FleetBeforeTime bool
	// ProximityWindow is the max line distance for proximity pairing. 0 means 1.
	ProximityWindow int
	// MergeStrategies runs every strategy and merges by confidence instead of
	// stopping at the first strategy that yields records.
	MergeStrategies bool
	// KeepSeconds keeps the :SS component instead of stripping it.
	KeepSeconds bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

// BoolPtr is a helper for Options.FilterBreakRows.
func BoolPtr(b bool) *bool { return &b }

func (o Options) withDefaults() Options {
	if o.FilterBreakRows == nil {
		o.FilterBreakRows = BoolPtr(true)
	}
	if len(o.BreakMarkers) == 0 {
		o.BreakMarkers = defaultBreakMarkers
	}
	if len(o.HeaderHints.Time) == 0 {
		o.HeaderHints.Time = defaultTimeHints
	}
	if len(o.HeaderHints.Fleet) == 0 {
		o.HeaderHints.Fleet = defaultFleetHints
	}
	if o.ProximityWindow <= 0 {
		o.ProximityWindow = 1
	}
	return o
}

func (o Options) filterBreaks() bool {
	return o.FilterBreakRows == nil || *o.FilterBreakRows
}
