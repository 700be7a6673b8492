package extract

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var reTimeParts = regexp.MustCompile(`(?i)^(\d{1,2})(?:[:h.](\d{2}))?(?::(\d{2}))?\s*(?:([ap])\.?\s*m\.?)?$`)

// NormalizeTime converts an accepted time token to canonical HH:MM
// (HH:MM:SS when keepSeconds and the token carries seconds).
func NormalizeTime(tok string, keepSeconds bool) (string, bool) {
	m := reTimeParts.FindStringSubmatch(strings.TrimSpace(tok))
	if m == nil {
		return "", false
	}
	h, _ := strconv.Atoi(m[1])
	min, sec := 0, -1
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	} else if m[4] == "" {
		// a bare number is not a time
		return "", false
	}
	if m[3] != "" {
		sec, _ = strconv.Atoi(m[3])
	}
	if suffix := strings.ToLower(m[4]); suffix != "" {
		if h < 1 || h > 12 {
			return "", false
		}
		switch {
		case suffix == "a" && h == 12:
			h = 0
		case suffix == "p" && h != 12:
			h += 12
		}
	}
	if h > 23 || min > 59 || sec > 59 {
		return "", false
	}
	out := fmt.Sprintf("%02d:%02d", h, min)
	if keepSeconds && sec >= 0 {
		out += fmt.Sprintf(":%02d", sec)
	}
	if !reCanonicalTime.MatchString(out) {
		return "", false
	}
	return out, true
}

// NormalizeFleet upper-cases the token, drops separators inside a letter
// prefix and validates it against the configured format.
func NormalizeFleet(tok string, format FleetFormat) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(tok))
	s = strings.NewReplacer("-", "", " ", "").Replace(s)
	if format == FleetAlphanumeric {
		return s, reCanonicalAlnum.MatchString(s)
	}
	return s, reCanonicalFleet.MatchString(s)
}

// spreadsheetTime turns a sheet cell into a time token. Day fractions
// ("0.34375") are converted to HH:MM; anything else yields its first time
// token or the raw text.
func spreadsheetTime(cell string) string {
	cell = strings.TrimSpace(cell)
	if v, err := strconv.ParseFloat(cell, 64); err == nil && v >= 0 && v < 1 && strings.Contains(cell, ".") {
		mins := int(math.Round(v * 24 * 60))
		return fmt.Sprintf("%02d:%02d", (mins/60)%24, mins%60)
	}
	if ts := findTimes(cell); len(ts) > 0 {
		return ts[0].Text
	}
	return cell
}

// spreadsheetFleet strips the ".0" that numeric cells pick up.
func spreadsheetFleet(cell string) string {
	cell = strings.TrimSpace(cell)
	if strings.HasSuffix(cell, ".0") && allDigits(strings.TrimSuffix(cell, ".0")) {
		return strings.TrimSuffix(cell, ".0")
	}
	return cell
}

// pairCandidates normalizes candidates into records. Invalid ones are
// dropped and reported as warnings.
func pairCandidates(cands []Candidate, opts Options) ([]Record, []string) {
	var (
		out   []Record
		warns []string
	)
	for _, c := range cands {
		r, warn, ok := pairCandidate(c, opts)
		if !ok {
			warns = append(warns, warn)
			continue
		}
		out = append(out, r)
	}
	return out, warns
}

func pairCandidate(c Candidate, opts Options) (Record, string, bool) {
	t, ok := NormalizeTime(c.Time, opts.KeepSeconds)
	if !ok {
		return Record{}, warnf(c.Line, "invalid time %q", c.Time), false
	}
	f, ok := NormalizeFleet(c.FleetNumber, opts.FleetFormat)
	if !ok {
		return Record{}, warnf(c.Line, "invalid fleet number %q", c.FleetNumber), false
	}
	return Record{
		Time:        t,
		FleetNumber: f,
		Confidence:  c.Confidence,
		Source:      c.Source,
		Validated:   c.Confidence >= AutoValidateThreshold,
	}, "", true
}

func warnf(line int, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if line > 0 {
		return fmt.Sprintf("line %d: %s", line, msg)
	}
	return msg
}

// Pairs normalizes pairs obtained outside the recognizer (spreadsheet
// columns, the LLM fallback) with a fixed source and confidence.
func Pairs(pairs []Pair, source string, confidence int, opts Options) ([]Record, []string) {
	opts = opts.withDefaults()
	cands := make([]Candidate, 0, len(pairs))
	for _, p := range pairs {
		cands = append(cands, Candidate{Pair: p, Confidence: confidence, Source: source})
	}
	return pairCandidates(cands, opts)
}

// Manual builds a reviewer-entered record. It is always validated.
func Manual(in ManualInput, opts Options) (Record, error) {
	opts = opts.withDefaults()
	t, ok := NormalizeTime(in.Time, opts.KeepSeconds)
	if !ok {
		return Record{}, fmt.Errorf("%w: time %q", ErrFormatInvalid, in.Time)
	}
	f, ok := NormalizeFleet(in.FleetNumber, opts.FleetFormat)
	if !ok {
		return Record{}, fmt.Errorf("%w: fleet number %q", ErrFormatInvalid, in.FleetNumber)
	}
	return Record{
		Time:        t,
		FleetNumber: f,
		Confidence:  ConfidenceManual,
		Source:      SourceManual,
		Validated:   true,
	}, nil
}
