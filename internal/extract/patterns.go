package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// reTime matches every accepted time shape. A trailing AM/PM is the most
// specific reading, so it comes first; at any offset the alternation order
// decides which shape wins.
var reTime = regexp.MustCompile(`(?i)` +
	`\b\d{1,2}(?::\d{2}){0,2}\s?[ap]\.?m\b\.?` +
	`|\b\d{1,2}:\d{2}:\d{2}\b` +
	`|\b\d{1,2}:\d{2}\b` +
	`|\b\d{1,2}h\d{2}\b` +
	`|\b\d{1,2}\.\d{2}\b`)

var (
	reFleetDigits = regexp.MustCompile(`\b\d{3,6}\b`)
	reFleetAlnum  = regexp.MustCompile(`\b(?:[A-Za-z]{1,3}-?)?\d{3,6}\b`)

	// anchored variants used by the whole-text scan
	reFleetDigitsAt = regexp.MustCompile(`^\d{3,6}\b`)
	reFleetAlnumAt  = regexp.MustCompile(`^(?:[A-Za-z]{1,3}-?)?\d{3,6}\b`)

	reCanonicalTime  = regexp.MustCompile(`^\d{1,2}:\d{2}(:\d{2})?$`)
	reCanonicalFleet = regexp.MustCompile(`^\d{3,6}$`)
	reCanonicalAlnum = regexp.MustCompile(`^[A-Z]{0,3}\d{3,6}$`)

	reColumnGap = regexp.MustCompile(`\t+\s*|\s{2,}`)
)

type token struct {
	Text       string
	Start, End int
}

func (t token) overlaps(o token) bool {
	return t.Start < o.End && o.Start < t.End
}

// findTimes returns the time tokens of s. A token dotted onto more digits
// is part of a date or version ("15.01.2024") and is skipped. Ranges like
// "08:00-09:00" keep both ends.
func findTimes(s string) []token {
	idx := reTime.FindAllStringIndex(s, -1)
	out := make([]token, 0, len(idx))
	for _, m := range idx {
		if gluedTo(s, m[0], m[1], ".") {
			continue
		}
		out = append(out, token{Text: s[m[0]:m[1]], Start: m[0], End: m[1]})
	}
	return out
}

func fleetPattern(f FleetFormat) *regexp.Regexp {
	if f == FleetAlphanumeric {
		return reFleetAlnum
	}
	return reFleetDigits
}

func fleetPatternAt(f FleetFormat) *regexp.Regexp {
	if f == FleetAlphanumeric {
		return reFleetAlnumAt
	}
	return reFleetDigitsAt
}

// findFleets returns fleet-number tokens in s that are not time look-alikes.
func findFleets(s string, times []token, format FleetFormat) []token {
	idx := fleetPattern(format).FindAllStringIndex(s, -1)
	out := make([]token, 0, len(idx))
	for _, m := range idx {
		tok := token{Text: s[m[0]:m[1]], Start: m[0], End: m[1]}
		if rejectFleet(s, tok, times) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// rejectFleet cross-validates a fleet candidate against the time tokens of
// its line.
func rejectFleet(s string, tok token, times []token) bool {
	for _, t := range times {
		if tok.overlaps(t) {
			return true
		}
	}
	if gluedTo(s, tok.Start, tok.End, ":./-") {
		return true
	}
	return looksLikeTime(tok.Text, times)
}

// gluedTo reports whether s[start:end] continues a date, decimal or time
// through one of seps ("2024-01-15", "12.345", "10:305").
func gluedTo(s string, start, end int, seps string) bool {
	if start >= 2 && strings.IndexByte(seps, s[start-1]) >= 0 && isDigit(s[start-2]) {
		return true
	}
	if end+1 < len(s) && strings.IndexByte(seps, s[end]) >= 0 && isDigit(s[end+1]) {
		return true
	}
	return false
}

// looksLikeTime reports whether a 3-4 digit token reads as HHMM and repeats
// a time already present on the line ("07:00:00 0700"). A leading zero on
// its own is not enough: "0412" is a valid fleet number.
func looksLikeTime(tok string, times []token) bool {
	if len(tok) < 3 || len(tok) > 4 || !allDigits(tok) {
		return false
	}
	h, _ := strconv.Atoi(tok[:len(tok)-2])
	m, _ := strconv.Atoi(tok[len(tok)-2:])
	if h > 23 || m > 59 {
		return false
	}
	for _, t := range times {
		norm, ok := NormalizeTime(t.Text, false)
		if !ok {
			continue
		}
		if strings.TrimLeft(strings.ReplaceAll(norm, ":", ""), "0") == strings.TrimLeft(tok, "0") {
			return true
		}
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

type segment struct {
	Text  string
	Start int
}

// splitColumns splits a table row on tabs or runs of two or more spaces,
// keeping each segment's left-edge offset.
func splitColumns(s string) []segment {
	var out []segment
	prev := 0
	for _, gap := range reColumnGap.FindAllStringIndex(s, -1) {
		if gap[0] > prev {
			out = append(out, segment{Text: s[prev:gap[0]], Start: prev})
		}
		prev = gap[1]
	}
	if prev < len(s) {
		out = append(out, segment{Text: s[prev:], Start: prev})
	}
	return out
}

// splitWords splits on any whitespace, keeping offsets.
func splitWords(s string) []segment {
	var out []segment
	start := -1
	for i, r := range s {
		space := r == ' ' || r == '\t'
		switch {
		case !space && start < 0:
			start = i
		case space && start >= 0:
			out = append(out, segment{Text: s[start:i], Start: start})
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, segment{Text: s[start:], Start: start})
	}
	return out
}
