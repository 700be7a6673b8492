package extract

import (
	"strings"
)

// strategy is one recognition pass over the normalized input.
type strategy struct {
	name       string
	confidence int
	run        func(in *input) []Candidate
}

// strategies in priority order. Later ones are fallbacks.
var strategies = []strategy{
	{name: SourceSameLine, confidence: ConfidenceSameLine, run: sameLine},
	{name: SourceColumn, confidence: ConfidenceColumn, run: columnPosition},
	{name: SourceProximity, confidence: ConfidenceProximity, run: proximity},
	{name: SourceWholeText, confidence: ConfidenceWholeText, run: wholeText},
}

// recognize runs the strategy and stamps its tag and confidence.
func (s strategy) recognize(in *input) []Candidate {
	cands := s.run(in)
	for i := range cands {
		cands[i].Confidence = s.confidence
		cands[i].Source = s.name
	}
	return cands
}

func candidate(tl Line, t token, fl Line, f token) Candidate {
	return Candidate{
		Pair:    Pair{Time: t.Text, FleetNumber: f.Text},
		Line:    tl.Number,
		timeAt:  tokenRef{line: tl.Number, start: t.Start},
		fleetAt: tokenRef{line: fl.Number, start: f.Start},
	}
}

// sameLine pairs the first time on a line with the nearest fleet token in
// column order.
func sameLine(in *input) []Candidate {
	var out []Candidate
	for _, ln := range in.lines {
		all := findTimes(ln.Text)
		times := in.free(ln, all)
		if len(times) == 0 {
			continue
		}
		t := times[0]
		fleets := in.free(ln, findFleets(ln.Text, all, in.opts.FleetFormat))
		if f, ok := nearestFleet(t, fleets, in.opts.FleetBeforeTime); ok {
			out = append(out, candidate(ln, t, ln, f))
		}
	}
	return out
}

func nearestFleet(t token, fleets []token, before bool) (token, bool) {
	if before {
		for i := len(fleets) - 1; i >= 0; i-- {
			if fleets[i].End <= t.Start {
				return fleets[i], true
			}
		}
		return token{}, false
	}
	for _, f := range fleets {
		if f.Start >= t.End {
			return f, true
		}
	}
	return token{}, false
}

// columnPosition maps the header's time and fleet columns onto each data
// row by segment index, or by nearest left edge when the segment counts
// disagree.
func columnPosition(in *input) []Candidate {
	if in.header == nil {
		return nil
	}
	c := newClassifier(in.opts)
	hdr, ti, fi := locateColumns(splitColumns(in.header.Text), c)
	if ti < 0 || fi < 0 {
		hdr, ti, fi = locateColumns(splitWords(in.header.Text), c)
	}
	if ti < 0 || fi < 0 {
		return nil
	}

	var out []Candidate
	for _, ln := range in.lines {
		if ln.Index < in.header.Index {
			continue
		}
		segs := splitColumns(ln.Text)
		if len(segs) < 2 {
			continue
		}
		tseg := pickSegment(segs, hdr, ti)
		fseg := pickSegment(segs, hdr, fi)
		if tseg.Start == fseg.Start {
			continue
		}
		times := in.free(ln, shiftTokens(findTimes(tseg.Text), -tseg.Start))
		if len(times) == 0 {
			continue
		}
		lineTimes := findTimes(ln.Text)
		fleets := findFleets(fseg.Text, shiftTokens(lineTimes, fseg.Start), in.opts.FleetFormat)
		fleets = in.free(ln, shiftTokens(fleets, -fseg.Start))
		if len(fleets) == 0 {
			continue
		}
		out = append(out, candidate(ln, times[0], ln, fleets[0]))
	}
	return out
}

// locateColumns finds the first header segment matching a time hint and
// the first other segment matching a fleet hint.
func locateColumns(hdr []segment, c *rowClassifier) ([]segment, int, int) {
	ti, fi := -1, -1
	for i, seg := range hdr {
		f := fold(seg.Text)
		if ti < 0 && matchesHint(f, c.timeHints) {
			ti = i
			continue
		}
		if fi < 0 && matchesHint(f, c.fleetHints) {
			fi = i
		}
	}
	return hdr, ti, fi
}

func pickSegment(segs, hdr []segment, col int) segment {
	if len(segs) == len(hdr) {
		return segs[col]
	}
	best, dist := segs[0], -1
	for _, seg := range segs {
		d := seg.Start - hdr[col].Start
		if d < 0 {
			d = -d
		}
		if dist < 0 || d < dist {
			best, dist = seg, d
		}
	}
	return best
}

// shiftTokens rebases line-level token offsets onto a segment that starts
// at off, so overlap checks still line up.
func shiftTokens(ts []token, off int) []token {
	out := make([]token, len(ts))
	for i, t := range ts {
		out[i] = token{Text: t.Text, Start: t.Start - off, End: t.End - off}
	}
	return out
}

type located struct {
	tok     token
	line    Line
	primary bool // first free time token of its line
}

// proximity pairs time and fleet tokens across nearby lines. Pairs are
// made globally by ascending line distance up to the configured window.
// Within one distance the first time token of each line is served before
// secondary ones (durations), and ties go to the earliest fleet. Each fleet
// is used once.
func proximity(in *input) []Candidate {
	var times, fleets []located
	for _, ln := range in.lines {
		all := findTimes(ln.Text)
		for i, t := range in.free(ln, all) {
			times = append(times, located{tok: t, line: ln, primary: i == 0})
		}
		for _, f := range in.free(ln, findFleets(ln.Text, all, in.opts.FleetFormat)) {
			fleets = append(fleets, located{tok: f, line: ln})
		}
	}

	usedFleet := make([]bool, len(fleets))
	paired := make([]bool, len(times))
	var out []Candidate
	for d := 0; d <= in.opts.ProximityWindow; d++ {
		for _, primary := range []bool{true, false} {
			for ti, t := range times {
				if paired[ti] || t.primary != primary {
					continue
				}
				for fi, f := range fleets {
					if usedFleet[fi] || lineDistance(t.line, f.line) != d {
						continue
					}
					usedFleet[fi], paired[ti] = true, true
					out = append(out, candidate(t.line, t.tok, f.line, f.tok))
					break
				}
			}
		}
	}
	return out
}

func lineDistance(a, b Line) int {
	if d := a.Index - b.Index; d >= 0 {
		return d
	}
	return b.Index - a.Index
}

// wholeText scans the flattened text for "time <ws> fleet" runs, left to
// right, without overlap. Such a run spans at most one line, so proximity
// has already claimed it unless strategies are merged.
func wholeText(in *input) []Candidate {
	flat, pos := flatten(in.lines)
	times := findTimes(flat)
	at := fleetPatternAt(in.opts.FleetFormat)

	var out []Candidate
	consumed := 0
	for _, t := range times {
		if t.Start < consumed || in.consumed[pos[t.Start]] {
			continue
		}
		rest := flat[t.End:]
		if !strings.HasPrefix(rest, " ") {
			continue
		}
		rest = rest[1:]
		loc := at.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		start := t.End + 1
		f := token{Text: rest[loc[0]:loc[1]], Start: start + loc[0], End: start + loc[1]}
		if rejectFleet(flat, f, times) || in.consumed[pos[f.Start]] {
			continue
		}
		c := Candidate{
			Pair:    Pair{Time: t.Text, FleetNumber: f.Text},
			Line:    pos[t.Start].line,
			timeAt:  pos[t.Start],
			fleetAt: pos[f.Start],
		}
		out = append(out, c)
		consumed = f.End
	}
	return out
}

// flatten joins the lines with single spaces, collapsing interior
// whitespace, and maps every byte of the result back to its line and
// offset.
func flatten(lines []Line) (string, []tokenRef) {
	var (
		b   strings.Builder
		pos []tokenRef
	)
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte(' ')
			pos = append(pos, tokenRef{line: ln.Number})
		}
		space := false
		for j := 0; j < len(ln.Text); j++ {
			c := ln.Text[j]
			if strings.IndexByte(" \t\n\r\f", c) >= 0 {
				if !space {
					b.WriteByte(' ')
					pos = append(pos, tokenRef{line: ln.Number, start: j})
				}
				space = true
				continue
			}
			space = false
			b.WriteByte(c)
			pos = append(pos, tokenRef{line: ln.Number, start: j})
		}
	}
	return b.String(), pos
}
