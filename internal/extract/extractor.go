package extract

import (
	"strings"
)

// StrategyNone is reported when nothing was recognized.
const StrategyNone = "none"

// maxHeaderScan bounds how far into a sheet the header row is searched.
const maxHeaderScan = 10

// Result is the outcome of one extraction.
type Result struct {
	Records      []Record `json:"records"`
	StrategyUsed string   `json:"strategy_used"`
	Warnings     []string `json:"warnings"`
}

// Empty reports whether no record survived.
func (r Result) Empty() bool { return len(r.Records) == 0 }

// Err returns ErrRecognitionEmpty for an empty result and nil otherwise.
func (r Result) Err() error {
	if r.Empty() {
		return ErrRecognitionEmpty
	}
	return nil
}

// Extract turns raw table text into schedule records. Strategies run in
// priority order and stop at the first one producing valid records, unless
// opts.MergeStrategies asks for all of them.
func Extract(raw string, opts Options) Result {
	opts = opts.withDefaults()
	in := normalizeLines(raw, opts)

	var (
		all   []Record
		used  []string
		warns []string
	)
	in.consumed = make(map[tokenRef]bool)
	for _, s := range strategies {
		var recs []Record
		for _, c := range s.recognize(in) {
			r, w, ok := pairCandidate(c, opts)
			if !ok {
				warns = append(warns, w)
				continue
			}
			recs = append(recs, r)
			in.consume(c)
		}
		if len(recs) == 0 {
			continue
		}
		all = append(all, recs...)
		used = append(used, s.name)
		if !opts.MergeStrategies {
			break
		}
	}
	return Result{
		Records:      Deduplicate(all),
		StrategyUsed: joinStrategies(used),
		Warnings:     uniq(warns),
	}
}

// ExtractRows handles spreadsheet rows. When a header row names a time
// and a fleet column the cells are read directly; otherwise the rows are
// flattened to text and go through Extract.
func ExtractRows(rows [][]string, opts Options) Result {
	opts = opts.withDefaults()
	if res, ok := extractColumns(rows, opts); ok {
		return res
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, strings.Join(row, "  "))
	}
	return Extract(strings.Join(lines, "\n"), opts)
}

func extractColumns(rows [][]string, opts Options) (Result, bool) {
	c := newClassifier(opts)
	hdr, ti, fi := -1, -1, -1
	for r := 0; r < len(rows) && r < maxHeaderScan; r++ {
		ti, fi = headerColumns(rows[r], c)
		if ti >= 0 && fi >= 0 {
			hdr = r
			break
		}
	}
	if hdr < 0 {
		return Result{}, false
	}

	var cands []Candidate
	for r := hdr + 1; r < len(rows); r++ {
		row := rows[r]
		if ti >= len(row) || fi >= len(row) {
			continue
		}
		if opts.filterBreaks() && c.isBreak(strings.Join(row, " ")) {
			continue
		}
		t := spreadsheetTime(row[ti])
		f := spreadsheetFleet(row[fi])
		if t == "" || f == "" {
			continue
		}
		if toks := findFleets(f, findTimes(f), opts.FleetFormat); len(toks) > 0 {
			f = toks[0].Text
		}
		cands = append(cands, Candidate{
			Pair:       Pair{Time: t, FleetNumber: f},
			Line:       r + 1,
			Confidence: ConfidenceColumn,
			Source:     SourceColumn,
		})
	}
	recs, warns := pairCandidates(cands, opts)
	if len(recs) == 0 {
		return Result{}, false
	}
	return Result{
		Records:      Deduplicate(recs),
		StrategyUsed: SourceColumn,
		Warnings:     uniq(warns),
	}, true
}

func headerColumns(row []string, c *rowClassifier) (int, int) {
	ti, fi := -1, -1
	for i, cell := range row {
		f := fold(cell)
		if f == "" {
			continue
		}
		if ti < 0 && matchesHint(f, c.timeHints) {
			ti = i
			continue
		}
		if fi < 0 && matchesHint(f, c.fleetHints) {
			fi = i
		}
	}
	return ti, fi
}
