package extract

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var reLineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// Line is one surviving data row.
type Line struct {
	Index  int    // position among surviving lines
	Number int    // 1-based line number in the raw text
	Text   string // trimmed, interior spacing preserved
}

// input is the normalized view shared by all strategies.
type input struct {
	lines  []Line
	header *Line
	opts   Options
	// consumed holds tokens already claimed by a higher-priority strategy.
	consumed map[tokenRef]bool
}

// consume marks the tokens of an accepted candidate as taken.
func (in *input) consume(c Candidate) {
	for _, ref := range []tokenRef{c.timeAt, c.fleetAt} {
		if ref.line > 0 {
			in.consumed[ref] = true
		}
	}
}

// free drops the tokens of ln that an earlier strategy consumed.
func (in *input) free(ln Line, toks []token) []token {
	if len(in.consumed) == 0 {
		return toks
	}
	out := make([]token, 0, len(toks))
	for _, t := range toks {
		if !in.consumed[tokenRef{line: ln.Number, start: t.Start}] {
			out = append(out, t)
		}
	}
	return out
}

type rowClassifier struct {
	breakMarkers []string
	headerWords  map[string]struct{}
	timeHints    []string
	fleetHints   []string
}

func newClassifier(opts Options) *rowClassifier {
	c := &rowClassifier{headerWords: make(map[string]struct{})}
	for _, m := range opts.BreakMarkers {
		if f := fold(m); f != "" {
			c.breakMarkers = append(c.breakMarkers, f)
		}
	}
	for _, w := range defaultHeaderWords {
		c.headerWords[fold(w)] = struct{}{}
	}
	for _, h := range opts.HeaderHints.Time {
		c.timeHints = append(c.timeHints, fold(h))
		c.headerWords[fold(h)] = struct{}{}
	}
	for _, h := range opts.HeaderHints.Fleet {
		c.fleetHints = append(c.fleetHints, fold(h))
		c.headerWords[fold(h)] = struct{}{}
	}
	return c
}

// fold lower-cases s and strips diacritics so "REFEIÇÃO" matches "refeicao".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}

func words(folded string) []string {
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (c *rowClassifier) isBreak(text string) bool {
	ws := words(fold(text))
	if len(ws) == 0 {
		return false
	}
	joined := " " + strings.Join(ws, " ") + " "
	for _, m := range c.breakMarkers {
		if strings.Contains(joined, " "+strings.Join(words(m), " ")+" ") {
			return true
		}
	}
	return false
}

// isHeader classifies the whole row: more than half of its words must be
// header words and it must carry no time token.
func (c *rowClassifier) isHeader(text string) bool {
	if len(findTimes(text)) > 0 {
		return false
	}
	ws := words(fold(text))
	if len(ws) == 0 {
		return false
	}
	hits := 0
	for _, w := range ws {
		if _, ok := c.headerWords[w]; ok {
			hits++
		}
	}
	return hits > 0 && hits*2 > len(ws)
}

func isSeparator(text string) bool {
	for _, r := range text {
		if !strings.ContainsRune("-=_|+*.:~ \t", r) {
			return false
		}
	}
	return true
}

func matchesHint(folded string, hints []string) bool {
	for _, h := range hints {
		if h != "" && strings.Contains(folded, h) {
			return true
		}
	}
	return false
}

// normalizeLines splits raw text into data lines and drops header, break
// and separator rows. The first header naming both a time and a fleet
// column is kept aside for the column strategy.
func normalizeLines(raw string, opts Options) *input {
	in := &input{opts: opts}
	c := newClassifier(opts)
	for i, l := range reLineBreak.Split(raw, -1) {
		text := strings.TrimSpace(l)
		if text == "" || isSeparator(text) {
			continue
		}
		if opts.filterBreaks() && c.isBreak(text) {
			continue
		}
		if c.isHeader(text) {
			folded := fold(text)
			if in.header == nil && matchesHint(folded, c.timeHints) && matchesHint(folded, c.fleetHints) {
				h := Line{Index: len(in.lines), Number: i + 1, Text: text}
				in.header = &h
			}
			continue
		}
		in.lines = append(in.lines, Line{Index: len(in.lines), Number: i + 1, Text: text})
	}
	return in
}

// NormalizeLines exposes the Line Normalizer stage on its own.
func NormalizeLines(raw string, opts Options) []Line {
	return normalizeLines(raw, opts.withDefaults()).lines
}
