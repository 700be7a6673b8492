package sheet

import (
	"encoding/csv"
	"strings"
)

var delimiters = []rune{',', ';', '\t'}

func readDelimited(data []byte, tabs bool) ([][]string, error) {
	text := DecodeText(data)
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if tabs {
		r.Comma = '\t'
	} else {
		r.Comma = sniffDelimiter(text)
	}
	return r.ReadAll()
}

// sniffDelimiter picks the candidate occurring most on the first
// non-empty line; comma wins when nothing else appears.
func sniffDelimiter(s string) rune {
	var first string
	for _, ln := range strings.Split(s, "\n") {
		if strings.TrimSpace(ln) != "" {
			first = ln
			break
		}
	}
	best, count := ',', 0
	for _, d := range delimiters {
		if n := strings.Count(first, string(d)); n > count {
			best, count = d, n
		}
	}
	return best
}
