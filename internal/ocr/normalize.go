package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reBoxNoise   = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)
	reDigitish   = regexp.MustCompile(`[0-9OolI:.]+`)
)

var digitFixer = strings.NewReplacer("O", "0", "o", "0", "l", "1", "I", "1")

// Normalize cleans OCR output without touching interior spacing, which
// carries the table's column layout.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = fixDigitGroups(strings.TrimRight(lines[i], " \t"))
	}
	s = strings.Join(lines, "\n")
	// collapse too many blank lines
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	return strings.Trim(s, "\n")
}

// fixDigitGroups repairs O/o read for 0 and l/I read for 1 inside tokens
// that already contain a digit and stand apart from surrounding words
// ("4O167" -> "40167", "l3:OO" -> "13:00").
func fixDigitGroups(line string) string {
	idx := reDigitish.FindAllStringIndex(line, -1)
	if len(idx) == 0 {
		return line
	}
	var b strings.Builder
	prev := 0
	for _, m := range idx {
		tok := line[m[0]:m[1]]
		if !strings.ContainsAny(tok, "0123456789") || isLetter(line, m[0]-1) || isLetter(line, m[1]) {
			continue
		}
		b.WriteString(line[prev:m[0]])
		b.WriteString(digitFixer.Replace(tok))
		prev = m[1]
	}
	b.WriteString(line[prev:])
	return b.String()
}

func isLetter(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= 0x80
}
