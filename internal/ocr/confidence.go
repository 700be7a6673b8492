package ocr

import (
	"regexp"
)

var (
	reTimeish   = regexp.MustCompile(`\b\d{1,2}[:h.]\d{2}\b`)
	reFleetish  = regexp.MustCompile(`\b\d{3,6}\b`)
	reHeaderish = regexp.MustCompile(`(?i)agendamento|hor[aá]rio|frota|fleet|schedule`)
)

// heuristicConfidence scores decoded text by how much it looks like a
// schedule table: time tokens, fleet numbers, a header, enough content.
func heuristicConfidence(txt string) float32 {
	score := float32(0.2) // base
	if reTimeish.MatchString(txt) {
		score += 0.3
	}
	if reFleetish.MatchString(txt) {
		score += 0.2
	}
	if reHeaderish.MatchString(txt) {
		score += 0.1
	}
	if len(txt) > 60 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights tesseract's own word confidence over the
// heuristic when it is available.
func blendConfidence(ocrConf, heurConf float32) float32 {
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
