package llm

import (
	"strings"
)

// maxPromptChars bounds the text sent to the model.
const maxPromptChars = 6000

// BuildSystemPrompt describes the table and the strict output rules.
func BuildSystemPrompt() string {
	parts := []string{
		"You read maintenance schedules for a vehicle fleet. The text comes from OCR, a paste or a spreadsheet, so columns may be misaligned and characters misread.",
		"Return ONLY JSON that matches the provided JSON Schema: {\"records\": [{\"time\": ..., \"fleet_number\": ...}]}.",
		"Each record pairs one scheduled time with one fleet number from the same table row.",
		"Write times as 24-hour HH:MM (drop seconds; convert AM/PM).",
		"Fleet numbers are 3 to 6 digits, sometimes with a short letter prefix. Copy them exactly; never invent or pad them.",
		"Ignore header rows and meal or break rows (REFEIÇÃO, ALMOÇO, INTERVALO, lunch, break).",
		"Do not output a time as a fleet number (0700 next to 07:00 is the time repeated).",
		"If nothing can be paired, return {\"records\": []}. Never output null.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the filename hint, earlier warnings and the text.
func BuildUserPrompt(req ExtractRequest) string {
	var b strings.Builder
	if f := strings.TrimSpace(req.FilenameHint); f != "" {
		b.WriteString("Filename: ")
		b.WriteString(f)
		b.WriteString("\n")
	}
	if len(req.Warnings) > 0 {
		b.WriteString("Rule-based parser notes:\n")
		for _, w := range req.Warnings[:min(len(req.Warnings), 10)] {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}

	text := strings.TrimSpace(req.Text)
	b.WriteString("\nSchedule text:\n")
	if len(text) > maxPromptChars {
		b.WriteString(strings.ToValidUTF8(text[:maxPromptChars], ""))
		b.WriteString("\n…(truncated)")
	} else {
		b.WriteString(text)
	}
	return b.String()
}
