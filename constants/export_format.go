package constants

import (
	"strings"
)

type ExportFormat string

const (
	ExportExcel ExportFormat = "excel"
	ExportCSV   ExportFormat = "csv"
	ExportJSON  ExportFormat = "json"
	ExportTXT   ExportFormat = "txt"
	ExportPDF   ExportFormat = "pdf"
)

var allExportFormats = []ExportFormat{
	ExportExcel,
	ExportCSV,
	ExportJSON,
	ExportTXT,
	ExportPDF,
}

func ExportFormatsAsStrings() []string {
	result := make([]string, len(allExportFormats))
	for i, f := range allExportFormats {
		result[i] = string(f)
	}
	return result
}

// CanonicalExportFormat resolves a user-supplied format tag, accepting
// file extensions as synonyms.
func CanonicalExportFormat(input string) (ExportFormat, bool) {
	normalized := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(input), "."))
	if normalized == "" {
		return ExportExcel, false
	}

	synonyms := map[string]ExportFormat{
		"xlsx": ExportExcel,
		"xls":  ExportExcel,
		"text": ExportTXT,
	}
	if f, ok := synonyms[normalized]; ok {
		return f, true
	}
	for _, f := range allExportFormats {
		if normalized == string(f) {
			return f, true
		}
	}
	return ExportExcel, false
}
