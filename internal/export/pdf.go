package export

import (
	"bytes"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

const (
	pdfMargin   = 50 // points
	pdfFontSize = 10
	pdfLeading  = 14
)

// pdfColumnW is the width of each column in points.
var pdfColumnW = []float64{70, 100, 80, 100, 95}

// renderPDF writes an A4 Helvetica table with the title and header row
// repeated on every page. Text outside cp1252 is replaced.
func renderPDF(records []extract.Record, now time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCreationDate(now)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetFont("Helvetica", "", pdfFontSize)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := "Schedule export " + now.UTC().Format("2006-01-02 15:04") + " UTC"
	pdf.SetHeaderFunc(func() {
		pdf.CellFormat(0, pdfLeading, tr(title), "", 1, "L", false, 0, "")
		pdf.Ln(pdfLeading)
		for c, h := range columns {
			pdf.CellFormat(pdfColumnW[c], pdfLeading, h, "", 0, "L", false, 0, "")
		}
		pdf.Ln(pdfLeading)
	})

	pdf.AddPage()
	for _, r := range records {
		for c, v := range row(r) {
			pdf.CellFormat(pdfColumnW[c], pdfLeading, tr(v), "", 0, "L", false, 0, "")
		}
		pdf.Ln(pdfLeading)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
