package export

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// Artifact is a rendered export ready to be written or served.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

var columns = []string{"Time", "Fleet Number", "Confidence", "Source", "Validated"}

// Service renders schedule records into downloadable files.
type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, now: time.Now}
}

// Export renders records in the given format. Records are written in the
// order given; callers pass deduplicated, time-sorted output.
func (s *Service) Export(ctx context.Context, records []extract.Record, format constants.ExportFormat) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	start := time.Now()

	var (
		a   Artifact
		err error
	)
	switch format {
	case constants.ExportExcel:
		a.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		a.Data, err = renderXLSX(records)
		a.Filename = s.filename("xlsx")
	case constants.ExportCSV:
		a.ContentType = "text/csv; charset=utf-8"
		a.Data, err = renderCSV(records)
		a.Filename = s.filename("csv")
	case constants.ExportJSON:
		a.ContentType = "application/json"
		a.Data, err = renderJSON(records, s.now())
		a.Filename = s.filename("json")
	case constants.ExportTXT:
		a.ContentType = "text/plain; charset=utf-8"
		a.Data, err = renderTXT(records)
		a.Filename = s.filename("txt")
	case constants.ExportPDF:
		a.ContentType = "application/pdf"
		a.Data, err = renderPDF(records, s.now())
		a.Filename = s.filename("pdf")
	default:
		return Artifact{}, fmt.Errorf("unknown export format %q", format)
	}
	if err != nil {
		return Artifact{}, fmt.Errorf("%s write: %w", format, err)
	}

	s.logger.Info("export."+string(format)+".ok",
		"rows", len(records),
		"bytes", len(a.Data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return a, nil
}

func (s *Service) filename(ext string) string {
	return "schedule-" + s.now().Format("20060102-1504") + "." + ext
}

func row(r extract.Record) []string {
	validated := "no"
	if r.Validated {
		validated = "yes"
	}
	return []string{r.Time, r.FleetNumber, strconv.Itoa(r.Confidence), r.Source, validated}
}
