package server

import (
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
)

// Export renders the records matching the list filters in the requested
// format (default excel).
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := constants.ExportExcel
	if s := q.Get("format"); s != "" {
		f, ok := constants.CanonicalExportFormat(s)
		if !ok {
			msg := "format must be one of " + strings.Join(constants.ExportFormatsAsStrings(), ", ")
			writeError(w, r, common.NewAppError(common.CodeInvalidInput, msg, common.ErrInvalidInput), nil)
			return
		}
		format = f
	}
	filter, err := filterFromQuery(q, h.Extractor.Options())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	recs, err := h.Records.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, common.PersistenceError("list records", err), nil)
		return
	}
	art, err := h.Exporter.Export(r.Context(), entity.Records(recs), format)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": art.Filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}
