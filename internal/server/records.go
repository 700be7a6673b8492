package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
	"github.com/joseph-ayodele/fleetops-tracker/internal/llm"
)

const (
	maxImportBytes   = 4 << 20
	maxImportRecords = 5000
	maxListLimit     = 10000
)

type recordsResponse struct {
	Records []entity.ScheduleRecord `json:"records"`
	Count   int                     `json:"count"`
}

// filterFromQuery reads file_id, job_id, validated, from, to, fleet and
// limit.
func filterFromQuery(q url.Values, opts extract.Options) (entity.RecordFilter, error) {
	var f entity.RecordFilter
	v := common.NewValidator().
		Field("file_id", q.Get("file_id"), common.OptionalUUID).
		Field("job_id", q.Get("job_id"), common.OptionalUUID).
		Field("validated", q.Get("validated"), common.OneOf("", "true", "false")).
		Field("fleet", q.Get("fleet"), common.MaxLength(16)).
		Field("limit", q.Get("limit"), common.IntRange(1, maxListLimit))
	if err := v.Error(); err != nil {
		return f, err
	}

	if s := q.Get("file_id"); s != "" {
		id := uuid.MustParse(s)
		f.FileID = &id
	}
	if s := q.Get("job_id"); s != "" {
		id := uuid.MustParse(s)
		f.JobID = &id
	}
	if s := q.Get("validated"); s != "" {
		b := strings.EqualFold(s, "true")
		f.Validated = &b
	}
	for _, p := range []struct {
		key string
		dst *string
	}{{"from", &f.From}, {"to", &f.To}} {
		s := q.Get(p.key)
		if s == "" {
			continue
		}
		t, ok := extract.NormalizeTime(s, false)
		if !ok {
			return f, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("%s: invalid time %q", p.key, s), common.ErrInvalidInput)
		}
		*p.dst = t
	}
	if s := strings.TrimSpace(q.Get("fleet")); s != "" {
		fleet, ok := extract.NormalizeFleet(s, opts.FleetFormat)
		if !ok {
			return f, common.NewAppError(common.CodeInvalidInput, fmt.Sprintf("fleet: invalid fleet number %q", s), common.ErrInvalidInput)
		}
		f.Fleet = fleet
	}
	if s := q.Get("limit"); s != "" {
		f.Limit, _ = strconv.Atoi(s)
	}
	return f, nil
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query(), h.Extractor.Options())
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	recs, err := h.Records.List(r.Context(), f)
	if err != nil {
		writeError(w, r, common.PersistenceError("list records", err), nil)
		return
	}
	writeJSON(w, http.StatusOK, recordsResponse{Records: recs, Count: len(recs)})
}

// importSchemaMap describes the POST /records body: reviewed rows coming
// back from the client, optionally keeping their original scoring.
func importSchemaMap() map[string]any {
	record := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"time":         map[string]any{"type": "string", "minLength": 1, "maxLength": 16},
			"fleet_number": map[string]any{"type": "string", "minLength": 1, "maxLength": 16},
			"confidence":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"source": map[string]any{"enum": []string{
				extract.SourceSameLine, extract.SourceColumn, extract.SourceProximity,
				extract.SourceWholeText, extract.SourceManual, extract.SourceLLM,
			}},
			"validated": map[string]any{"type": "boolean"},
		},
		"required": []string{"time", "fleet_number"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"records": map[string]any{"type": "array", "minItems": 1, "maxItems": maxImportRecords, "items": record},
		},
		"required": []string{"records"},
	}
}

var importSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return llm.CompileSchema(importSchemaMap())
})

type importRecord struct {
	Time        string `json:"time"`
	FleetNumber string `json:"fleet_number"`
	Confidence  *int   `json:"confidence"`
	Source      string `json:"source"`
	Validated   *bool  `json:"validated"`
}

// ImportRecords stores a batch of client-reviewed rows. Every row is
// normalized; one invalid row rejects the whole batch.
func (h *Handler) ImportRecords(w http.ResponseWriter, r *http.Request) {
	var raw any
	if err := decodeJSON(w, r, maxImportBytes, &raw); err != nil {
		writeError(w, r, err, nil)
		return
	}
	schema, err := importSchema()
	if err != nil {
		writeError(w, r, common.NewAppError(common.CodeInternal, "compile import schema", err), nil)
		return
	}
	if err := schema.Validate(raw); err != nil {
		writeError(w, r, common.NewAppError(common.CodeInvalidInput, err.Error(), common.ErrValidation), nil)
		return
	}

	// re-decode into typed rows; the schema already vouched for the shape
	data, _ := json.Marshal(raw)
	var body struct {
		Records []importRecord `json:"records"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		writeError(w, r, common.NewAppError(common.CodeInvalidInput, err.Error(), common.ErrInvalidInput), nil)
		return
	}

	opts := h.Extractor.Options()
	recs := make([]extract.Record, 0, len(body.Records))
	var invalid []string
	for i, in := range body.Records {
		rec, err := extract.Manual(extract.ManualInput{Time: in.Time, FleetNumber: in.FleetNumber}, opts)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("records[%d]: %v", i, err))
			continue
		}
		if in.Confidence != nil {
			rec.Confidence = *in.Confidence
			rec.Validated = rec.Confidence >= extract.AutoValidateThreshold
		}
		if in.Source != "" {
			rec.Source = in.Source
		}
		if in.Validated != nil {
			rec.Validated = *in.Validated
		}
		recs = append(recs, rec)
	}
	if len(invalid) > 0 {
		err := common.NewAppError(common.CodeFormatInvalid, strings.Join(invalid, "; "), extract.ErrFormatInvalid)
		writeError(w, r, err, nil)
		return
	}

	saved, err := h.Records.Save(r.Context(), nil, nil, extract.Deduplicate(recs))
	if err != nil {
		writeError(w, r, common.PersistenceError("save records", err), nil)
		return
	}
	h.logger.Info("records.import.ok", "received", len(body.Records), "saved", len(saved))
	writeJSON(w, http.StatusCreated, recordsResponse{Records: saved, Count: len(saved)})
}

func (h *Handler) CreateManualRecord(w http.ResponseWriter, r *http.Request) {
	var in extract.ManualInput
	if err := decodeJSON(w, r, maxPasteBytes, &in); err != nil {
		writeError(w, r, err, nil)
		return
	}
	v := common.NewValidator().
		Field("time", in.Time, common.Required, common.MaxLength(16)).
		Field("fleet_number", in.FleetNumber, common.Required, common.MaxLength(16))
	if err := v.Error(); err != nil {
		writeError(w, r, err, nil)
		return
	}
	rec, err := extract.Manual(in, h.Extractor.Options())
	if err != nil {
		writeError(w, r, common.FormatInvalidError(err), nil)
		return
	}
	saved, err := h.Records.Save(r.Context(), nil, nil, []extract.Record{rec})
	if err != nil {
		writeError(w, r, common.PersistenceError("save record", err), nil)
		return
	}
	writeJSON(w, http.StatusCreated, saved[0])
}

type patchRecordRequest struct {
	Time        *string `json:"time"`
	FleetNumber *string `json:"fleet_number"`
	Validated   *bool   `json:"validated"`
}

// UpdateRecord edits a stored row. Changing time or fleet number turns it
// into a manual, validated record.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	var req patchRecordRequest
	if err := decodeJSON(w, r, maxPasteBytes, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	ctx := r.Context()

	if req.Time == nil && req.FleetNumber == nil {
		if req.Validated == nil {
			writeError(w, r, common.NewAppError(common.CodeInvalidInput, "nothing to update", common.ErrInvalidInput), nil)
			return
		}
		if err := h.Records.SetValidated(ctx, id, *req.Validated); err != nil {
			writeError(w, r, repoError("update record", err), nil)
			return
		}
		rec, err := h.Records.Get(ctx, id)
		if err != nil {
			writeError(w, r, repoError("get record", err), nil)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	current, err := h.Records.Get(ctx, id)
	if err != nil {
		writeError(w, r, repoError("get record", err), nil)
		return
	}
	in := extract.ManualInput{Time: current.Time, FleetNumber: current.FleetNumber}
	if req.Time != nil {
		in.Time = *req.Time
	}
	if req.FleetNumber != nil {
		in.FleetNumber = *req.FleetNumber
	}
	rec, err := extract.Manual(in, h.Extractor.Options())
	if err != nil {
		writeError(w, r, common.FormatInvalidError(err), nil)
		return
	}
	if req.Validated != nil {
		rec.Validated = *req.Validated
	}
	updated, err := h.Records.Update(ctx, id, rec)
	if err != nil {
		writeError(w, r, repoError("update record", err), nil)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		writeError(w, r, err, nil)
		return
	}
	if err := h.Records.Delete(r.Context(), id); err != nil {
		writeError(w, r, repoError("delete record", err), nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func recordID(r *http.Request) (uuid.UUID, error) {
	s := chi.URLParam(r, "id")
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, common.NewAppError(common.CodeInvalidInput, "id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}

// repoError keeps NOT_FOUND visible and reports everything else as a
// persistence failure.
func repoError(msg string, err error) error {
	if common.ErrorCode(err) == common.CodeNotFound {
		return err
	}
	return common.PersistenceError(msg, err)
}
