package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/fleetops-tracker/internal/async"
	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/entity"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
	"github.com/joseph-ayodele/fleetops-tracker/internal/ingest"
)

const maxPasteBytes = 1 << 20

type extractTextRequest struct {
	Text string `json:"text"`
}

// ExtractText runs the extractor over pasted text. Nothing is stored; the
// client saves reviewed rows through POST /records.
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	var req extractTextRequest
	if err := decodeJSON(w, r, maxPasteBytes, &req); err != nil {
		writeError(w, r, err, nil)
		return
	}
	v := common.NewValidator().Field("text", req.Text, common.Required)
	if err := v.Error(); err != nil {
		writeError(w, r, err, nil)
		return
	}

	res, err := h.Extractor.ExtractText(r.Context(), req.Text)
	if err != nil {
		writeError(w, r, err, &res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type uploadResponse struct {
	File         ingest.IngestionResult  `json:"file"`
	JobID        *uuid.UUID              `json:"job_id,omitempty"`
	Status       string                  `json:"status"`
	Records      []entity.ScheduleRecord `json:"records"`
	StrategyUsed string                  `json:"strategy_used,omitempty"`
	Warnings     []string                `json:"warnings,omitempty"`
}

// ExtractUpload stores a multipart "file" and extracts it. With async=true
// and a queue configured the file is queued and 202 is returned. Uploading
// content that already has records returns them unless force=true.
func (h *Handler) ExtractUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, h.Config.MaxUploadBytes+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			err = common.NewAppError(common.CodeInvalidInput, "upload too large", common.ErrInvalidInput)
		} else {
			err = common.NewAppError(common.CodeInvalidInput, "multipart field \"file\" is required", common.ErrInvalidInput)
		}
		writeError(w, r, err, nil)
		return
	}
	defer file.Close()

	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	background, _ := strconv.ParseBool(r.URL.Query().Get("async"))

	stored, err := h.Ingestor.IngestReader(ctx, header.Filename, file)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedExt) {
			err = common.NewAppError(common.CodeInvalidInput, err.Error(), common.ErrInvalidInput)
		}
		writeError(w, r, err, nil)
		return
	}
	resp := uploadResponse{File: stored, Records: []entity.ScheduleRecord{}}

	if stored.Deduplicated && !force {
		fileID := stored.FileID
		existing, err := h.Records.List(ctx, entity.RecordFilter{FileID: &fileID})
		if err != nil {
			writeError(w, r, common.PersistenceError("list records", err), nil)
			return
		}
		if len(existing) > 0 {
			resp.Status = "DEDUPLICATED"
			resp.Records = existing
			writeJSON(w, http.StatusOK, resp)
			return
		}
	}

	if background && h.Queue != nil {
		job := async.Job{FileID: stored.FileID, Force: force, TraceID: common.RequestIDFromContext(ctx)}
		if err := h.Queue.Enqueue(ctx, job); err != nil {
			writeError(w, r, common.NewAppError(common.CodeInternal, "enqueue", err), nil)
			return
		}
		resp.Status = "QUEUED"
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	out, err := h.Extractor.ProcessFile(ctx, stored.FileID, nil)
	if out.JobID != uuid.Nil {
		resp.JobID = &out.JobID
	}
	if err != nil {
		var partial *extract.Result
		if out.JobID != uuid.Nil {
			partial = &out.Result
		}
		writeError(w, r, err, partial)
		return
	}
	resp.Status = "EXTRACT_OK"
	resp.Records = out.Saved
	resp.StrategyUsed = out.Result.StrategyUsed
	resp.Warnings = out.Result.Warnings
	writeJSON(w, http.StatusCreated, resp)
}
