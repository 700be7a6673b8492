package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/fleetops-tracker/internal/common"
	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

const retryHint = "no schedule rows were recognized; edit the text and retry, or add the rows manually"

// errorBody is the JSON shape of every non-2xx response.
type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Hint    string          `json:"hint,omitempty"`
	Result  *extract.Result `json:"result,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeError maps err onto its HTTP status. res, when set, is the partial
// result that is still handed back (empty recognition, failed save).
func writeError(w http.ResponseWriter, r *http.Request, err error, res *extract.Result) {
	code := common.ErrorCode(err)
	if code == "" {
		code = common.CodeInternal
	}
	httpStatus := common.HTTPStatus(err)

	body := errorBody{Code: code, Message: errorMessage(err, httpStatus < http.StatusInternalServerError), Result: res}
	if code == common.CodeRecognitionEmpty {
		body.Hint = retryHint
	}

	logger := common.LoggerFromContext(r.Context())
	if httpStatus >= http.StatusInternalServerError {
		logger.Error("http.request.failed", "path", r.URL.Path, "code", code, "error", err)
	} else {
		logger.Info("http.request.rejected", "path", r.URL.Path, "code", code, "error", err)
	}
	writeJSON(w, httpStatus, body)
}

// errorMessage hides causes of server-side failures from clients.
func errorMessage(err error, withCause bool) string {
	var ae *common.AppError
	if errors.As(err, &ae) {
		if !withCause || ae.Cause == nil || ae.Cause == common.ErrInvalidInput || ae.Cause == common.ErrValidation {
			return ae.Message
		}
		return ae.Message + ": " + ae.Cause.Error()
	}
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

// decodeJSON reads one JSON value from a size-capped body.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return common.NewAppError(common.CodeInvalidInput, "request body too large", common.ErrInvalidInput)
		}
		return common.NewAppError(common.CodeInvalidInput, "read body", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return common.NewAppError(common.CodeInvalidInput, "malformed JSON: "+err.Error(), common.ErrInvalidInput)
	}
	return nil
}
