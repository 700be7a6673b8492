package common

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes surfaced to API clients.
const (
	CodeRecognitionEmpty   = "RECOGNITION_EMPTY"
	CodeFormatInvalid      = "FORMAT_INVALID"
	CodeSourceReadFailure  = "SOURCE_READ_FAILURE"
	CodePersistenceFailure = "PERSISTENCE_FAILURE"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeConfig             = "CONFIG_ERROR"
	CodeInternal           = "INTERNAL"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
	ErrSourceRead   = errors.New("source read failed")
	ErrPersistence  = errors.New("persistence failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// SourceReadError marks a terminal failure to read one input file.
func SourceReadError(message string, cause error) *AppError {
	return NewAppError(CodeSourceReadFailure, message, errors.Join(ErrSourceRead, cause))
}

// PersistenceError marks a failed store call.
func PersistenceError(message string, cause error) *AppError {
	return NewAppError(CodePersistenceFailure, message, errors.Join(ErrPersistence, cause))
}

// RecognitionEmptyError is the recoverable "nothing recognized" outcome.
func RecognitionEmptyError() *AppError {
	return NewAppError(CodeRecognitionEmpty,
		"no schedule rows recognized; edit the text and retry", extract.ErrRecognitionEmpty)
}

// FormatInvalidError rejects a manual or imported record.
func FormatInvalidError(cause error) *AppError {
	return NewAppError(CodeFormatInvalid, "record does not match the time/fleet format", cause)
}

// ErrorCode returns the AppError code carried by err, classifying bare
// sentinels when no AppError is present.
func ErrorCode(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	if err == nil {
		return ""
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.NotFound:
			return CodeNotFound
		case codes.InvalidArgument:
			return CodeInvalidInput
		}
	}
	switch {
	case errors.Is(err, extract.ErrRecognitionEmpty):
		return CodeRecognitionEmpty
	case errors.Is(err, extract.ErrFormatInvalid):
		return CodeFormatInvalid
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrSourceRead):
		return CodeSourceReadFailure
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrDatabase):
		return CodePersistenceFailure
	}
	return CodeInternal
}

// HTTPStatus maps an error to the response status.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case "":
		return http.StatusOK
	case CodeRecognitionEmpty:
		return http.StatusUnprocessableEntity
	case CodeFormatInvalid, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeSourceReadFailure:
		return http.StatusUnprocessableEntity
	case CodePersistenceFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// GRPCStatus converts err into a gRPC status error.
func GRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var c codes.Code
	switch ErrorCode(err) {
	case CodeRecognitionEmpty:
		c = codes.FailedPrecondition
	case CodeFormatInvalid, CodeInvalidInput:
		c = codes.InvalidArgument
	case CodeNotFound:
		c = codes.NotFound
	case CodeSourceReadFailure:
		c = codes.DataLoss
	case CodePersistenceFailure:
		c = codes.Unavailable
	default:
		c = codes.Internal
	}
	return status.Error(c, err.Error())
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}
