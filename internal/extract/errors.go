package extract

import "errors"

var (
	// ErrRecognitionEmpty means no strategy produced a valid pair. Callers
	// should offer manual editing and retry rather than fail.
	ErrRecognitionEmpty = errors.New("no schedule records recognized")
	// ErrFormatInvalid means a time or fleet number failed validation.
	ErrFormatInvalid = errors.New("invalid record format")
)
