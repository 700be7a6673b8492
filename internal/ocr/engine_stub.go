//go:build !ocr

package ocr

import "errors"

// ErrGosseractNotEnabled is returned when the in-process engine was not
// compiled in. Rebuild with -tags ocr to enable it.
var ErrGosseractNotEnabled = errors.New("gosseract engine not enabled; rebuild with -tags ocr")

// NewGosseractEngine reports that in-process OCR is unavailable.
func NewGosseractEngine(Config) (Engine, func() error, error) {
	return nil, nil, ErrGosseractNotEnabled
}
