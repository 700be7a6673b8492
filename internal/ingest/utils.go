package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
)

// AllowedExt reports whether files with ext can be extracted.
func AllowedExt(ext string) bool {
	return constants.Allowed(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return base != "." && strings.HasPrefix(base, ".")
}
