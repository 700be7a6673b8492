// Package sheet reads tabular uploads (workbooks, delimited text, HTML
// tables) into rows of trimmed cell strings.
package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/fleetops-tracker/constants"
)

var ErrUnsupported = errors.New("unsupported sheet format")

// Read decodes data according to ext. Trailing empty cells and fully empty
// rows are dropped.
func Read(data []byte, ext string) ([][]string, error) {
	ext = constants.NormalizeExt(ext)
	var (
		rows [][]string
		err  error
	)
	switch ext {
	case "xlsx", "xlsm":
		rows, err = readWorkbook(data)
	case "csv", "tsv":
		rows, err = readDelimited(data, ext == "tsv")
	case "html", "htm":
		rows, err = readHTML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ext, err)
	}
	return compact(rows), nil
}

func compact(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		last := -1
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
			if row[i] != "" {
				last = i
			}
		}
		if last < 0 {
			continue
		}
		out = append(out, row[:last+1])
	}
	return out
}
