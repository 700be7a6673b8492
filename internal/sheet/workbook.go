package sheet

import (
	"bytes"

	"github.com/xuri/excelize/v2"
)

// readWorkbook returns the rows of the first sheet holding any value.
func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, err
		}
		if len(compact(rows)) > 0 {
			return rows, nil
		}
	}
	return nil, nil
}
