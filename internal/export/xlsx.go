package export

import (
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/fleetops-tracker/internal/extract"
)

const sheetName = "Schedule"

func renderXLSX(records []extract.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, bold)
	}

	for i, r := range records {
		rowNum := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowNum)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		// times and fleets stay text so "08:15" and "01234" survive as typed
		write(1, r.Time)
		write(2, r.FleetNumber)
		write(3, r.Confidence)
		write(4, r.Source)
		write(5, r.Validated)
	}

	_ = f.SetColWidth(sheetName, "A", "A", 10) // time
	_ = f.SetColWidth(sheetName, "B", "B", 14) // fleet
	_ = f.SetColWidth(sheetName, "C", "C", 12) // confidence
	_ = f.SetColWidth(sheetName, "D", "D", 14) // source
	_ = f.SetColWidth(sheetName, "E", "E", 11) // validated
	_ = f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
