package spreadsheet

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// maxSheetNameLen is the xlsx sheet-name limit; longer table names are
// truncated on export.
const maxSheetNameLen = 31

// Sheet is one named result table ready for export.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

// BuildWorkbook renders the sheets into a new workbook, one sheet per table
// in the given order. Empty tables get a single "No data" placeholder row so
// every expected sheet exists in the output file.
func BuildWorkbook(sheets []Sheet) (*excelize.File, error) {
	f := excelize.NewFile()

	for i, sheet := range sheets {
		name := sheet.Name
		if len(name) > maxSheetNameLen {
			name = name[:maxSheetNameLen]
		}

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return nil, fmt.Errorf("failed to rename sheet %s: %w", name, err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
			}
		}

		header := sheet.Header
		rows := sheet.Rows
		if len(rows) == 0 {
			header = []string{"message"}
			rows = [][]any{{"No data"}}
		}

		headerCells := make([]any, len(header))
		for j, h := range header {
			headerCells[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &headerCells); err != nil {
			return nil, fmt.Errorf("failed to write header of %s: %w", name, err)
		}

		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return nil, fmt.Errorf("failed to address row %d of %s: %w", r+2, name, err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				return nil, fmt.Errorf("failed to write row %d of %s: %w", r+2, name, err)
			}
		}
	}

	return f, nil
}

// WorkbookBytes builds the workbook and serializes it.
func WorkbookBytes(sheets []Sheet) ([]byte, error) {
	f, err := BuildWorkbook(sheets)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
