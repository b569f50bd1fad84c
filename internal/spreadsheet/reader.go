// Package spreadsheet turns uploaded settlement and master files into raw
// records and renders analysis result tables back into workbooks. Original
// header text is preserved verbatim; all interpretation happens in the
// engine's field resolver.
package spreadsheet

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sellerledger/backend-go/internal/engine"
)

// ReadRecords parses the first sheet of a spreadsheet file into raw records.
// CSV and XLSX are supported, chosen by file extension.
func ReadRecords(r io.Reader, filename string) ([]engine.RawRecord, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return readCSV(r)
	case ".xlsx", ".xlsm", ".xls":
		return readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file extension for %s (csv and xlsx are supported)", filename)
	}
}

func readXLSX(r io.Reader) ([]engine.RawRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	var header []string
	records := make([]engine.RawRecord, 0)

	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if header == nil {
			header = cells
			continue
		}
		records = append(records, recordFromCells(header, cells))
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func readCSV(r io.Reader) ([]engine.RawRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return []engine.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	records := make([]engine.RawRecord, 0)
	for {
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		records = append(records, recordFromCells(header, cells))
	}

	return records, nil
}

// recordFromCells zips one data row with the header. Missing trailing cells
// become nil so absence stays distinguishable from an empty string; columns
// with an empty header cell are skipped.
func recordFromCells(header []string, cells []string) engine.RawRecord {
	rec := make(engine.RawRecord, len(header))
	for i, name := range header {
		if name == "" {
			continue
		}
		if i < len(cells) {
			rec[name] = cells[i]
		} else {
			rec[name] = nil
		}
	}
	return rec
}
