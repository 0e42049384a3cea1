package xlsform

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is a single worksheet from a form definition workbook.
type Sheet struct {
	Name string
	Rows [][]string
}

// Workbook is a form definition file (survey, choices, settings, ...) read
// into plain rows.
type Workbook struct {
	Sheets []Sheet
}

// ReadWorkbook reads an XLSForm definition. Both the .xlsx layout and the
// single-file CSV layout (sheet name rows followed by indented content rows)
// are supported.
func ReadWorkbook(path string) (*Workbook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return readCSV(f)
	}

	return readXLSX(f)
}

func readXLSX(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid .xlsx file (%v)", err)
	}

	defer f.Close()

	workbook := Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("error reading sheet '%s' (%v)", name, err)
		}

		workbook.Sheets = append(workbook.Sheets, Sheet{
			Name: name,
			Rows: rows,
		})
	}

	return &workbook, nil
}

// readCSV unpacks the single-file CSV form layout: a row with only its first
// cell populated names a sheet, subsequent rows with an empty first cell are
// that sheet's content (shifted left by one column).
func readCSV(r io.Reader) (*Workbook, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	workbook := Workbook{}
	var current *Sheet

	for _, record := range records {
		if len(record) == 0 {
			continue
		}

		if record[0] != "" {
			workbook.Sheets = append(workbook.Sheets, Sheet{Name: strings.TrimSpace(record[0])})
			current = &workbook.Sheets[len(workbook.Sheets)-1]
			continue
		}

		if current == nil {
			return nil, fmt.Errorf("invalid CSV form definition - content before any sheet name")
		}

		current.Rows = append(current.Rows, record[1:])
	}

	if len(workbook.Sheets) == 0 {
		return nil, fmt.Errorf("empty form definition")
	}

	return &workbook, nil
}

// Sheet returns the named worksheet, matching case-insensitively.
func (w *Workbook) Sheet(name string) (*Sheet, bool) {
	for i := range w.Sheets {
		if strings.EqualFold(w.Sheets[i].Name, name) {
			return &w.Sheets[i], true
		}
	}

	return nil, false
}

// cell returns the trimmed cell at the column, or "" when the row is short.
func cell(row []string, column int) string {
	if column < 0 || column >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[column])
}
