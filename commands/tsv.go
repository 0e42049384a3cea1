package commands

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"

	gsheets "google.golang.org/api/sheets/v4"
)

var reArea = regexp.MustCompile(`(.+?)!([a-zA-Z]+)([0-9]+):([a-zA-Z]+)([0-9]+)?`)

// sheetToTSV writes a retrieved range as a TSV file, first row included.
func sheetToTSV(f io.Writer, data *gsheets.ValueRange) error {
	if len(data.Values) == 0 {
		return fmt.Errorf("empty sheet")
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'

	for _, row := range data.Values {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprintf("%v", v)
		}

		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()

	return w.Error()
}

// tsvToSheet converts a TSV file into a pair of ranged value blocks (header
// row and data rows) anchored at the top-left of the area.
func tsvToSheet(f io.Reader, area string) (*gsheets.ValueRange, *gsheets.ValueRange, error) {
	match := reArea.FindStringSubmatch(area)
	if len(match) < 5 {
		return nil, nil, fmt.Errorf("invalid spreadsheet range '%s'", area)
	}

	name := match[1]
	left := match[2]
	top, _ := strconv.Atoi(match[3])
	right := match[4]

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if len(records) == 0 {
		return nil, nil, fmt.Errorf("TSV file is empty")
	}

	h := make([]any, len(records[0]))
	for i, v := range records[0] {
		h[i] = v
	}

	header := gsheets.ValueRange{
		Range:  fmt.Sprintf("%s!%s%v:%s%v", name, left, top, right, top),
		Values: [][]any{h},
	}

	rows := make([][]any, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make([]any, len(record))
		for i, v := range record {
			row[i] = v
		}

		rows = append(rows, row)
	}

	data := gsheets.ValueRange{
		Range:  fmt.Sprintf("%s!%s%v:%s", name, left, top+1, right),
		Values: rows,
	}

	return &header, &data, nil
}
