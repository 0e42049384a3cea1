package exporter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xformhub/xform-app-sheets/xlsform"
)

// Synthetic fields appended to every section's columns to link repeat group
// rows back to their parent rows.
const (
	Index           = "_index"
	ParentIndex     = "_parent_index"
	ParentTableName = "_parent_table_name"
)

// FlattenedSheetTitle is the worksheet receiving the flattened dataset when
// repeats are flattened into a single table.
const FlattenedSheetTitle = "raw"

// Worksheet titles are capped so that exports round-trip into .xls tooling.
const maxSheetTitle = 31

var extraFields = []string{Index, ParentIndex, ParentTableName}

// Submission is a single decoded survey response. Fields are keyed by their
// full xpath; repeat groups are lists of child submissions.
type Submission = map[string]any

// Config is the per-export configuration.
type Config struct {
	SpreadsheetTitle      string
	ShareWith             string
	FlattenRepeats        bool
	ExportXLSForm         bool
	GroupDelimiter        string
	SplitSelectMultiples  bool
	BinarySelectMultiples bool
}

// Client is the remote spreadsheet surface the builder writes to.
type Client interface {
	Create(ctx context.Context, title string) (string, error)
	Share(ctx context.Context, spreadsheetID, email, role string) error
	AddWorksheet(ctx context.Context, spreadsheetID, title string, rows, cols int64) error
	UpdateRow(ctx context.Context, spreadsheetID, worksheet string, index int64, values []any) error
	AppendRows(ctx context.Context, spreadsheetID, worksheet string, rows [][]any) error
	WriteRows(ctx context.Context, spreadsheetID, worksheet string, startRow int64, rows [][]any) error
	DeleteDefaultWorksheet(ctx context.Context, spreadsheetID string) error
}

type section struct {
	name     string
	title    string
	fields   []string
	headers  []string
	elements []xlsform.Element
}

// Builder maps a survey dataset onto a new spreadsheet: one worksheet per
// section, or a single flattened worksheet.
type Builder struct {
	schema   *xlsform.Schema
	cfg      Config
	sections []section
	titles   map[string]string
}

// NewBuilder prepares the per-section field lists and worksheet titles for a
// schema. Titles are unique per spreadsheet: slashes become underscores and
// collisions get numeric suffixes.
func NewBuilder(schema *xlsform.Schema, cfg Config) *Builder {
	if cfg.GroupDelimiter == "" {
		cfg.GroupDelimiter = "/"
	}

	if cfg.SpreadsheetTitle == "" {
		cfg.SpreadsheetTitle = schema.Title
	}

	b := Builder{
		schema: schema,
		cfg:    cfg,
		titles: map[string]string{},
	}

	used := []string{}
	for _, s := range schema.Sections {
		title := worksheetTitle(strings.ReplaceAll(s.Name, "/", "_"), used)
		used = append(used, title)
		b.titles[s.Name] = title

		fields := []string{}
		headers := []string{}
		for _, e := range s.Elements {
			fields = append(fields, e.XPath)
			headers = append(headers, b.header(e.XPath))

			if cfg.SplitSelectMultiples && e.Type == "select all that apply" {
				for _, choice := range schema.Choices[e.ListName] {
					xpath := e.XPath + "/" + choice.Name
					fields = append(fields, xpath)
					headers = append(headers, b.header(xpath))
				}
			}
		}

		fields = append(fields, extraFields...)
		headers = append(headers, extraFields...)

		b.sections = append(b.sections, section{
			name:     s.Name,
			title:    title,
			fields:   fields,
			headers:  headers,
			elements: s.Elements,
		})
	}

	return &b
}

// WorksheetTitle returns the generated worksheet title for a section.
func (b *Builder) WorksheetTitle(section string) (string, bool) {
	title, ok := b.titles[section]
	return title, ok
}

// Export runs the full job: create the spreadsheet, share it, write the
// dataset, optionally copy the form definition sheets, and remove the default
// worksheet. Returns the new spreadsheet ID.
func (b *Builder) Export(ctx context.Context, client Client, data []Submission) (string, error) {
	spreadsheetID, err := client.Create(ctx, b.cfg.SpreadsheetTitle)
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet (%w)", err)
	}

	if b.cfg.ShareWith != "" {
		if err := client.Share(ctx, spreadsheetID, b.cfg.ShareWith, "writer"); err != nil {
			return "", fmt.Errorf("unable to share spreadsheet with %s (%w)", b.cfg.ShareWith, err)
		}
	}

	if b.cfg.FlattenRepeats {
		err = b.exportFlattened(ctx, client, spreadsheetID, data)
	} else {
		err = b.exportTabular(ctx, client, spreadsheetID, data)
	}

	if err != nil {
		return "", err
	}

	if b.cfg.ExportXLSForm {
		if err := b.insertXLSForm(ctx, client, spreadsheetID); err != nil {
			return "", err
		}
	}

	if err := client.DeleteDefaultWorksheet(ctx, spreadsheetID); err != nil {
		return "", err
	}

	return spreadsheetID, nil
}

// exportTabular writes one worksheet per section: header row first, then the
// section's rows in submission order.
func (b *Builder) exportTabular(ctx context.Context, client Client, spreadsheetID string, data []Submission) error {
	for _, s := range b.sections {
		if err := client.AddWorksheet(ctx, spreadsheetID, s.title, 1, int64(len(s.fields))); err != nil {
			return fmt.Errorf("unable to create worksheet '%s' (%w)", s.title, err)
		}
	}

	for _, s := range b.sections {
		header := make([]any, len(s.headers))
		for i, h := range s.headers {
			header[i] = h
		}

		if err := client.UpdateRow(ctx, spreadsheetID, s.title, 1, header); err != nil {
			return fmt.Errorf("unable to write headers to '%s' (%w)", s.title, err)
		}
	}

	rows := map[string][][]any{}
	indices := map[string]int{}

	for i, submission := range data {
		output := map[string][]Submission{}
		joinExport(submission, i+1, -1, b.schema.IDString, "", indices, output)

		for six := range b.sections {
			s := &b.sections[six]
			for _, row := range output[s.name] {
				b.preProcessRow(row, s)
				rows[s.name] = append(rows[s.name], b.rowValues(s, row))
			}
		}
	}

	for _, s := range b.sections {
		if len(rows[s.name]) == 0 {
			continue
		}

		if err := client.AppendRows(ctx, spreadsheetID, s.title, rows[s.name]); err != nil {
			return fmt.Errorf("unable to write rows to '%s' (%w)", s.title, err)
		}
	}

	return nil
}

// insertXLSForm copies the form definition sheets (survey, choices, ...) into
// the exported spreadsheet.
func (b *Builder) insertXLSForm(ctx context.Context, client Client, spreadsheetID string) error {
	if b.schema.Workbook == nil {
		return nil
	}

	used := make([]string, 0, len(b.titles)+1)
	for _, title := range b.titles {
		used = append(used, title)
	}

	if b.cfg.FlattenRepeats {
		used = append(used, FlattenedSheetTitle)
	}

	for _, sheet := range b.schema.Workbook.Sheets {
		if len(sheet.Rows) == 0 {
			continue
		}

		cols := 0
		for _, row := range sheet.Rows {
			if len(row) > cols {
				cols = len(row)
			}
		}

		title := worksheetTitle(sheet.Name, used)
		used = append(used, title)

		if err := client.AddWorksheet(ctx, spreadsheetID, title, int64(len(sheet.Rows)), int64(cols)); err != nil {
			return fmt.Errorf("unable to create worksheet '%s' (%w)", title, err)
		}

		rows := make([][]any, len(sheet.Rows))
		for i, row := range sheet.Rows {
			values := make([]any, len(row))
			for j, v := range row {
				values[j] = v
			}
			rows[i] = values
		}

		if err := client.WriteRows(ctx, spreadsheetID, title, 1, rows); err != nil {
			return fmt.Errorf("unable to write worksheet '%s' (%w)", title, err)
		}
	}

	return nil
}

// joinExport splits a hierarchical submission into per-section rows. Repeat
// group children become rows of their own section, tagged with a running
// 1-based index, the parent row's index and the parent section name. The
// running indices are shared across the whole dataset.
func joinExport(data Submission, index, parentIndex int, name, parent string, indices map[string]int, output map[string][]Submission) {
	row := Submission{}

	for key, value := range data {
		if children, ok := repeatValue(value); ok {
			for _, child := range children {
				indices[key]++
				joinExport(child, indices[key], index, key, name, indices, output)
			}
			continue
		}

		row[key] = value
	}

	row[Index] = index
	row[ParentIndex] = parentIndex
	if parent != "" {
		row[ParentTableName] = parent
	}

	output[name] = append(output[name], row)
}

// repeatValue reports whether a submission value is repeat group data - a
// non-empty list of child submissions.
func repeatValue(value any) ([]Submission, bool) {
	list, ok := value.([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}

	children := make([]Submission, len(list))
	for i, v := range list {
		child, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		children[i] = child
	}

	return children, true
}

// preProcessRow coerces values to their declared types and expands
// select-multiple answers into their per-choice columns.
func (b *Builder) preProcessRow(row Submission, s *section) {
	for _, e := range s.elements {
		value, ok := row[e.XPath]
		if !ok {
			continue
		}

		if text, ok := value.(string); ok && text == "n/a" {
			row[e.XPath] = ""
			continue
		}

		switch e.Type {
		case "integer":
			row[e.XPath] = toInt(value)

		case "decimal":
			row[e.XPath] = toDecimal(value)

		case "select all that apply":
			if b.cfg.SplitSelectMultiples {
				b.splitSelectMultiple(row, e)
			}
		}
	}
}

// splitSelectMultiple fans a space-separated answer out into one column per
// choice. Columns are True/False, or 1/0 when binary values are configured.
func (b *Builder) splitSelectMultiple(row Submission, e xlsform.Element) {
	selected := map[string]bool{}
	if text, ok := row[e.XPath].(string); ok {
		for _, v := range strings.Fields(text) {
			selected[v] = true
		}
	}

	for _, choice := range b.schema.Choices[e.ListName] {
		xpath := e.XPath + "/" + choice.Name
		if b.cfg.BinarySelectMultiples {
			if selected[choice.Name] {
				row[xpath] = 1
			} else {
				row[xpath] = 0
			}
		} else if selected[choice.Name] {
			row[xpath] = "True"
		} else {
			row[xpath] = "False"
		}
	}
}

// rowValues aligns a row onto the section's field order, rewriting the parent
// table reference to the generated worksheet title.
func (b *Builder) rowValues(s *section, row Submission) []any {
	if parent, ok := row[ParentTableName]; ok {
		row[ParentTableName] = b.titles[fmt.Sprint(parent)]
	}

	values := make([]any, len(s.fields))
	for i, field := range s.fields {
		if v, ok := row[field]; ok && v != nil {
			values[i] = v
		} else {
			values[i] = ""
		}
	}

	return values
}

func (b *Builder) header(xpath string) string {
	return strings.ReplaceAll(xpath, "/", b.cfg.GroupDelimiter)
}

func toInt(value any) any {
	switch v := value.(type) {
	case float64:
		return int64(v)

	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}

	return value
}

func toDecimal(value any) any {
	if v, ok := value.(string); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}

	return value
}

// worksheetTitle caps a candidate title and suffixes it with a counter until
// it is unique among the titles already assigned.
func worksheetTitle(name string, existing []string) string {
	title := truncate(name, maxSheetTitle)
	if !contains(existing, title) {
		return title
	}

	for i := 1; ; i++ {
		suffix := strconv.Itoa(i)
		candidate := truncate(name, maxSheetTitle-len(suffix)) + suffix
		if !contains(existing, candidate) {
			return candidate
		}
	}
}

func truncate(v string, n int) string {
	runes := []rune(v)
	if len(runes) <= n {
		return v
	}

	return string(runes[:n])
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}

	return false
}
