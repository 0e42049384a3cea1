package exporter

import (
	"context"
	"fmt"
	"strings"
)

// exportFlattened writes the whole dataset to a single worksheet, expanding
// repeat group instances into indexed columns (section[1]/field, ...).
func (b *Builder) exportFlattened(ctx context.Context, client Client, spreadsheetID string, data []Submission) error {
	header, rows := b.Flatten(data)
	if len(rows) == 0 {
		return nil
	}

	if err := client.AddWorksheet(ctx, spreadsheetID, FlattenedSheetTitle, int64(len(rows)+1), int64(len(header))); err != nil {
		return fmt.Errorf("unable to create worksheet '%s' (%w)", FlattenedSheetTitle, err)
	}

	values := make([][]any, 0, len(rows)+1)

	h := make([]any, len(header))
	for i, v := range header {
		h[i] = v
	}
	values = append(values, h)
	values = append(values, rows...)

	if err := client.WriteRows(ctx, spreadsheetID, FlattenedSheetTitle, 1, values); err != nil {
		return fmt.Errorf("unable to write worksheet '%s' (%w)", FlattenedSheetTitle, err)
	}

	return nil
}

// Flatten builds the rectangular form of the dataset: one row per submission,
// repeat instances expanded into indexed columns sized by the widest
// occurrence of each repeat across the dataset.
func (b *Builder) Flatten(data []Submission) ([]string, [][]any) {
	if len(data) == 0 {
		return nil, nil
	}

	counts := map[string]int{}
	for _, submission := range data {
		countRepeats(submission, counts)
	}

	columns := b.flattenColumns(counts)

	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ReplaceAll(c, "/", b.cfg.GroupDelimiter)
	}

	rows := make([][]any, 0, len(data))
	for _, submission := range data {
		flat := Submission{}
		flattenInto(flat, submission, func(s string) string { return s })

		row := make([]any, len(columns))
		for i, c := range columns {
			v, ok := flat[c]
			if !ok || v == nil || v == "n/a" {
				row[i] = ""
			} else {
				row[i] = v
			}
		}

		rows = append(rows, row)
	}

	return header, rows
}

// flattenColumns produces the column list in document order: the main
// section's fields, then each repeat group's fields per instance, nested
// repeats expanding within each parent instance.
func (b *Builder) flattenColumns(counts map[string]int) []string {
	columns := []string{}

	main := b.sections[0]
	for _, e := range main.elements {
		columns = append(columns, e.XPath)
	}

	identity := func(s string) string { return s }
	for _, child := range b.childSections(main.name) {
		columns = append(columns, b.repeatColumns(child, counts, identity)...)
	}

	return columns
}

func (b *Builder) repeatColumns(name string, counts map[string]int, rename func(string) string) []string {
	sec, ok := b.schema.Section(name)
	if !ok {
		return nil
	}

	columns := []string{}
	for i := 1; i <= counts[name]; i++ {
		indexed := fmt.Sprintf("%s[%d]", name, i)
		inner := func(s string) string {
			return rename(reprefix(s, name, indexed))
		}

		for _, e := range sec.Elements {
			columns = append(columns, inner(e.XPath))
		}

		for _, child := range b.childSections(name) {
			columns = append(columns, b.repeatColumns(child, counts, inner)...)
		}
	}

	return columns
}

// childSections returns the names of the repeat sections nested directly
// under the named section, in document order.
func (b *Builder) childSections(name string) []string {
	children := []string{}
	for _, s := range b.sections[1:] {
		if s.name != name && b.parentSection(s.name) == name {
			children = append(children, s.name)
		}
	}

	return children
}

// parentSection resolves the section a repeat nests under: the longest other
// repeat section whose name prefixes it, else the main section.
func (b *Builder) parentSection(name string) string {
	parent := b.sections[0].name
	best := -1

	for _, t := range b.sections[1:] {
		if t.name != name && strings.HasPrefix(name, t.name+"/") && len(t.name) > best {
			parent, best = t.name, len(t.name)
		}
	}

	return parent
}

// flattenInto walks a submission, renaming repeat-scoped keys through the
// accumulated instance indices and collecting scalars.
func flattenInto(out Submission, data Submission, rename func(string) string) {
	for key, value := range data {
		if children, ok := repeatValue(value); ok {
			for i, child := range children {
				indexed := fmt.Sprintf("%s[%d]", key, i+1)
				inner := func(s string) string {
					return rename(reprefix(s, key, indexed))
				}
				flattenInto(out, child, inner)
			}
			continue
		}

		out[rename(key)] = value
	}
}

// reprefix rewrites the leading xpath segment(s) 'from' to 'to'.
func reprefix(s, from, to string) string {
	if s == from {
		return to
	}

	if strings.HasPrefix(s, from+"/") {
		return to + s[len(from):]
	}

	return s
}

func countRepeats(data Submission, counts map[string]int) {
	for key, value := range data {
		if children, ok := repeatValue(value); ok {
			if len(children) > counts[key] {
				counts[key] = len(children)
			}

			for _, child := range children {
				countRepeats(child, counts)
			}
		}
	}
}
