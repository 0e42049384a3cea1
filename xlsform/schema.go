package xlsform

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Element is a single survey question, identified by its full xpath.
type Element struct {
	XPath    string
	Name     string
	Label    string
	Type     string
	ListName string
}

// Section is a group of questions exported to a single worksheet: the main
// form body, or the contents of a repeat group.
type Section struct {
	Name     string
	Elements []Element
}

// Choice is one entry in an XLSForm choice list.
type Choice struct {
	Name  string
	Label string
}

// Schema is the exportable structure of an XForm: one section for the main
// form plus one per repeat group, in document order.
type Schema struct {
	Title    string
	IDString string
	Sections []Section
	Choices  map[string][]Choice
	Workbook *Workbook
}

const (
	typeBeginGroup  = "begin group"
	typeEndGroup    = "end group"
	typeBeginRepeat = "begin repeat"
	typeEndRepeat   = "end repeat"
)

// Load reads a form definition file and builds its export schema.
func Load(path string) (*Schema, error) {
	workbook, err := ReadWorkbook(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	return Parse(workbook, name)
}

// Parse builds the export schema from a form definition workbook. The
// fallback name is used when the settings sheet does not provide a form id.
func Parse(workbook *Workbook, fallback string) (*Schema, error) {
	survey, ok := workbook.Sheet("survey")
	if !ok {
		return nil, fmt.Errorf("form definition has no 'survey' sheet")
	}

	schema := Schema{
		Title:    fallback,
		IDString: fallback,
		Choices:  map[string][]Choice{},
		Workbook: workbook,
	}

	if settings, ok := workbook.Sheet("settings"); ok {
		schema.applySettings(settings)
	}

	if choices, ok := workbook.Sheet("choices"); ok {
		schema.applyChoices(choices)
	}

	if err := schema.applySurvey(survey); err != nil {
		return nil, err
	}

	return &schema, nil
}

// Section returns the section with the given name.
func (s *Schema) Section(name string) (*Section, bool) {
	for i := range s.Sections {
		if s.Sections[i].Name == name {
			return &s.Sections[i], true
		}
	}

	return nil, false
}

func (s *Schema) applySettings(sheet *Sheet) {
	if len(sheet.Rows) < 2 {
		return
	}

	index := columns(sheet.Rows[0])
	row := sheet.Rows[1]

	if ix, ok := index["form_id"]; ok {
		if v := cell(row, ix); v != "" {
			s.IDString = v
		}
	}

	if ix, ok := index["form_title"]; ok {
		if v := cell(row, ix); v != "" {
			s.Title = v
		}
	}
}

func (s *Schema) applyChoices(sheet *Sheet) {
	if len(sheet.Rows) < 1 {
		return
	}

	index := columns(sheet.Rows[0])
	list, okList := index["list_name"]
	name, okName := index["name"]
	label := labelColumn(index)

	if !okList || !okName {
		return
	}

	for _, row := range sheet.Rows[1:] {
		k := cell(row, list)
		if k == "" {
			continue
		}

		choice := Choice{
			Name:  cell(row, name),
			Label: cell(row, label),
		}

		if choice.Label == "" {
			choice.Label = choice.Name
		}

		s.Choices[k] = append(s.Choices[k], choice)
	}
}

func (s *Schema) applySurvey(sheet *Sheet) error {
	if len(sheet.Rows) < 1 {
		return fmt.Errorf("'survey' sheet is empty")
	}

	index := columns(sheet.Rows[0])
	typeCol, ok := index["type"]
	if !ok {
		return fmt.Errorf("'survey' sheet has no 'type' column")
	}

	nameCol, ok := index["name"]
	if !ok {
		return fmt.Errorf("'survey' sheet has no 'name' column")
	}

	labelCol := labelColumn(index)

	// The main form is the first section - repeats push a new section onto
	// the stack, groups only extend the xpath prefix.
	s.Sections = []Section{{Name: s.IDString}}

	prefix := []string{}
	stack := []int{0}
	floors := []int{0}

	for n, row := range sheet.Rows[1:] {
		fieldType := normaliseType(cell(row, typeCol))
		name := cell(row, nameCol)

		switch fieldType {
		case "":
			continue

		case typeBeginGroup:
			if name == "" {
				return fmt.Errorf("survey row %d: unnamed group", n+2)
			}
			prefix = append(prefix, name)

		case typeEndGroup:
			if len(prefix) <= floors[len(floors)-1] {
				return fmt.Errorf("survey row %d: 'end group' without matching 'begin group'", n+2)
			}
			prefix = prefix[:len(prefix)-1]

		case typeBeginRepeat:
			if name == "" {
				return fmt.Errorf("survey row %d: unnamed repeat", n+2)
			}
			prefix = append(prefix, name)
			s.Sections = append(s.Sections, Section{Name: strings.Join(prefix, "/")})
			stack = append(stack, len(s.Sections)-1)
			floors = append(floors, len(prefix))

		case typeEndRepeat:
			if len(stack) < 2 {
				return fmt.Errorf("survey row %d: 'end repeat' without matching 'begin repeat'", n+2)
			}
			prefix = prefix[:len(prefix)-1]
			stack = stack[:len(stack)-1]
			floors = floors[:len(floors)-1]

		default:
			if name == "" {
				continue
			}

			element := Element{
				XPath: strings.Join(append(prefix, name), "/"),
				Name:  name,
				Label: cell(row, labelCol),
				Type:  fieldType,
			}

			if element.Label == "" {
				element.Label = name
			}

			if list, ok := selectList(fieldType); ok {
				element.Type, element.ListName = list[0], list[1]
			}

			section := &s.Sections[stack[len(stack)-1]]
			section.Elements = append(section.Elements, element)
		}
	}

	if len(stack) != 1 {
		return fmt.Errorf("unterminated repeat group")
	}

	return nil
}

// normaliseType folds the underscore spellings (begin_group etc.) into the
// canonical space-separated form.
func normaliseType(v string) string {
	fields := strings.Fields(strings.ReplaceAll(v, "_", " "))

	switch {
	case len(fields) >= 2 && fields[0] == "begin" && (fields[1] == "group" || fields[1] == "repeat"):
		return "begin " + fields[1]

	case len(fields) >= 2 && fields[0] == "end" && (fields[1] == "group" || fields[1] == "repeat"):
		return "end " + fields[1]
	}

	return strings.TrimSpace(v)
}

// selectList extracts the choice list from a select type declaration, e.g.
// 'select_multiple colours' or 'select all that apply from colours'. The
// list name itself may contain underscores, so only the prefix is folded.
func selectList(fieldType string) ([2]string, bool) {
	fields := strings.Fields(fieldType)
	if len(fields) < 2 {
		return [2]string{}, false
	}

	list := fields[len(fields)-1]
	head := strings.ReplaceAll(strings.Join(fields[:len(fields)-1], " "), "_", " ")

	switch head {
	case "select one", "select one from":
		return [2]string{"select one", list}, true

	case "select multiple", "select all that apply", "select all that apply from":
		return [2]string{"select all that apply", list}, true
	}

	return [2]string{}, false
}

func columns(header []string) map[string]int {
	index := map[string]int{}
	for i, v := range header {
		k := strings.ToLower(strings.TrimSpace(v))
		if _, ok := index[k]; !ok {
			index[k] = i
		}
	}

	return index
}

// labelColumn prefers the plain 'label' column, falling back to the first
// language-qualified variant ('label::English' etc.).
func labelColumn(index map[string]int) int {
	if ix, ok := index["label"]; ok {
		return ix
	}

	best := -1
	for k, ix := range index {
		if strings.HasPrefix(k, "label::") && (best == -1 || ix < best) {
			best = ix
		}
	}

	return best
}
