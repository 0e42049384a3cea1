package xlsform

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyWorkbook() *Workbook {
	return &Workbook{
		Sheets: []Sheet{
			{
				Name: "survey",
				Rows: [][]string{
					{"type", "name", "label"},
					{"text", "name", "Name"},
					{"begin group", "location", "Location"},
					{"text", "village", "Village"},
					{"end group", "", ""},
					{"select_multiple colours", "colours", "Favourite colours"},
					{"begin repeat", "children", "Children"},
					{"text", "name", "Child name"},
					{"integer", "age", "Child age"},
					{"end repeat", "", ""},
				},
			},
			{
				Name: "choices",
				Rows: [][]string{
					{"list_name", "name", "label"},
					{"colours", "red", "Red"},
					{"colours", "blue", "Blue"},
				},
			},
			{
				Name: "settings",
				Rows: [][]string{
					{"form_id", "form_title"},
					{"household_survey", "Household Survey"},
				},
			},
		},
	}
}

func TestParse(t *testing.T) {
	schema, err := Parse(surveyWorkbook(), "fallback")
	require.NoError(t, err)

	assert.Equal(t, "Household Survey", schema.Title)
	assert.Equal(t, "household_survey", schema.IDString)

	require.Len(t, schema.Sections, 2)
	assert.Equal(t, "household_survey", schema.Sections[0].Name)
	assert.Equal(t, "children", schema.Sections[1].Name)

	main := schema.Sections[0].Elements
	require.Len(t, main, 3)
	assert.Equal(t, Element{XPath: "name", Name: "name", Label: "Name", Type: "text"}, main[0])
	assert.Equal(t, Element{XPath: "location/village", Name: "village", Label: "Village", Type: "text"}, main[1])
	assert.Equal(t, Element{XPath: "colours", Name: "colours", Label: "Favourite colours", Type: "select all that apply", ListName: "colours"}, main[2])

	children := schema.Sections[1].Elements
	require.Len(t, children, 2)
	assert.Equal(t, "children/name", children[0].XPath)
	assert.Equal(t, "integer", children[1].Type)

	require.Contains(t, schema.Choices, "colours")
	assert.Equal(t, []Choice{{Name: "red", Label: "Red"}, {Name: "blue", Label: "Blue"}}, schema.Choices["colours"])
}

func TestParseWithoutSettings(t *testing.T) {
	workbook := surveyWorkbook()
	workbook.Sheets = workbook.Sheets[:2]

	schema, err := Parse(workbook, "fallback")
	require.NoError(t, err)

	assert.Equal(t, "fallback", schema.Title)
	assert.Equal(t, "fallback", schema.IDString)
	assert.Equal(t, "fallback", schema.Sections[0].Name)
}

func TestParseRepeatInsideGroup(t *testing.T) {
	workbook := &Workbook{
		Sheets: []Sheet{
			{
				Name: "survey",
				Rows: [][]string{
					{"type", "name", "label"},
					{"begin_group", "hh", "Household"},
					{"begin_repeat", "members", "Members"},
					{"text", "name", "Member name"},
					{"end_repeat", "", ""},
					{"end_group", "", ""},
				},
			},
		},
	}

	schema, err := Parse(workbook, "form")
	require.NoError(t, err)

	require.Len(t, schema.Sections, 2)
	assert.Equal(t, "hh/members", schema.Sections[1].Name)
	assert.Equal(t, "hh/members/name", schema.Sections[1].Elements[0].XPath)
}

func TestParseUnbalancedStructure(t *testing.T) {
	workbook := &Workbook{
		Sheets: []Sheet{
			{
				Name: "survey",
				Rows: [][]string{
					{"type", "name"},
					{"begin repeat", "members"},
					{"text", "name"},
				},
			},
		},
	}

	_, err := Parse(workbook, "form")
	assert.Error(t, err)
}

func TestParseEndGroupWithoutBegin(t *testing.T) {
	workbook := &Workbook{
		Sheets: []Sheet{
			{
				Name: "survey",
				Rows: [][]string{
					{"type", "name"},
					{"end group", ""},
				},
			},
		},
	}

	_, err := Parse(workbook, "form")
	assert.Error(t, err)
}

func TestParseNoSurveySheet(t *testing.T) {
	_, err := Parse(&Workbook{Sheets: []Sheet{{Name: "choices"}}}, "form")
	assert.Error(t, err)
}

func TestParseLanguageQualifiedLabels(t *testing.T) {
	workbook := &Workbook{
		Sheets: []Sheet{
			{
				Name: "survey",
				Rows: [][]string{
					{"type", "name", "label::English", "label::Français"},
					{"text", "name", "Name", "Nom"},
				},
			},
		},
	}

	schema, err := Parse(workbook, "form")
	require.NoError(t, err)

	assert.Equal(t, "Name", schema.Sections[0].Elements[0].Label)
}

func TestNormaliseType(t *testing.T) {
	assert.Equal(t, "begin group", normaliseType("begin_group"))
	assert.Equal(t, "begin repeat", normaliseType("begin  repeat"))
	assert.Equal(t, "end repeat", normaliseType("end_repeat"))
	assert.Equal(t, "text", normaliseType("text"))
}

func TestSelectList(t *testing.T) {
	list, ok := selectList("select_multiple colours")
	require.True(t, ok)
	assert.Equal(t, [2]string{"select all that apply", "colours"}, list)

	list, ok = selectList("select all that apply from colours")
	require.True(t, ok)
	assert.Equal(t, [2]string{"select all that apply", "colours"}, list)

	list, ok = selectList("select_one yes_no")
	require.True(t, ok)
	assert.Equal(t, [2]string{"select one", "yes_no"}, list)

	_, ok = selectList("integer")
	assert.False(t, ok)
}

func TestReadWorkbookCSV(t *testing.T) {
	content := `"survey",,,
,"type","name","label"
,"text","name","Name"
"choices",,,
,"list_name","name","label"
,"colours","red","Red"
`

	file := filepath.Join(t.TempDir(), "form.csv")
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	workbook, err := ReadWorkbook(file)
	require.NoError(t, err)

	require.Len(t, workbook.Sheets, 2)
	assert.Equal(t, "survey", workbook.Sheets[0].Name)
	assert.Equal(t, []string{"text", "name", "Name"}, workbook.Sheets[0].Rows[1])

	schema, err := Parse(workbook, "form")
	require.NoError(t, err)
	assert.Equal(t, "name", schema.Sections[0].Elements[0].XPath)
}

func TestLoadXLSX(t *testing.T) {
	// round-trip through a real .xlsx file
	f := newTestXLSX(t)

	schema, err := Load(f)
	require.NoError(t, err)

	assert.Equal(t, "household_survey", schema.IDString)
	require.Len(t, schema.Sections, 2)
	assert.NotNil(t, schema.Workbook)
}
