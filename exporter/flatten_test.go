package exporter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xformhub/xform-app-sheets/xlsform"
)

func TestFlatten(t *testing.T) {
	b := NewBuilder(testSchema(), Config{})

	header, rows := b.Flatten(testData())

	assert.Equal(t, []string{
		"name",
		"location/village",
		"colours",
		"children[1]/name",
		"children[1]/age",
		"children[2]/name",
		"children[2]/age",
	}, header)

	require.Len(t, rows, 2)
	assert.Equal(t, []any{"Alice", "Arra", "red blue", "Bob", float64(7), "Cy", float64(4)}, rows[0])
	assert.Equal(t, []any{"Dee", "", "", "", "", "", ""}, rows[1])
}

func TestFlattenGroupDelimiter(t *testing.T) {
	b := NewBuilder(testSchema(), Config{GroupDelimiter: "."})

	header, _ := b.Flatten(testData())

	assert.Equal(t, "location.village", header[1])
	assert.Equal(t, "children[1].name", header[3])
}

func TestFlattenNestedRepeats(t *testing.T) {
	schema := &xlsform.Schema{
		IDString: "farm",
		Sections: []xlsform.Section{
			{
				Name:     "farm",
				Elements: []xlsform.Element{{XPath: "owner", Name: "owner", Type: "text"}},
			},
			{
				Name:     "fields",
				Elements: []xlsform.Element{{XPath: "fields/crop", Name: "crop", Type: "text"}},
			},
			{
				Name:     "fields/harvests",
				Elements: []xlsform.Element{{XPath: "fields/harvests/yield", Name: "yield", Type: "decimal"}},
			},
		},
	}

	data := []Submission{
		{
			"owner": "Eve",
			"fields": []any{
				map[string]any{
					"fields/crop": "maize",
					"fields/harvests": []any{
						map[string]any{"fields/harvests/yield": float64(1.5)},
						map[string]any{"fields/harvests/yield": float64(2.5)},
					},
				},
				map[string]any{"fields/crop": "beans"},
			},
		},
	}

	b := NewBuilder(schema, Config{})
	header, rows := b.Flatten(data)

	assert.Equal(t, []string{
		"owner",
		"fields[1]/crop",
		"fields[1]/harvests[1]/yield",
		"fields[1]/harvests[2]/yield",
		"fields[2]/crop",
		"fields[2]/harvests[1]/yield",
		"fields[2]/harvests[2]/yield",
	}, header)

	require.Len(t, rows, 1)
	assert.Equal(t, []any{"Eve", "maize", 1.5, 2.5, "beans", "", ""}, rows[0])
}

func TestFlattenEmptyDataset(t *testing.T) {
	b := NewBuilder(testSchema(), Config{})

	header, rows := b.Flatten(nil)

	assert.Nil(t, header)
	assert.Nil(t, rows)
}

func TestExportFlattened(t *testing.T) {
	client := newFakeClient()
	b := NewBuilder(testSchema(), Config{FlattenRepeats: true})

	_, err := b.Export(context.Background(), client, testData())
	require.NoError(t, err)

	assert.Equal(t, []string{FlattenedSheetTitle}, client.worksheets)
	assert.Equal(t, [2]int64{3, 7}, client.grids[FlattenedSheetTitle])

	written := client.written[FlattenedSheetTitle]
	require.Len(t, written, 3)
	assert.Equal(t, "name", written[0][0])
	assert.Equal(t, "Alice", written[1][0])
	assert.Equal(t, 1, client.deleted)
}

func TestExportFlattenedEmptyDataset(t *testing.T) {
	client := newFakeClient()
	b := NewBuilder(testSchema(), Config{FlattenRepeats: true})

	_, err := b.Export(context.Background(), client, nil)
	require.NoError(t, err)

	// nothing to write - no worksheet is created
	assert.Empty(t, client.worksheets)
	assert.Empty(t, client.written)
}
