package sheets

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const mimeTypeSpreadsheet = "application/vnd.google-apps.spreadsheet"

var reSpreadsheetURL = regexp.MustCompile(`^https://docs.google.com/spreadsheets/d/(.*?)(?:/.*)?$`)
var reSpreadsheetID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Client wraps the Sheets and Drive services: spreadsheets are created and
// shared as Drive files, worksheets and values go through the Sheets API.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewClient creates a client over an authorised HTTP client.
func NewClient(ctx context.Context, client *http.Client) (*Client, error) {
	gsheets, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets client (%w)", err)
	}

	gdrive, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Drive client (%w)", err)
	}

	return &Client{
		sheets: gsheets,
		drive:  gdrive,
	}, nil
}

// Create creates an empty spreadsheet as a Drive file and returns its ID.
func (c *Client) Create(ctx context.Context, title string) (string, error) {
	file := drive.File{
		Name:     title,
		MimeType: mimeTypeSpreadsheet,
	}

	created, err := c.drive.Files.Create(&file).Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return created.Id, nil
}

// Share grants a user access to the spreadsheet ('writer', 'reader', ...).
func (c *Client) Share(ctx context.Context, spreadsheetID, email, role string) error {
	permission := drive.Permission{
		Type:         "user",
		Role:         role,
		EmailAddress: email,
	}

	_, err := c.drive.Permissions.Create(spreadsheetID, &permission).
		SendNotificationEmail(false).
		Context(ctx).
		Do()

	return err
}

// Spreadsheet fetches the spreadsheet metadata.
func (c *Client) Spreadsheet(ctx context.Context, spreadsheetID string) (*sheets.Spreadsheet, error) {
	spreadsheet, err := c.sheets.Spreadsheets.Get(spreadsheetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to fetch spreadsheet (%v)", err)
	}

	return spreadsheet, nil
}

// AddWorksheet adds a worksheet with a fixed grid size.
func (c *Client) AddWorksheet(ctx context.Context, spreadsheetID, title string, rows, cols int64) error {
	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{
						Title: title,
						GridProperties: &sheets.GridProperties{
							RowCount:    rows,
							ColumnCount: cols,
						},
					},
				},
			},
		},
	}

	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do()

	return err
}

// DeleteWorksheet removes a worksheet by sheet ID.
func (c *Client) DeleteWorksheet(ctx context.Context, spreadsheetID string, sheetID int64) error {
	rq := sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{
			{
				DeleteSheet: &sheets.DeleteSheetRequest{
					SheetId: sheetID,
				},
			},
		},
	}

	_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do()

	return err
}

// DeleteDefaultWorksheet removes the initial worksheet created with the
// spreadsheet, identified by sheet ID 0 with a fallback to the 'Sheet1'
// title. Left alone when it is the only worksheet - a spreadsheet must keep
// at least one sheet.
func (c *Client) DeleteDefaultWorksheet(ctx context.Context, spreadsheetID string) error {
	spreadsheet, err := c.Spreadsheet(ctx, spreadsheetID)
	if err != nil {
		return err
	}

	if len(spreadsheet.Sheets) < 2 {
		return nil
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.SheetId == 0 || strings.TrimSpace(sheet.Properties.Title) == "Sheet1" {
			return c.DeleteWorksheet(ctx, spreadsheetID, sheet.Properties.SheetId)
		}
	}

	return nil
}

// UpdateRow writes values as a single row at a 1-based row index, widening
// the worksheet grid first when the row is wider than the sheet.
func (c *Client) UpdateRow(ctx context.Context, spreadsheetID, worksheet string, index int64, values []any) error {
	if err := c.ensureColumns(ctx, spreadsheetID, worksheet, int64(len(values))); err != nil {
		return err
	}

	rq := sheets.ValueRange{
		Range:  fmt.Sprintf("%s!A%d", quote(worksheet), index),
		Values: [][]any{values},
	}

	_, err := c.sheets.Spreadsheets.Values.Update(spreadsheetID, rq.Range, &rq).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()

	return err
}

// AppendRows appends rows after the worksheet's current data.
func (c *Client) AppendRows(ctx context.Context, spreadsheetID, worksheet string, rows [][]any) error {
	values := sheets.ValueRange{
		Values: rows,
	}

	_, err := c.sheets.Spreadsheets.Values.Append(spreadsheetID, quote(worksheet), &values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

// WriteRows writes a block of rows starting at a 1-based row index.
func (c *Client) WriteRows(ctx context.Context, spreadsheetID, worksheet string, startRow int64, rows [][]any) error {
	values := sheets.ValueRange{
		Range:  fmt.Sprintf("%s!A%d", quote(worksheet), startRow),
		Values: rows,
	}

	rq := sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             []*sheets.ValueRange{&values},
	}

	_, err := c.sheets.Spreadsheets.Values.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do()

	return err
}

// UpdateValues writes explicitly ranged value blocks in one batch.
func (c *Client) UpdateValues(ctx context.Context, spreadsheetID string, data []*sheets.ValueRange) error {
	rq := sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}

	_, err := c.sheets.Spreadsheets.Values.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do()

	return err
}

// Values fetches the values in a range ('Section!A1:D' or a worksheet title).
func (c *Client) Values(ctx context.Context, spreadsheetID, area string) (*sheets.ValueRange, error) {
	response, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, area).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve data from sheet (%v)", err)
	}

	return response, nil
}

// Clear clears the values in the ranges, leaving formatting intact.
func (c *Client) Clear(ctx context.Context, spreadsheetID string, ranges []string) error {
	rq := sheets.BatchClearValuesRequest{
		Ranges: ranges,
	}

	_, err := c.sheets.Spreadsheets.Values.BatchClear(spreadsheetID, &rq).Context(ctx).Do()

	return err
}

func (c *Client) ensureColumns(ctx context.Context, spreadsheetID, worksheet string, cols int64) error {
	spreadsheet, err := c.Spreadsheet(ctx, spreadsheetID)
	if err != nil {
		return err
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties.Title != worksheet {
			continue
		}

		grid := sheet.Properties.GridProperties
		if grid == nil || grid.ColumnCount >= cols {
			return nil
		}

		rq := sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{
				{
					AppendDimension: &sheets.AppendDimensionRequest{
						SheetId:   sheet.Properties.SheetId,
						Dimension: "COLUMNS",
						Length:    cols - grid.ColumnCount,
					},
				},
			},
		}

		_, err := c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &rq).Context(ctx).Do()

		return err
	}

	return fmt.Errorf("no worksheet '%s' in spreadsheet", worksheet)
}

// URL returns the browser URL for a spreadsheet ID.
func URL(spreadsheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s", spreadsheetID)
}

// ExtractID resolves a spreadsheet URL or bare ID to the spreadsheet ID.
func ExtractID(v string) (string, error) {
	v = strings.TrimSpace(v)

	if match := reSpreadsheetURL.FindStringSubmatch(v); len(match) >= 2 && match[1] != "" {
		return match[1], nil
	}

	if reSpreadsheetID.MatchString(v) {
		return v, nil
	}

	return "", fmt.Errorf("invalid spreadsheet URL - expected something like 'https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms'")
}

// quote wraps a worksheet title for use in an A1 range reference.
func quote(worksheet string) string {
	return "'" + strings.ReplaceAll(worksheet, "'", "''") + "'"
}
