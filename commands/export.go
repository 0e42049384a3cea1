package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xformhub/xform-app-sheets/exporter"
	"github.com/xformhub/xform-app-sheets/sheets"
	"github.com/xformhub/xform-app-sheets/xlsform"
)

// NewExportCmd builds the 'export' command: the full job of creating a
// spreadsheet from a form definition and its submissions.
func NewExportCmd() *cobra.Command {
	var form string
	var data string
	var title string
	var creds string
	var share string
	var flatten bool
	var withXLSForm bool
	var delimiter string
	var split bool
	var binary bool

	cmd := cobra.Command{
		Use:   "export",
		Short: "Exports a survey dataset to a new Google Sheets spreadsheet",
		Long: `Exports a survey dataset to a new Google Sheets spreadsheet.

Creates the spreadsheet, adds one worksheet per section (the main form plus
each repeat group), writes the header and data rows, optionally copies the
form definition sheets, and prints the spreadsheet URL.`,
		Example: `  ` + APP + ` export --form household.xlsx --data submissions.json --title "Household Survey - June"
  ` + APP + ` export --form household.xlsx --data submissions.json --flatten --share "exports@project.iam.gserviceaccount.com"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(form) == "" {
				return fmt.Errorf("--form is a required option")
			}

			if strings.TrimSpace(data) == "" {
				return fmt.Errorf("--data is a required option")
			}

			cfg := loadConfig()

			if !cmd.Flags().Changed("flatten") {
				flatten = cfg.Export.Flatten
			}

			if !cmd.Flags().Changed("xlsform") {
				withXLSForm = cfg.Export.XLSForm
			}

			if !cmd.Flags().Changed("group-delimiter") && cfg.Export.GroupDelimiter != "" {
				delimiter = cfg.Export.GroupDelimiter
			}

			if !cmd.Flags().Changed("split-select-multiples") {
				split = cfg.Export.SplitSelectMultiples
			}

			if !cmd.Flags().Changed("binary-select-multiples") {
				binary = cfg.Export.BinarySelectMultiples
			}

			if share == "" {
				share = cfg.Share
			}

			schema, err := xlsform.Load(form)
			if err != nil {
				return fmt.Errorf("error reading form definition (%w)", err)
			}

			submissions, err := readSubmissions(data)
			if err != nil {
				return fmt.Errorf("error reading submissions (%w)", err)
			}

			debugf("form:%s  sections:%d  submissions:%d", schema.IDString, len(schema.Sections), len(submissions))

			store, err := tokenStore()
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			client, err := sheets.Authorize(ctx, credentials(creds, cfg), store)
			if err != nil {
				return fmt.Errorf("authentication/authorization error (%v)", err)
			}

			google, err := sheets.NewClient(ctx, client)
			if err != nil {
				return err
			}

			builder := exporter.NewBuilder(schema, exporter.Config{
				SpreadsheetTitle:      title,
				ShareWith:             share,
				FlattenRepeats:        flatten,
				ExportXLSForm:         withXLSForm,
				GroupDelimiter:        delimiter,
				SplitSelectMultiples:  split,
				BinarySelectMultiples: binary,
			})

			infof("Exporting %d submissions for form '%s'", len(submissions), schema.IDString)

			spreadsheetID, err := builder.Export(ctx, google, submissions)
			if err != nil {
				return err
			}

			infof("Exported to spreadsheet %s", spreadsheetID)
			color.Green("%s", sheets.URL(spreadsheetID))

			return nil
		},
	}

	cmd.Flags().StringVar(&form, "form", "", "XLSForm definition (.xlsx or .csv)")
	cmd.Flags().StringVar(&data, "data", "", "Submissions file (JSON array)")
	cmd.Flags().StringVar(&title, "title", "", "Spreadsheet title (defaults to the form title)")
	cmd.Flags().StringVar(&creds, "credentials", "", "Path for the 'credentials.json' file")
	cmd.Flags().StringVar(&share, "share", "", "Email address to share the spreadsheet with (role 'writer')")
	cmd.Flags().BoolVar(&flatten, "flatten", false, "Flattens repeat groups into a single 'raw' worksheet")
	cmd.Flags().BoolVar(&withXLSForm, "xlsform", true, "Copies the form definition sheets into the spreadsheet")
	cmd.Flags().StringVar(&delimiter, "group-delimiter", "/", "Delimiter for group names in column headers")
	cmd.Flags().BoolVar(&split, "split-select-multiples", false, "Splits select-multiple answers into one column per choice")
	cmd.Flags().BoolVar(&binary, "binary-select-multiples", false, "Uses 1/0 rather than True/False for split select-multiple columns")

	return &cmd
}

// readSubmissions decodes a JSON array of submissions. Repeat groups are
// nested arrays of objects, fields are keyed by xpath.
func readSubmissions(file string) ([]exporter.Submission, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	submissions := []exporter.Submission{}
	if err := json.NewDecoder(f).Decode(&submissions); err != nil {
		return nil, err
	}

	return submissions, nil
}
