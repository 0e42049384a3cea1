package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/xformhub/xform-app-sheets/sheets"
)

// NewPutCmd builds the 'put' command: uploads a TSV file to a worksheet
// range in an existing spreadsheet.
func NewPutCmd() *cobra.Command {
	var creds string
	var url string
	var area string
	var file string

	cmd := cobra.Command{
		Use:   "put",
		Short: "Uploads a TSV file to a Google Sheets worksheet",
		Example: `  ` + APP + ` put --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \
      --range "household!A1:K" \
      --file "household.tsv"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(url) == "" {
				return fmt.Errorf("--url is a required option")
			}

			if strings.TrimSpace(area) == "" {
				return fmt.Errorf("--range is a required option")
			}

			if strings.TrimSpace(file) == "" {
				return fmt.Errorf("--file is a required option")
			}

			spreadsheetID, err := sheets.ExtractID(url)
			if err != nil {
				return err
			}

			debugf("Spreadsheet - ID:%s  range:%s", spreadsheetID, area)

			cfg := loadConfig()

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

			f, err := os.Open(file)
			if err != nil {
				return err
			}

			defer f.Close()

			header, data, err := tsvToSheet(f, area)
			if err != nil {
				return fmt.Errorf("invalid TSV file (%v)", err)
			}

			if err := google.Clear(ctx, spreadsheetID, []string{area}); err != nil {
				return fmt.Errorf("error clearing range %s (%v)", area, err)
			}

			if err := google.UpdateValues(ctx, spreadsheetID, []*gsheets.ValueRange{header, data}); err != nil {
				return err
			}

			infof("Uploaded TSV file %v to %v", file, area)

			return nil
		},
	}

	cmd.Flags().StringVar(&creds, "credentials", "", "Path for the 'credentials.json' file")
	cmd.Flags().StringVar(&url, "url", "", "Spreadsheet URL")
	cmd.Flags().StringVar(&area, "range", "", "Worksheet range e.g. 'household!A1:K'")
	cmd.Flags().StringVar(&file, "file", "", "TSV file")

	return &cmd
}
