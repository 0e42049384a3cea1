package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xformhub/xform-app-sheets/sheets"
)

// NewGetCmd builds the 'get' command: downloads an exported worksheet (or
// any range of it) to a local TSV file.
func NewGetCmd() *cobra.Command {
	var creds string
	var url string
	var area string
	var file string

	cmd := cobra.Command{
		Use:   "get",
		Short: "Downloads a Google Sheets worksheet to a TSV file",
		Example: `  ` + APP + ` get --url "https://docs.google.com/spreadsheets/d/1BxiMVs0XRA5nFMdKvBdBZjgmUUqptlbs74OgvE2upms" \
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

			response, err := google.Values(ctx, spreadsheetID, area)
			if err != nil {
				return err
			}

			if len(response.Values) == 0 {
				return fmt.Errorf("no data in spreadsheet/range")
			}

			tmp, err := os.CreateTemp(os.TempDir(), "export")
			if err != nil {
				return err
			}

			defer func() {
				tmp.Close()
				os.Remove(tmp.Name())
			}()

			if err := sheetToTSV(tmp, response); err != nil {
				return fmt.Errorf("error creating TSV file (%v)", err)
			}

			tmp.Close()

			dir := filepath.Dir(file)
			if err := os.MkdirAll(dir, 0770); err != nil {
				return err
			}

			if err := os.Rename(tmp.Name(), file); err != nil {
				return err
			}

			infof("Retrieved worksheet to file %s", file)

			return nil
		},
	}

	cmd.Flags().StringVar(&creds, "credentials", "", "Path for the 'credentials.json' file")
	cmd.Flags().StringVar(&url, "url", "", "Spreadsheet URL")
	cmd.Flags().StringVar(&area, "range", "", "Worksheet range e.g. 'household!A1:K'")
	cmd.Flags().StringVar(&file, "file", time.Now().Format("2006-01-02T150405.tsv"), "TSV file name. Defaults to '<yyyy-mm-ddTHHmmss>.tsv'")

	return &cmd
}
