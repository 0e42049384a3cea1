package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/xformhub/xform-app-sheets/sheets"
)

// NewAuthoriseCmd builds the 'authorise' command: the interactive OAuth flow
// that caches the refresh token used by the other commands.
func NewAuthoriseCmd() *cobra.Command {
	var creds string

	cmd := cobra.Command{
		Use:     "authorise",
		Aliases: []string{"authorize"},
		Short:   "Authorises " + APP + " to create and write Google Sheets spreadsheets",
		Long:    "Runs the OAuth2 authorisation flow for the Sheets and Drive scopes and caches the granted token. Not required for service account credentials.",
		Example: `  ` + APP + ` authorise --credentials "credentials.json"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()

			config, err := sheets.OAuthConfig(credentials(creds, cfg))
			if err != nil {
				return err
			}

			authURL := config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

			fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n\n> ", authURL)

			var code string
			if _, err := fmt.Fscan(cmd.InOrStdin(), &code); err != nil {
				return fmt.Errorf("unable to read authorization code (%v)", err)
			}

			token, err := config.Exchange(cmd.Context(), strings.TrimSpace(code))
			if err != nil {
				return fmt.Errorf("unable to retrieve token (%v)", err)
			}

			store, err := tokenStore()
			if err != nil {
				return err
			}

			if err := store.PutToken(config.ClientID, token); err != nil {
				return fmt.Errorf("unable to cache OAuth token (%v)", err)
			}

			infof("Authorised - token cached for client %s", config.ClientID)

			return nil
		},
	}

	cmd.Flags().StringVar(&creds, "credentials", "", "Path for the 'credentials.json' file")

	return &cmd
}
