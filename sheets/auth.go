package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/xformhub/xform-app-sheets/secrets"
)

// Scopes needed to create spreadsheets, write to them and share them.
const (
	SHEETS = "https://www.googleapis.com/auth/spreadsheets"
	DRIVE  = "https://www.googleapis.com/auth/drive.file"
)

var scopes = []string{SHEETS, DRIVE}

// Authorize builds an authorised HTTP client from a Google credentials file.
// Service account keys authenticate directly; OAuth client credentials use
// the refresh token cached by the 'authorise' command.
func Authorize(ctx context.Context, credentials string, store secrets.Store) (*http.Client, error) {
	b, err := os.ReadFile(credentials)
	if err != nil {
		return nil, err
	}

	if isServiceAccount(b) {
		config, err := google.JWTConfigFromJSON(b, scopes...)
		if err != nil {
			return nil, err
		}

		return config.Client(ctx), nil
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, err
	}

	token, err := store.Token(config.ClientID)
	if err != nil {
		if secrets.IsNotFound(err) {
			return nil, fmt.Errorf("no cached token for these credentials - run 'authorise' first")
		}

		return nil, err
	}

	return config.Client(ctx, token), nil
}

// OAuthConfig reads an OAuth client credentials file ('credentials.json').
func OAuthConfig(credentials string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentials)
	if err != nil {
		return nil, err
	}

	if isServiceAccount(b) {
		return nil, fmt.Errorf("'%s' is a service account key - service accounts do not need to be authorised", credentials)
	}

	return google.ConfigFromJSON(b, scopes...)
}

func isServiceAccount(b []byte) bool {
	credential := struct {
		Type string `json:"type"`
	}{}

	if err := json.Unmarshal(b, &credential); err != nil {
		return false
	}

	return credential.Type == "service_account"
}
