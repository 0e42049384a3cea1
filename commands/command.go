package commands

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"
	"google.golang.org/api/googleapi"

	"github.com/xformhub/xform-app-sheets/config"
	"github.com/xformhub/xform-app-sheets/secrets"
)

const APP = "xform-app-sheets"

// Options are the global command line options shared by all commands.
type Options struct {
	Workdir string
	Debug   bool
}

var options = Options{
	Workdir: DEFAULT_WORKDIR,
}

// NewRootCmd builds the CLI command tree.
func NewRootCmd() *cobra.Command {
	root := cobra.Command{
		Use:           APP,
		Short:         "Exports XForm survey data to Google Sheets",
		Long:          "Exports structured survey response data, collected against an XLSForm definition, to a new Google Sheets spreadsheet - one worksheet per repeat group, or a single flattened worksheet.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&options.Workdir, "workdir", options.Workdir, "Directory for working files (config, tokens, etc)")
	root.PersistentFlags().BoolVar(&options.Debug, "debug", options.Debug, "Displays internal information for diagnosing errors")

	root.AddCommand(NewAuthoriseCmd())
	root.AddCommand(NewExportCmd())
	root.AddCommand(NewGetCmd())
	root.AddCommand(NewPutCmd())
	root.AddCommand(NewVersionCmd())

	return &root
}

// loadConfig reads the workdir configuration file for command defaults.
func loadConfig() *config.Config {
	cfg, err := config.Load(options.Workdir)
	if err != nil {
		warnf("could not load configuration (%v)", err)
		return &config.Config{}
	}

	return cfg
}

// tokenStore opens the token store under the workdir.
func tokenStore() (secrets.Store, error) {
	return secrets.Open(filepath.Join(options.Workdir, ".google"))
}

// credentials resolves the credentials file: command line option, then the
// config file, then the installed default.
func credentials(flagValue string, cfg *config.Config) string {
	switch {
	case flagValue != "":
		return flagValue

	case cfg.Credentials != "":
		return cfg.Credentials

	default:
		return DEFAULT_CREDENTIALS
	}
}

// FormatError rewrites API and keyring errors into something actionable.
func FormatError(err error) string {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		reason := ""
		if len(gerr.Errors) > 0 {
			reason = gerr.Errors[0].Reason
		}

		if reason != "" {
			return fmt.Sprintf("Google API error (%d %s): %s", gerr.Code, reason, gerr.Message)
		}

		return fmt.Sprintf("Google API error (%d): %s", gerr.Code, gerr.Message)
	}

	if secrets.IsNotFound(err) {
		return fmt.Sprintf("no cached OAuth token - run '%s authorise' first", APP)
	}

	return err.Error()
}

func debugf(format string, args ...any) {
	if options.Debug {
		log.Printf("%-5s %s", "DEBUG", fmt.Sprintf(format, args...))
	}
}

func infof(format string, args ...any) {
	log.Printf("%-5s %s", "INFO", fmt.Sprintf(format, args...))
}

func warnf(format string, args ...any) {
	log.Printf("%-5s %s", "WARN", fmt.Sprintf(format, args...))
}
