// Package cli defines the cobra command tree for the offer form service.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/client"
	"github.com/evcraddock/offer-form/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "offer",
		Short:         "Run and administer the offer to purchase form",
		Long:          "Serves the offer to purchase form and its admin API, and manages agents, settings and share links from the command line.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.offer/offer.db)")

	root.AddCommand(
		newServeCmd(),
		newAgentsCmd(),
		newSettingsCmd(),
		newLinkCmd(),
		newValidateCmd(),
		newDepositCmd(),
		newSubmitCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database at path, falling back to the --db flag
// and then the default location.
func openDB(path string) (*sql.DB, error) {
	if flagDB != "" {
		path = flagDB
	}
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the offer form API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}

// authHint rewrites a 401 into a pointer at the login command.
func authHint(err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("%w (run 'offer login' to authenticate)", err)
	}
	return err
}
