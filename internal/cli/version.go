package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/db"
)

// Version is set at build time via -ldflags.
var Version = "dev"

type versionInfo struct {
	Version string `json:"version"`
	Schema  int    `json:"schema"`
	Go      string `json:"go"`
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and database schema this binary writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{Version: Version, Schema: db.SchemaVersion, Go: runtime.Version()}
			if isJSON() {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "offer %s (schema %d, %s)\n", info.Version, info.Schema, info.Go)
			return err
		},
	}
}
