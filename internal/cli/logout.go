package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Revoke and remove the stored API key",
		Long:  "Revokes the stored API key on the server and removes it from the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(!keep)
		},
	}

	cmd.Flags().BoolVar(&keep, "keep-key", false, "remove the key locally without revoking it")

	return cmd
}

func runLogout(revoke bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.APIKey == "" {
		fmt.Println("Not logged in.")
		return nil
	}

	if revoke && cfg.KeyID != 0 {
		if err := newAPIClient().DeleteKey(cfg.KeyID); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not revoke key on server: %v\n", err)
		}
	}

	cfg.APIKey = ""
	cfg.KeyID = 0
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ Logged out. API key removed.")
	return nil
}
