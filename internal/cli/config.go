package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultServerURL = "http://localhost:8080"

// CLIConfig is the admin's local CLI state, kept in
// ~/.config/offer/config.yaml.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	// KeyID lets logout revoke the key on the server.
	KeyID int64 `yaml:"key_id,omitempty"`
	// Agent is used by `offer link` when --agent is not given.
	Agent string `yaml:"agent,omitempty"`
	// QRDir is where `offer link` saves QR codes when --qr is not given.
	QRDir string `yaml:"qr_dir,omitempty"`
}

// configField is a key the admin may edit with `offer config set`.
type configField struct {
	env string
	get func(*CLIConfig) string
	set func(*CLIConfig, string)
}

// api_key and key_id belong to login and logout.
var configFields = map[string]configField{
	"server_url": {
		env: "OFFER_SERVER_URL",
		get: func(c *CLIConfig) string { return c.ServerURL },
		set: func(c *CLIConfig, v string) { c.ServerURL = strings.TrimRight(v, "/") },
	},
	"agent": {
		env: "OFFER_AGENT",
		get: func(c *CLIConfig) string { return c.Agent },
		set: func(c *CLIConfig, v string) { c.Agent = v },
	},
	"qr_dir": {
		env: "OFFER_QR_DIR",
		get: func(c *CLIConfig) string { return c.QRDir },
		set: func(c *CLIConfig, v string) { c.QRDir = v },
	},
}

func configKeys() []string {
	keys := make([]string, 0, len(configFields))
	for k := range configFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "offer", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes the CLI config with owner-only permissions; it holds
// an admin API key.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// lookup resolves an editable key: environment first, then the file.
func lookup(key string) string {
	f := configFields[key]
	if v := os.Getenv(f.env); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err != nil {
		return ""
	}
	return f.get(&cfg)
}

func getServerURL() string {
	if v := lookup("server_url"); v != "" {
		return v
	}
	return defaultServerURL
}

// getAPIKey returns the API key from OFFER_API_KEY or the config file.
func getAPIKey() string {
	if v := os.Getenv("OFFER_API_KEY"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err != nil {
		return ""
	}
	return cfg.APIKey
}

func getAgent() string { return lookup("agent") }

func getQRDir() string { return lookup("qr_dir") }

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change local CLI defaults",
		Long: "Keys: " + strings.Join(configKeys(), ", ") + ". " +
			"Environment variables (OFFER_SERVER_URL, OFFER_AGENT, OFFER_QR_DIR) override the file.",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the CLI config",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(cmd)
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a CLI default",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "unset <key>",
			Short: "Remove a CLI default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(cmd, args[0], "")
			},
		},
	)

	return cmd
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	f, ok := configFields[key]
	if !ok {
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(configKeys(), ", "))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	f.set(&cfg, strings.TrimSpace(value))
	if err := saveConfig(cfg); err != nil {
		return err
	}

	if value == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s unset\n", key)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", key, f.get(&cfg))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	key := "(none)"
	if cfg.APIKey != "" {
		key = maskKey(cfg.APIKey)
	}

	if isJSON() {
		return writeJSON(cmd.OutOrStdout(), map[string]string{
			"server_url": getServerURL(),
			"agent":      getAgent(),
			"qr_dir":     getQRDir(),
			"api_key":    key,
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "server_url: %s\n", getServerURL())
	for _, k := range []string{"agent", "qr_dir"} {
		v := lookup(k)
		if v == "" {
			v = "(none)"
		}
		fmt.Fprintf(w, "%s: %s\n", k, v)
	}
	fmt.Fprintf(w, "api_key: %s\n", key)
	return nil
}

// maskKey keeps only the prefix of an API key for display.
func maskKey(key string) string {
	if len(key) > 8 {
		key = key[:8]
	}
	return key + "…"
}
