package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/evcraddock/offer-form/internal/client"
)

const apiKeyPrefix = "of_"

func newLoginCmd() *cobra.Command {
	var (
		server string
		name   string
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store an API key",
		Long: "Exchanges the admin passphrase for an API key and stores it in ~/.config/offer/config.yaml. " +
			"The passphrase is read from the terminal, or from stdin when it is not a terminal.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(server, name, os.Stdin)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or "+defaultServerURL+")")
	cmd.Flags().StringVar(&name, "name", "", "name for the new API key (default: this host's name)")

	return cmd
}

func runLogin(serverFlag, name string, in *os.File) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}
	if name == "" {
		name = defaultKeyName()
	}

	passphrase, err := readPassphrase(in)
	if err != nil {
		return err
	}
	if passphrase == "" {
		return fmt.Errorf("no passphrase provided")
	}

	resp, err := client.New(strings.TrimRight(serverURL, "/"), "").Login(passphrase, name)
	if err != nil {
		return fmt.Errorf("logging in: %w", err)
	}
	if err := validateAPIKey(resp.Key); err != nil {
		return err
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = resp.Key
	cfg.KeyID = resp.APIKey.ID
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Println("✓ API key saved. You're logged in!")
	return nil
}

// readPassphrase prompts without echo on a terminal and otherwise reads
// the first line of in.
func readPassphrase(in *os.File) (string, error) {
	fd := int(in.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("Admin passphrase: ")
		b, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// validateAPIKey checks that the key is non-empty and has the expected prefix.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !strings.HasPrefix(key, apiKeyPrefix) {
		return fmt.Errorf("invalid API key format (should start with %s)", apiKeyPrefix)
	}
	return nil
}

func defaultKeyName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "CLI"
	}
	return "CLI (" + host + ")"
}
