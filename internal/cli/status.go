package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored API key is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	serverURL := getServerURL()
	apiKey := getAPIKey()

	fmt.Printf("Server:  %s\n", serverURL)

	if apiKey == "" {
		fmt.Println("API Key: not configured")
		fmt.Println("\nRun 'offer login' to authenticate.")
		return nil
	}

	fmt.Printf("API Key: %s\n", maskKey(apiKey))

	admin, err := newAPIClient().IsAdmin()
	switch {
	case err != nil:
		fmt.Printf("Status:  ✗ cannot reach server (%v)\n", err)
	case admin:
		fmt.Println("Status:  ✓ connected and authenticated")
	default:
		fmt.Println("Status:  ✗ invalid API key")
		fmt.Println("\nRun 'offer login' to re-authenticate.")
	}

	return nil
}
