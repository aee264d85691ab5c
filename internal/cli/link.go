package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newLinkCmd() *cobra.Command {
	var (
		agent string
		qrDir string
	)

	cmd := &cobra.Command{
		Use:   "link <address>",
		Short: "Create a prefilled share link",
		Long: "Creates a short link that opens the form with the agent and property address filled in and locked. " +
			"With --qr the link's QR code is saved to the given directory. " +
			"The agent and QR directory default to `offer config set agent|qr_dir`.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(cmd, agent, args[0], qrDir)
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "agent name (default: config agent)")
	cmd.Flags().StringVar(&qrDir, "qr", "", "directory to save the QR code PNG in (default: config qr_dir)")

	cmd.AddCommand(newLinksListCmd())

	return cmd
}

func newLinksListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent share links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			links, err := newAPIClient().ListLinks(limit)
			if err != nil {
				return authHint(err)
			}
			if isJSON() {
				return printJSON(links)
			}
			return printLinkTable(cmd.OutOrStdout(), links, getServerURL())
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of links to show")

	return cmd
}

func runLink(cmd *cobra.Command, agent, address, qrDir string) error {
	if agent == "" {
		agent = getAgent()
	}
	if agent == "" {
		return fmt.Errorf("no agent: pass --agent or run 'offer config set agent <name>'")
	}
	if qrDir == "" {
		qrDir = getQRDir()
	}

	c := newAPIClient()
	link, err := c.CreateLink(agent, address)
	if err != nil {
		return authHint(err)
	}

	var qrPath string
	if qrDir != "" {
		png, err := c.QRCode(link.URL, address)
		if err != nil {
			return fmt.Errorf("downloading QR code: %w", err)
		}
		if err := os.MkdirAll(qrDir, 0o755); err != nil {
			return fmt.Errorf("creating QR directory: %w", err)
		}
		qrPath = filepath.Join(qrDir, link.QRFilename)
		if err := os.WriteFile(qrPath, png, 0o644); err != nil {
			return fmt.Errorf("writing QR code: %w", err)
		}
	}

	if isJSON() {
		return printJSON(link)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Link: %s\n", link.URL)
	if link.ID == "" {
		fmt.Fprintln(w, "  (short link unavailable, using a direct link)")
	}
	if qrPath != "" {
		fmt.Fprintf(w, "QR:   %s\n", qrPath)
	}
	return nil
}
