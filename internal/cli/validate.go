package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/offer"
)

func newValidateCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check an offer record for missing required fields",
		Long: "Reads an offer record as JSON and lists every missing required field. " +
			"Placeholders from the server's settings count as filled unless --offline is set.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], offline)
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "use the stock placeholders instead of the server's")

	return cmd
}

func runValidate(cmd *cobra.Command, path string, offline bool) error {
	r, err := readRecord(path)
	if err != nil {
		return err
	}

	defaults := offer.DefaultPlaceholders()
	if !offline {
		s, err := newAPIClient().GetSettings()
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: using stock placeholders: %v\n", err)
		} else {
			defaults = s.Placeholders
		}
	}

	errs := offer.Validate(r, defaults)
	done, total := offer.Progress(r, defaults)

	if isJSON() {
		if err := printJSON(map[string]any{
			"valid":    errs.Len() == 0,
			"errors":   errs,
			"progress": map[string]int{"done": done, "total": total},
		}); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Progress: %d/%d required fields\n", done, total)
		if errs.Len() == 0 {
			fmt.Fprintln(w, "✓ Ready to submit")
			return nil
		}
		fmt.Fprintf(w, "Missing %d required fields:\n", errs.Len())
		printErrors(w, errs)
	}

	if errs.Len() > 0 {
		return fmt.Errorf("%d required fields missing", errs.Len())
	}
	return nil
}

// readRecord loads and schema-checks an offer record file.
func readRecord(path string) (offer.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return offer.Record{}, fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := offer.DecodeRecord(data)
	if err != nil {
		return offer.Record{}, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}
