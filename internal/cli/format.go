package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/roster"
	"github.com/evcraddock/offer-form/internal/settings"
	"github.com/evcraddock/offer-form/internal/shortlink"
)

// printJSON marshals v as indented JSON and writes it to stdout.
func printJSON(v interface{}) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printAgentTable prints the roster as a formatted table.
func printAgentTable(w io.Writer, agents []roster.Agent) error {
	if len(agents) == 0 {
		fmt.Fprintln(w, "No agents found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tNAME\tEMAIL\tMOBILE\tTITLE"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "--\t----\t-----\t------\t-----"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, a := range agents {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			a.ID, truncate(a.Name, 30), a.Email, dash(a.Mobile), truncate(dash(a.Title), 30)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d agents\n", len(agents))
	return nil
}

// printLinkTable prints short links, newest first.
func printLinkTable(w io.Writer, links []shortlink.Link, baseURL string) error {
	if len(links) == 0 {
		fmt.Fprintln(w, "No links found.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "CREATED\tAGENT\tADDRESS\tURL"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}

	for _, l := range links {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			l.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(l.Agent, 24), truncate(l.Address, 40),
			shortlink.URL(baseURL, l.ID)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	return tw.Flush()
}

// printSettings prints the settings document in text format.
func printSettings(w io.Writer, s *settings.Settings) {
	fmt.Fprintf(w, "Logo:  %s\n", dash(s.LogoURL))
	if s.UpdatedAt != nil {
		fmt.Fprintf(w, "Saved: %s\n", s.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(w, "\nPlaceholders:")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, f := range placeholderFields(&s.Placeholders) {
		fmt.Fprintf(tw, "  %s\t%s\n", f.name, dash(*f.ptr))
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: flushing table: %v\n", err)
	}
}

// placeholderField names one settable placeholder.
type placeholderField struct {
	name string
	ptr  *string
}

func placeholderFields(d *offer.Defaults) []placeholderField {
	return []placeholderField{
		{"purchasePrice", &d.PurchasePrice},
		{"initialDeposit", &d.InitialDeposit},
		{"initialDepositPercent", &d.InitialDepositPercent},
		{"balanceDeposit", &d.BalanceDeposit},
		{"balanceDepositPercent", &d.BalanceDepositPercent},
		{"balanceDepositTerms", &d.BalanceDepositTerms},
		{"financeDate", &d.FinanceDate},
		{"inspectionDate", &d.InspectionDate},
		{"settlementDate", &d.SettlementDate},
		{"specialConditions", &d.SpecialConditions},
	}
}

// printErrors prints validation errors in display order.
func printErrors(w io.Writer, errs offer.Errors) {
	for _, fe := range errs {
		fmt.Fprintf(w, "  ✗ %s\n", fe.Message)
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
