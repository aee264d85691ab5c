package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/submit"
)

func newSubmitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit an offer record through the server",
		Long:  "Opens a form session, loads the record from file and submits it exactly as the web form would.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(cmd, args[0])
		},
	}
}

func runSubmit(cmd *cobra.Command, path string) error {
	r, err := readRecord(path)
	if err != nil {
		return err
	}

	c := newAPIClient()
	view, err := c.StartForm()
	if err != nil {
		return err
	}
	defer func() {
		if err := c.CloseForm(view.ID); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing form: %v\n", err)
		}
	}()

	if _, err := c.ReplaceRecord(view.ID, r); err != nil {
		return err
	}

	resp, err := c.Submit(view.ID)
	if err != nil {
		return err
	}

	if isJSON() {
		if err := printJSON(resp.Result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		switch resp.Result.Outcome {
		case submit.OutcomeSuccess:
			fmt.Fprintf(w, "✓ %s\n", resp.Result.Message)
		case submit.OutcomeBlocked:
			fmt.Fprintf(w, "Missing %d required fields:\n", resp.Result.Errors.Len())
			printErrors(w, resp.Result.Errors)
		default:
			fmt.Fprintf(w, "✗ %s\n", resp.Result.Message)
		}
	}

	if resp.Result.Outcome != submit.OutcomeSuccess {
		return fmt.Errorf("offer not sent (%s)", resp.Result.Outcome)
	}
	return nil
}
