package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/offer"
)

func newDepositCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deposit <price> <percent>",
		Short: "Calculate a deposit from a price and percentage",
		Long:  "Prints percent of price, rounded to whole dollars and formatted with thousands separators.",
		Example: `  offer deposit 1500000 10
  offer deposit '$750,000' 5`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeposit(cmd, args[0], args[1])
		},
	}
}

func runDeposit(cmd *cobra.Command, price, percent string) error {
	deposit := offer.CalculateDeposit(price, percent)
	if deposit == "" {
		return fmt.Errorf("cannot calculate a deposit from price %q and percent %q", price, percent)
	}

	if isJSON() {
		return printJSON(map[string]string{
			"price":   offer.FormatCurrency(price),
			"percent": percent,
			"deposit": deposit,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "$%s\n", deposit)
	return nil
}
