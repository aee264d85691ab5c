package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/roster"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Manage the agent roster",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgentsList(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List agents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAgentsList(cmd)
			},
		},
		newAgentsAddCmd(),
		&cobra.Command{
			Use:   "remove <id>",
			Short: "Remove an agent",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid agent ID: %s", args[0])
				}
				return runAgentsRemove(cmd, id)
			},
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Add the default office roster",
			Long:  "Adds every default agent whose name is not already on the roster.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAgentsSeed(cmd)
			},
		},
	)

	return cmd
}

func newAgentsAddCmd() *cobra.Command {
	var a roster.Agent

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Name = args[0]
			return runAgentsAdd(cmd, a)
		},
	}

	cmd.Flags().StringVar(&a.Email, "email", "", "agent email address")
	cmd.Flags().StringVar(&a.Mobile, "mobile", "", "agent mobile number")
	cmd.Flags().StringVar(&a.Title, "title", "", "agent title")
	cmd.Flags().StringVar(&a.Photo, "photo", "", "agent photo URL")

	return cmd
}

func runAgentsList(cmd *cobra.Command) error {
	agents, err := newAPIClient().ListAgents()
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(agents)
	}
	return printAgentTable(cmd.OutOrStdout(), agents)
}

func runAgentsAdd(cmd *cobra.Command, a roster.Agent) error {
	out, err := newAPIClient().AddAgent(a)
	if err != nil {
		return authHint(err)
	}
	if isJSON() {
		return printJSON(out)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added agent #%d %s\n", out.ID, out.Name)
	return nil
}

func runAgentsRemove(cmd *cobra.Command, id int64) error {
	if err := newAPIClient().DeleteAgent(id); err != nil {
		return authHint(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed agent #%d\n", id)
	return nil
}

func runAgentsSeed(cmd *cobra.Command) error {
	n, err := newAPIClient().SeedAgents()
	if err != nil {
		return authHint(err)
	}
	if isJSON() {
		return printJSON(map[string]int{"added": n})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %d agents\n", n)
	return nil
}
