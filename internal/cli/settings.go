package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/offer-form/internal/offer"
	"github.com/evcraddock/offer-form/internal/settings"
)

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change form settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsShow(cmd)
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change the logo or a placeholder",
		Long: "Sets logoUrl or one of the placeholder keys shown by 'offer settings'. " +
			"Placeholders fill blank fields on submission.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(cmd, args[0], args[1])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear <key>",
		Short: "Remove a placeholder default",
		Long:  "Removes a placeholder default so the field has no fallback and must be filled in.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(cmd, args[0], "")
		},
	})

	return cmd
}

func runSettingsShow(cmd *cobra.Command) error {
	s, err := newAPIClient().GetSettings()
	if err != nil {
		return err
	}
	if isJSON() {
		return printJSON(s)
	}
	printSettings(cmd.OutOrStdout(), s)
	return nil
}

func runSettingsSet(cmd *cobra.Command, key, value string) error {
	p, err := settingsPatch(key, value)
	if err != nil {
		return err
	}

	s, err := newAPIClient().SaveSettings(p)
	if err != nil {
		return authHint(err)
	}
	if isJSON() {
		return printJSON(s)
	}
	if len(p.Clear) > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ %s cleared\n", key)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s updated\n", key)
	return nil
}

// settingsPatch builds a patch that changes only key. A blank placeholder
// value removes that default.
func settingsPatch(key, value string) (settings.Patch, error) {
	if key == "logoUrl" {
		return settings.Patch{LogoURL: &value}, nil
	}

	var d offer.Defaults
	var names []string
	for _, f := range placeholderFields(&d) {
		if f.name != key {
			names = append(names, f.name)
			continue
		}
		if strings.TrimSpace(value) == "" {
			return settings.Patch{Clear: []string{key}}, nil
		}
		*f.ptr = value
		return settings.Patch{Placeholders: &d}, nil
	}
	return settings.Patch{}, fmt.Errorf("unknown setting %q (want logoUrl, %s)", key, strings.Join(names, ", "))
}
