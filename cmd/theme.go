package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/prefs"
)

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light|toggle]",
	Short:     "Show or change the colour theme",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dark", "light", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		var theme prefs.Theme
		switch {
		case len(args) == 0:
			theme, err = svc.Themes.Get()
		case args[0] == "toggle":
			theme, err = svc.Themes.Toggle()
		default:
			theme, err = prefs.ParseTheme(args[0])
			if err != nil {
				return err
			}
			err = svc.Themes.Set(theme)
		}
		if err != nil {
			return fmt.Errorf("failed to update theme: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), theme)
		return nil
	},
}
