package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/service"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

var shareCmd = &cobra.Command{
	Use:   "share [position]",
	Short: "Share a song from the history",
	Long: `Share a history entry (the latest one by default). The configured
ui.share_command is tried first, then the clipboard, and finally the text
is printed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		t, err := pickEntry(svc, args)
		if err != nil {
			return err
		}
		_, err = svc.Share(cmd.Context(), t)
		return err
	},
}

var openCmd = &cobra.Command{
	Use:   "open [position]",
	Short: "Open a song's streaming link in the browser",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, _ := cmd.Flags().GetString("platform")

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		t, err := pickEntry(svc, args)
		if err != nil {
			return err
		}
		link, err := svc.Open(cmd.Context(), t, platform)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), link)
		return nil
	},
}

// pickEntry resolves an optional 1-based position, defaulting to the latest
func pickEntry(svc *service.Service, args []string) (track.Track, error) {
	pos := "1"
	if len(args) == 1 {
		pos = args[0]
	}
	idx, err := parsePosition(pos, svc.History.Len())
	if err != nil {
		return track.Track{}, err
	}
	t, _ := svc.History.Get(idx)
	return t, nil
}

func init() {
	openCmd.Flags().StringP("platform", "p", "", "spotify, apple, youtube or artwork (default: best available)")
}
