package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/audio"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List available audio sources",
	Long:  `List the capture sources the configured audio backend can listen to.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := audio.NewBackend(cfg.Audio)
		if err != nil {
			return err
		}

		sources, err := backend.ListSources(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get %s sources: %w", backend.Type(), err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "🎵 Audio Sources (%s, %s)\n", backend.Type(), runtime.GOOS)
		fmt.Fprintf(out, "═══════════════════════════════════════\n\n")

		if len(sources) == 0 {
			fmt.Fprintln(out, "  No sources found")
			return nil
		}
		for i, source := range sources {
			marker := " "
			if source == cfg.Audio.Source {
				marker = "*"
			}
			fmt.Fprintf(out, " %s%d. %s\n", marker, i+1, source)
		}

		fmt.Fprintf(out, "\n💡 Pick one with: tunefinder config set audio.source \"<name>\"\n")
		return nil
	},
}
