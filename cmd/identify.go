package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/audio"
)

var identifyCmd = &cobra.Command{
	Use:   "identify [file]",
	Short: "Identify the song in an audio file",
	Long: `Send an existing recording to the recognition service. When ffmpeg is
installed only audio.max_duration of audio starting at --offset is sent,
otherwise the whole file is uploaded as is.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		offset, _ := cmd.Flags().GetDuration("offset")

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory", path)
		}
		slog.Debug("Identifying file", "path", path, "size", humanize.Bytes(uint64(info.Size())), "offset", offset)
		describeFile(cmd, path, info.Size())

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		st, err := svc.IdentifyFile(cmd.Context(), path, offset)
		if err != nil {
			return fmt.Errorf("failed to identify %s: %w", path, err)
		}
		return report(cmd.OutOrStdout(), svc, st)
	},
}

// describeFile prints size and, for WAV files, the audio format
func describeFile(cmd *cobra.Command, path string, size int64) {
	line := fmt.Sprintf("📄 %s (%s)", path, humanize.Bytes(uint64(size)))

	data, err := os.ReadFile(path)
	if err == nil {
		if wi, err := audio.DescribeWAV(data); err == nil {
			line += fmt.Sprintf(" %d Hz, %d ch, %d bit, %s", wi.SampleRate, wi.Channels, wi.BitDepth, wi.Duration.Round(100*time.Millisecond))
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), line)
}

func init() {
	identifyCmd.Flags().Duration("offset", 0, "start of the excerpt to identify (e.g. 1m30s)")
}
