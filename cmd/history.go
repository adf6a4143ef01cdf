package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/history"
	"github.com/audiolibrelab/tunefinder/internal/locale"
	"github.com/audiolibrelab/tunefinder/internal/track"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recently identified songs",
	Long: `List the last identified songs, newest first. Positions shown here are
accepted by 'history show', 'share' and 'open'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		scopeName, _ := cmd.Flags().GetString("scope")
		term, _ := cmd.Flags().GetString("search")
		asJSON, _ := cmd.Flags().GetBool("json")

		scope, err := history.ParseScope(scopeName)
		if err != nil {
			return err
		}

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		entries := svc.History.Filter(scope, term)
		out := cmd.OutOrStdout()

		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if entries == nil {
				entries = []track.Track{}
			}
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(out, svc.Printer.Sprintf(locale.MsgHistoryEmpty))
			return nil
		}

		all := svc.History.Entries()
		for _, t := range entries {
			fmt.Fprintf(out, "%3d. %s - %s (%s)\n", positionOf(all, t), t.Title, t.Artist, humanize.Time(t.RecordedTime()))
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show [position]",
	Short: "Show the details of a history entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		idx, err := parsePosition(args[0], svc.History.Len())
		if err != nil {
			return err
		}
		t, _ := svc.History.Get(idx)
		svc.Controller.Select(t)
		return report(cmd.OutOrStdout(), svc, svc.Controller.Snapshot())
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every entry from the history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		out := cmd.OutOrStdout()
		if !yes {
			fmt.Fprint(out, svc.Printer.Sprintf(locale.MsgConfirmClear))
			answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
				fmt.Fprintln(out, "Aborted")
				return nil
			}
		}

		if err := svc.History.Clear(); err != nil {
			return fmt.Errorf("failed to clear history: %w", err)
		}
		fmt.Fprintln(out, svc.Printer.Sprintf(locale.MsgHistoryCleared))
		return nil
	},
}

// positionOf returns the 1-based position of t in the full history
func positionOf(all []track.Track, t track.Track) int {
	for i, e := range all {
		if e.SameAs(t) {
			return i + 1
		}
	}
	return 0
}

func init() {
	historyCmd.Flags().String("scope", "all", "time window: all, today or week")
	historyCmd.Flags().StringP("search", "s", "", "only entries whose title or artist contains this text")
	historyCmd.Flags().Bool("json", false, "print entries as JSON")

	historyClearCmd.Flags().BoolP("yes", "y", false, "do not ask for confirmation")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}
