package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/session"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Listen and identify the song playing now",
	Long: `Record from the configured audio source until Enter is pressed, Ctrl+C is
hit or the maximum duration (audio.max_duration) is reached, then identify
the recording and print the result.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		interactive := term.IsTerminal(os.Stdout.Fd())
		maxDuration := svc.Config().Audio.MaxDuration

		// Signalled when the controller leaves Recording on its own
		stopped := make(chan struct{}, 1)
		off := svc.Controller.OnStateChange(func(st session.State) {
			if st.Phase == session.Recording {
				if interactive {
					fmt.Fprintf(out, "\r%s %s ", svc.Describe(st), formatElapsed(st.ElapsedSeconds, maxDuration))
				}
				return
			}
			select {
			case stopped <- struct{}{}:
			default:
			}
		})
		defer off()

		if err := svc.Controller.Start(ctx); err != nil {
			return fmt.Errorf("%s: %w", svc.DescribeFailure(session.AccessDenied), err)
		}
		fmt.Fprintln(out, svc.Describe(svc.Controller.Snapshot())+" Press Enter to stop.")

		enter := make(chan struct{})
		go func() {
			bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			close(enter)
		}()

		select {
		case <-enter:
		case <-stopped:
			slog.Debug("Recording stopped automatically")
		case <-ctx.Done():
		}
		// A second interrupt kills the process
		stop()

		if err := svc.Controller.Stop(context.WithoutCancel(ctx)); err != nil {
			if interactive {
				fmt.Fprintln(out)
			}
			return fmt.Errorf("%s: %w", svc.DescribeFailure(session.AccessDenied), err)
		}
		if interactive {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, svc.Describe(session.State{Phase: session.Processing}))

		st, err := svc.Controller.Await(context.WithoutCancel(ctx))
		if err != nil {
			return err
		}
		return report(out, svc, st)
	},
}
