package cmd

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/service"
	"github.com/audiolibrelab/tunefinder/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Open the interactive terminal interface",
	Long: `Open a full screen interface with a Listen tab for identifying songs and a
History tab for browsing, searching, sharing and clearing past results.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(os.Stdin.Fd()) || !term.IsTerminal(os.Stdout.Fd()) {
			return errors.New("the interactive interface needs a terminal, use 'tunefinder listen' instead")
		}

		svc, err := service.New(cfg, cfgFile, service.Options{Ephemeral: ephemeral, Interactive: true})
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		go func() {
			if err := svc.Watch(ctx); err != nil {
				slog.Debug("History watch stopped", "error", err)
			}
		}()

		return tui.Run(ctx, svc)
	},
}
