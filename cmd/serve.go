package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server for remote control",
	Long: `Start the tunefinder web server so listening can be triggered from a
phone or any other device on the same network.

The server prints the local network URL for easy access from mobile devices.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			port, _ := cmd.Flags().GetInt("port")
			cfg.Server.Port = port
		}

		svc, err := newService(cmd)
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

		srv := server.New(cfg, svc.Controller, svc.History, svc.Themes)
		slog.Info("tunefinder web server starting", "port", cfg.Server.Port, "config", svc.ConfigFile())

		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().Int("port", 8080, "port for the web server (overrides server.port)")
}
