package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/audiolibrelab/tunefinder/internal/config"
	"github.com/audiolibrelab/tunefinder/internal/service"
)

var (
	cfg          *config.Config
	cfgFile      string
	ephemeral    bool
	verboseLevel int
)

// newService builds the shared components for a command. Tests replace it.
var newService = func(cmd *cobra.Command) (*service.Service, error) {
	return service.New(cfg, cfgFile, service.Options{
		Ephemeral: ephemeral,
		Out:       cmd.OutOrStdout(),
	})
}

var rootCmd = &cobra.Command{
	Use:   "tunefinder",
	Short: "Identify the song that is playing around you",
	Long: `tunefinder records a few seconds of audio from your microphone or any
PipeWire source and asks a music recognition service what song it is.

Recognized songs are kept in a short history (the last 20) that can be
filtered, searched and shared. Running tunefinder without a subcommand
starts listening right away, like 'tunefinder listen'.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel)

		// Use default config path if not specified
		if cfgFile == "" {
			cfgFile = config.DefaultPath()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		slog.Debug("Configuration loaded", "file", cfgFile, "storage", cfg.Storage.Backend, "ephemeral", ephemeral)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return listenCmd.RunE(cmd, args)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/tunefinder.yaml)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug, 3=PipeWire tracing")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep history and preferences in memory only")

	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(identifyCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(uiCmd)
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	var slogLevel slog.Level
	switch level {
	case 0:
		slogLevel = slog.LevelInfo
	case 1:
		slogLevel = slog.LevelDebug
	case 2, 3:
		// Level 2 and 3 both use Debug level for slog
		// Level 3 will additionally set environment variables
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	// Set environment variables for maximum tracing (level 3)
	if level >= 3 {
		os.Setenv("PIPEWIRE_DEBUG", "3")
	}
}
