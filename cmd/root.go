package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/brainconv/internal/config"

	"github.com/spf13/cobra"
)

var (
	cfg          *config.Config
	cfgFile      string
	profile      string
	verboseLevel int
)

var rootCmd = &cobra.Command{
	Use:   "brainconv [session]",
	Short: "Convert BrainVision EEG recordings to tab-delimited text",
	Long: `brainconv converts a BrainVision recording session (.vhdr header,
.vmrk markers and .eeg binary data) into a single tab-delimited text table.

Each row holds one sample of every channel followed by a Trigger column
carrying the trigger code of any marker placed on that sample.

When a session is provided, it acts as 'brainconv convert [session]'.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Configure slog based on verbose level
		setupLogging(verboseLevel)

		configPath, err := resolveConfigPath()
		if err != nil {
			return err
		}

		cfg, err = config.LoadWithProfile(configPath, profile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		slog.Debug("Configuration loaded", "file", configPath, "profile", cfg.Profile)

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// If a session is provided, delegate to convert command
		if len(args) == 1 {
			return runConvert(cmd, args)
		}
		// Otherwise show help
		return cmd.Help()
	},
}

// Execute runs the root command, cancelling the conversion on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/brainconv.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "configuration profile to use (overrides active_profile from file)")
	rootCmd.PersistentFlags().IntVarP(&verboseLevel, "verbose", "v", 0, "verbose level: 0=info, 1=debug")

	// Add flags for direct session conversion
	addConvertFlags(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(configCmd)
}

// resolveConfigPath returns the config file to load. An explicit --config
// must exist; the default path is used only when present.
func resolveConfigPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}

	path := config.DefaultConfigPath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("failed to stat config file %s: %w", path, err)
	}
	return path, nil
}

// setupLogging configures slog based on the verbose level
func setupLogging(level int) {
	slogLevel := slog.LevelInfo
	if level >= 1 {
		slogLevel = slog.LevelDebug
	}

	// Configure text handler for clean terminal output
	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(os.Stderr, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)
}
