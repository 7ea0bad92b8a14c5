package cmd

import (
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/brainconv/internal/config"
	"github.com/audiolibrelab/brainconv/internal/service"

	"github.com/spf13/cobra"
)

// convertSessions converts each session in order and stops at the first failure.
func convertSessions(cmd *cobra.Command, runCfg *config.Config, sessions []string, verify bool) error {
	ctx := cmd.Context()

	// Create service instance
	svc := service.New(runCfg, slog.Default())

	for i, session := range sessions {
		if len(sessions) > 1 {
			slog.Info("Converting session", "step", fmt.Sprintf("%d/%d", i+1, len(sessions)), "session", session)
		}

		result, err := svc.Convert(ctx, session, service.ConvertOptions{Verify: verify})
		if err != nil {
			return fmt.Errorf("conversion of %s failed: %w", session, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s (%d samples, %d channels, %d markers)\n",
			session, result.OutputFile, result.Samples, result.Channels, result.Markers)
		if result.Verified {
			fmt.Fprintf(cmd.OutOrStdout(), "  verified %s\n", result.OutputFile)
		}
	}

	return nil
}
