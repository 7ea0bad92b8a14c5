package cmd

import (
	"fmt"

	"github.com/audiolibrelab/brainconv/internal/config"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [session...]",
	Short: "Convert one or more sessions to text tables",
	Long: `Convert each session to <session>.txt. A session is named by the path
shared by its .vhdr, .vmrk and .eeg files, with or without one of those
extensions. Sessions are converted one after another; the first failure
stops the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
}

// addConvertFlags registers the conversion overrides on cmd.
func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output-dir", "o", "", "output directory (overrides config, default is next to the input files)")
	cmd.Flags().String("scan", "", "marker scan mode: sequential or all (overrides config)")
	cmd.Flags().String("byte-order", "", "data byte order: little or big (overrides config)")
	cmd.Flags().Int("precision", 0, "digits after the decimal point (overrides config)")
	cmd.Flags().Bool("verify", false, "re-read the written table and compare it with the decoded data")
}

func runConvert(cmd *cobra.Command, args []string) error {
	runCfg, err := applyConvertFlags(cmd, cfg)
	if err != nil {
		return err
	}

	verify, _ := cmd.Flags().GetBool("verify")

	return convertSessions(cmd, runCfg, args, verify)
}

// applyConvertFlags returns a copy of base with the command line overrides applied.
func applyConvertFlags(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	runCfg := *base
	flags := cmd.Flags()

	if flags.Changed("output-dir") {
		runCfg.Output.Directory, _ = flags.GetString("output-dir")
	}
	if flags.Changed("scan") {
		runCfg.Markers.Scan, _ = flags.GetString("scan")
	}
	if flags.Changed("byte-order") {
		runCfg.Data.ByteOrder, _ = flags.GetString("byte-order")
	}
	if flags.Changed("precision") {
		runCfg.Output.Precision, _ = flags.GetInt("precision")
	}

	if err := runCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid option: %w", err)
	}

	return &runCfg, nil
}
