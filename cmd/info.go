package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/audiolibrelab/brainconv/internal/config"
	"github.com/audiolibrelab/brainconv/internal/service"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [session]",
	Short: "Show header, markers and channel statistics for a session",
	Long: `Parse a session without writing any output and display its file paths,
sampling parameters, marker summary and per-channel statistics. The output
settings are shown with inheritance indicators for the active profile.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")

		runCfg, err := applyConvertFlags(cmd, cfg)
		if err != nil {
			return err
		}

		svc := service.New(runCfg, slog.Default())
		info, err := svc.Inspect(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("inspect failed: %w", err)
		}

		out := cmd.OutOrStdout()
		switch format {
		case "yaml":
			b, err := yaml.Marshal(info)
			if err != nil {
				return fmt.Errorf("error marshaling info: %w", err)
			}
			_, err = out.Write(b)
			return err
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "text", "":
			printInfo(out, info, runCfg)
			return nil
		default:
			return fmt.Errorf("unsupported output format: %s (valid: text, yaml, json)", format)
		}
	},
}

func printInfo(w io.Writer, info *service.SessionInfo, runCfg *config.Config) {
	fmt.Fprintf(w, "=== FILE PATHS ===\n")
	fmt.Fprintf(w, "header: %s\n", info.Paths.Header)
	fmt.Fprintf(w, "markers: %s\n", info.Paths.Markers)
	fmt.Fprintf(w, "data: %s\n", info.Paths.Data)
	fmt.Fprintf(w, "output: %s\n", info.Paths.Output)

	fmt.Fprintf(w, "\n=== RECORDING ===\n")
	fmt.Fprintf(w, "binary_format: %s\n", info.BinaryFormat)
	fmt.Fprintf(w, "sampling_rate: %g Hz\n", info.SamplingRate)
	fmt.Fprintf(w, "samples: %d\n", info.Samples)
	fmt.Fprintf(w, "duration: %s\n", info.Duration)

	fmt.Fprintf(w, "\n[Channels]\n")
	for _, ch := range info.Channels {
		fmt.Fprintf(w, "%d. %s", ch.Index, ch.Label)
		if ch.Unit != "" {
			fmt.Fprintf(w, " (%s)", ch.Unit)
		}
		fmt.Fprintf(w, ": mean=%.5f std=%.5f min=%.5f max=%.5f\n", ch.Mean, ch.StdDev, ch.Min, ch.Max)
	}

	fmt.Fprintf(w, "\n[Markers]\n")
	fmt.Fprintf(w, "converted: %d\n", info.Markers)
	for _, t := range info.Triggers {
		fmt.Fprintf(w, "  trigger %d: %d\n", t.Code, t.Count)
	}
	if len(info.Gaps) > 0 {
		fmt.Fprintf(w, "missing indices: %s\n", joinInts(info.Gaps))
	}
	if len(info.Skipped) > 0 {
		fmt.Fprintf(w, "skipped indices: %s\n", joinInts(info.Skipped))
	}

	// Output configuration
	fmt.Fprintf(w, "\n[Output] profile=%s\n", runCfg.Profile)
	inh := runCfg.Inheritance
	fmt.Fprintf(w, "directory: %q %s\n", runCfg.Output.Directory, getInheritanceIndicator(inh.Status("output.directory")))
	fmt.Fprintf(w, "precision: %d %s\n", runCfg.Output.Precision, getInheritanceIndicator(inh.Status("output.precision")))
	fmt.Fprintf(w, "width: %d %s\n", runCfg.Output.Width, getInheritanceIndicator(inh.Status("output.width")))
	fmt.Fprintf(w, "delimiter: %q %s\n", runCfg.Output.Delimiter, getInheritanceIndicator(inh.Status("output.delimiter")))
	fmt.Fprintf(w, "scan: %s %s\n", runCfg.Markers.Scan, getInheritanceIndicator(inh.Status("markers.scan")))
	fmt.Fprintf(w, "byte_order: %s %s\n", runCfg.Data.ByteOrder, getInheritanceIndicator(inh.Status("data.byte_order")))
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = fmt.Sprint(n)
	}
	return strings.Join(s, ", ")
}

// getInheritanceIndicator returns a formatted indicator for inheritance status
func getInheritanceIndicator(status string) string {
	switch status {
	case config.Inherited:
		return "[inherited]"
	case config.ProfileSpecific:
		return "[profile-specific]"
	default:
		return "[unknown]"
	}
}

func init() {
	infoCmd.Flags().StringP("format", "f", "text", "output format: text, yaml or json")
	infoCmd.Flags().String("scan", "", "marker scan mode: sequential or all (overrides config)")
	infoCmd.Flags().String("byte-order", "", "data byte order: little or big (overrides config)")
}
