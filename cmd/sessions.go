package cmd

import (
	"fmt"
	"log/slog"

	"github.com/audiolibrelab/brainconv/internal/service"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [dir]",
	Short: "List recording sessions in a directory",
	Long: `List every session (.vhdr header) found in dir, or in the current
directory if none is given, with whether its marker and data files are
present and whether it has already been converted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		svc := service.New(cfg, slog.Default())
		sessions, err := svc.ListSessions(dir)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Sessions in %s (%d found)\n", dir, len(sessions))
		fmt.Fprintf(out, "═══════════════════════════════════════\n")
		for i, s := range sessions {
			status := "ready"
			switch {
			case !s.Complete:
				status = "incomplete"
			case s.Converted:
				status = "converted"
			}
			size := s.SizeHuman
			if size == "" {
				size = "-"
			}
			fmt.Fprintf(out, "  %d. %-24s %-10s %s\n", i+1, s.Name, status, size)
		}

		return nil
	},
}
