package cmd

import (
	"fmt"

	"github.com/audiolibrelab/brainconv/internal/config"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View and manage brainconv configuration settings.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("error marshaling config: %w", err)
		}
		w := cmd.OutOrStdout()
		fmt.Fprint(w, string(out))

		fmt.Fprintf(w, "# inheritance\n")
		for _, key := range cfg.Inheritance.Keys() {
			fmt.Fprintf(w, "#   %s: %s\n", key, getInheritanceIndicator(cfg.Inheritance.Status(key)))
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if path == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "(none, built-in defaults; would read %s)\n", config.DefaultConfigPath())
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configUseCmd = &cobra.Command{
	Use:   "use [profile]",
	Short: "Set the active profile in the configuration file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveConfigPath()
		if err != nil {
			return err
		}
		if path == "" {
			return fmt.Errorf("no config file found, create %s or pass --config", config.DefaultConfigPath())
		}

		if err := config.UpdateActiveProfile(path, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active profile set to %s in %s\n", args[0], path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configUseCmd)
}
