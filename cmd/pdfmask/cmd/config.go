package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/pdfmask/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and manage configuration",
}

// configShowCmd prints the fully resolved configuration, after defaults,
// config file, environment, and flags have been merged.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved := GetConfigLoader().GetResolvedConfig()
		out, err := yaml.Marshal(resolved)
		if err != nil {
			return fmt.Errorf("encoding configuration: %w", err)
		}
		if used := GetConfigLoader().GetConfigFileUsed(); used != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "# loaded from %s\n", used)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))
		return nil
	},
}

// configInitCmd writes a config file populated with defaults.
var configInitCmd = &cobra.Command{
	Use:   "init [file]",
	Short: "Write a default configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := "pdfmask.yaml"
		if len(args) == 1 {
			filename = args[0]
		}
		if err := config.GenerateDefaultConfigFile(filename); err != nil {
			return fmt.Errorf("writing configuration file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", filename)
		return nil
	},
}

// configPathsCmd lists the locations searched for a config file.
var configPathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "List configuration search paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range config.GetConfigSearchPaths() {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathsCmd)
	rootCmd.AddCommand(configCmd)
}
