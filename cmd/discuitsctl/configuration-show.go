package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/discuits/discuitsctl/pkg/config"
)

// configurationShowCmd represents the configuration show command
var configurationShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show configuration attributes and their sources",
	Long: `Show configuration attributes and their sources.

Secrets are redacted. The configuration is not validated, so this command
also helps to find out why another command rejects it.

Config file location: /etc/discuits/config/discuits.yml (or DISCUITS_CONFIG_PATH)

Example:
  discuitsctl configuration show
  discuitsctl configuration show --output json`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		path, _ := cmd.Flags().GetString("config")

		if err := showConfiguration(path, output, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to show configuration: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	configurationCmd.AddCommand(configurationShowCmd)
	configurationShowCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
}

func showConfiguration(path, output string, out io.Writer) error {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if output == "json" {
		jsonOutput, err := cfg.FormatJSON()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, jsonOutput)
		return nil
	}

	_, _ = fmt.Fprint(out, cfg.FormatText())
	return nil
}
