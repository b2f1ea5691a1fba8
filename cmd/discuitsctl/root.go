package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "discuitsctl",
	Short: "Provision the Discuits document database",
	Long: `Provision the user, database, grant and collections the Discuits
application expects, and check that they are in place.`,
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default $DISCUITS_CONFIG_PATH/discuits.yml)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
