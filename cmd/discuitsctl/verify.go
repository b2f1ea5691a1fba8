package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/discuits/discuitsctl/pkg/config"
	"github.com/discuits/discuitsctl/pkg/provision"
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the provisioned state is in place",
	Long: `Read back the user, database, grant and collections and report every
difference from the configuration. Exits 1 when anything differs.

Example:
  discuitsctl verify
  discuitsctl verify --config ./discuits.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to verify: %v\n", err)
			os.Exit(1)
		}

		ok, err := verify(cmd.Context(), cfg, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to verify: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func verify(ctx context.Context, cfg *config.Config, out io.Writer) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	admin, err := openAdmin(cfg)
	if err != nil {
		return false, err
	}
	defer func() { _ = admin.Close() }()

	v, err := provision.Verify(ctx, admin, planFromConfig(cfg))
	if err != nil {
		return false, err
	}

	if v.OK() {
		_, _ = green.Fprintf(out, "Database %s is provisioned\n", cfg.Database)
		return true, nil
	}
	for _, d := range v.Discrepancies {
		_, _ = red.Fprintln(out, d)
	}
	return false, nil
}
