package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/discuits/discuitsctl/pkg/store"
)

// waitCmd represents the wait command
var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the database server to be ready",
	Long: `Wait for the database server to be ready by requesting its version.

This command will repeatedly check the server until it responds
successfully or the maximum number of retries is reached.

Example:
  discuitsctl wait
  discuitsctl wait --retries 60`,
	Run: func(cmd *cobra.Command, args []string) {
		retries, _ := cmd.Flags().GetInt("retries")

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}

		admin, err := openAdmin(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = admin.Close() }()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		version, err := waitForServer(ctx, admin, retries, time.Second, os.Stdout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Server did not become ready: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Server is ready (version %s)\n", version)
	},
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().IntP("retries", "r", 90, "Number of retries")
}

func waitForServer(ctx context.Context, health store.HealthStore, retries int, interval time.Duration, out io.Writer) (string, error) {
	if retries < 1 {
		return "", fmt.Errorf("retries must be at least 1, got %d", retries)
	}
	_, _ = fmt.Fprintln(out, "Waiting for the server to be ready...")

	var lastErr error
	for i := 0; i < retries; i++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		version, err := health.ServerVersion(attemptCtx)
		cancel()
		if err == nil {
			_, _ = fmt.Fprintln(out)
			return version, nil
		}
		lastErr = err

		_, _ = fmt.Fprint(out, ".")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(interval):
		}
	}

	_, _ = fmt.Fprintln(out)
	return "", fmt.Errorf("not ready after %d attempts: %w", retries, lastErr)
}
