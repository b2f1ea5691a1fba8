package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discuits/discuitsctl/pkg/config"
	"github.com/discuits/discuitsctl/pkg/provision"
)

// provisionCmd represents the provision command
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the user, database, grant and collections",
	Long: `Create the application user, the application database, the user's grant
on it and every configured collection.

Every step is attempted even when an earlier one failed, with two
exceptions. When the database could not be ensured, the grant, the database
selection and the collections are skipped. When the database could not be
selected, the collections are skipped. Failures are logged and reported;
the command still exits 0 unless --strict is set.

Use --watch to run again whenever the config file changes.

Example:
  discuitsctl provision
  discuitsctl provision --strict --metrics-file /var/lib/node_exporter/discuits.prom
  discuitsctl provision --config ./discuits.yml --watch`,
	Run: func(cmd *cobra.Command, args []string) {
		strict, _ := cmd.Flags().GetBool("strict")
		watch, _ := cmd.Flags().GetBool("watch")
		metricsFile, _ := cmd.Flags().GetString("metrics-file")
		path, _ := cmd.Flags().GetString("config")

		load := func() (*config.Config, error) {
			cfg, err := loadConfigFrom(path)
			if err != nil {
				return nil, err
			}
			if metricsFile != "" {
				cfg.MetricsFile = metricsFile
			}
			return cfg, nil
		}

		cfg, err := load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to provision: %v\n", err)
			os.Exit(1)
		}

		logger, err := newLogger(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to provision: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()

		registry := prometheus.NewRegistry()
		metrics := provision.NewMetrics(registry)

		if watch {
			if err := watchConfig(cmd.Context(), load, cfg, logger, metrics, registry); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to watch configuration: %v\n", err)
				os.Exit(1)
			}
			return
		}

		ok := runOnce(cmd.Context(), cfg, logger, metrics, registry, os.Stdout)
		if strict && !ok {
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
	provisionCmd.Flags().Bool("strict", false, "Exit 1 when any step failed")
	provisionCmd.Flags().Bool("watch", false, "Provision again whenever the config file changes")
	provisionCmd.Flags().String("metrics-file", "", "Write metrics to this file in the Prometheus text format")
}

// runOnce connects, runs the plan, prints the report and writes the
// metrics file. It reports whether every step succeeded.
func runOnce(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *provision.Metrics,
	gatherer prometheus.Gatherer, out io.Writer) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	report, err := runProvision(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("Error: Connecting to server", zap.String("backend", cfg.Backend), zap.Error(err))
		return false
	}
	printReport(out, report)

	if cfg.MetricsFile != "" {
		if err := provision.WriteTextfile(cfg.MetricsFile, gatherer); err != nil {
			logger.Error("Error: Writing metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	return report.OK()
}

// runProvision opens the backend and runs the plan. The error is only set
// when the backend could not be opened.
func runProvision(ctx context.Context, cfg *config.Config, logger *zap.Logger, metrics *provision.Metrics) (*provision.Report, error) {
	admin, err := openAdmin(cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = admin.Close() }()

	p := provision.New(admin,
		provision.WithLogger(logger.Named("provision")),
		provision.WithMetrics(metrics),
	)
	return p.Run(ctx, planFromConfig(cfg)), nil
}

// watchConfig provisions once, then again on every change of the config
// file, until interrupted. Runs never overlap.
func watchConfig(ctx context.Context, load func() (*config.Config, error), cfg *config.Config, logger *zap.Logger,
	metrics *provision.Metrics, gatherer prometheus.Gatherer) error {
	filename := cfg.ConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory; editors replace the file rather than write it
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(filename), err)
	}

	runOnce(ctx, cfg, logger, metrics, gatherer, os.Stdout)
	logger.Info("Watching for configuration changes", zap.String("path", filename))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(filename) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			logger.Info("Configuration changed, provisioning", zap.String("op", event.Op.String()))
			next, err := load()
			if err != nil {
				logger.Error("Error: Reloading configuration", zap.Error(err))
				continue
			}
			runOnce(ctx, next, logger, metrics, gatherer, os.Stdout)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error", zap.Error(err))
		case <-sigChan:
			logger.Info("Shutting down")
			return nil
		}
	}
}
