package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/discuits/discuitsctl/pkg/config"
	"github.com/discuits/discuitsctl/pkg/logging"
	"github.com/discuits/discuitsctl/pkg/provision"
	"github.com/discuits/discuitsctl/pkg/store"
	"github.com/discuits/discuitsctl/pkg/store/arangodb"
	"github.com/discuits/discuitsctl/pkg/store/memory"
	"github.com/discuits/discuitsctl/pkg/store/postgres"
)

// loadConfig loads the file named by --config, or the default location,
// and validates the result
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return loadConfigFrom(path)
}

func loadConfigFrom(path string) (*config.Config, error) {
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
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}

// openAdmin connects to the configured backend
func openAdmin(cfg *config.Config) (store.Admin, error) {
	switch cfg.Backend {
	case config.BackendArangoDB:
		admin, err := arangodb.Connect(arangodb.Config{
			Endpoints: cfg.Endpoints,
			AuthType:  arangodb.AuthType(cfg.AuthType),
			Username:  cfg.AdminUsername,
			Password:  cfg.AdminPassword,
			JWTSecret: cfg.JWTSecret,
		})
		if err != nil {
			return nil, err
		}
		return admin, nil
	case config.BackendPostgres:
		admin, err := postgres.Connect(postgres.Config{
			URL:   cfg.DatabaseURL,
			Debug: cfg.LogLevel == "debug",
		})
		if err != nil {
			return nil, err
		}
		return admin, nil
	case config.BackendMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}

// planFromConfig builds the provisioning plan described by cfg
func planFromConfig(cfg *config.Config) provision.Plan {
	return provision.Plan{
		User:        cfg.User,
		Password:    cfg.UserPassword,
		Database:    cfg.Database,
		Grant:       store.Grant(cfg.Grant),
		Collections: cfg.Collections,
	}
}
