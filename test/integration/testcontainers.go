package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	driver "github.com/arangodb/go-driver"
	"github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/discuits/discuitsctl/pkg/store"
	"github.com/discuits/discuitsctl/pkg/store/arangodb"
	"github.com/discuits/discuitsctl/pkg/store/memory"
	"github.com/discuits/discuitsctl/pkg/store/postgres"
)

// errRollback discards a transaction that otherwise succeeded
var errRollback = errors.New("rollback")

// TestContext holds the database server a feature run talks to
type TestContext struct {
	Backend   string
	Container testcontainers.Container

	// open connects a new admin client
	open func() (store.Admin, error)
	// reset removes everything a scenario may have provisioned
	reset func(ctx context.Context, user, database string) error
	// close releases resources held by the context itself
	close func() error
	// writeAs reads and writes a collection as user, when the backend
	// supports switching roles
	writeAs func(ctx context.Context, user, database, collection string) error
}

// Open connects a new admin client
func (tc *TestContext) Open() (store.Admin, error) {
	return tc.open()
}

// Reset brings the server back to its empty state
func (tc *TestContext) Reset(ctx context.Context, user, database string) error {
	if tc.reset == nil {
		return nil
	}
	return tc.reset(ctx, user, database)
}

// WriteAs inserts, updates, reads and deletes a document in collection
// with the privileges of user. Nothing is left behind.
func (tc *TestContext) WriteAs(ctx context.Context, user, database, collection string) error {
	if tc.writeAs == nil {
		return fmt.Errorf("backend %s cannot act as another user", tc.Backend)
	}
	return tc.writeAs(ctx, user, database, collection)
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.close != nil {
		_ = tc.close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}

// NewMemoryContext creates a context backed by the in-process store. Every
// reset starts from a fresh server.
func NewMemoryContext() *TestContext {
	tc := &TestContext{Backend: "memory"}
	current := memory.New()
	tc.open = func() (store.Admin, error) {
		return current, nil
	}
	tc.reset = func(context.Context, string, string) error {
		current = memory.New()
		return nil
	}
	return tc
}

// NewArangoDBContext starts an ArangoDB container without authentication
func NewArangoDBContext(ctx context.Context) (*TestContext, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "arangodb:3.11",
			ExposedPorts: []string{"8529/tcp"},
			Env:          map[string]string{"ARANGO_NO_AUTH": "1"},
			WaitingFor: wait.ForHTTP("/_api/version").
				WithPort("8529/tcp").
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start arangodb container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "8529/tcp", "http")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get container endpoint: %w", err)
	}
	cfg := arangodb.Config{Endpoints: []string{endpoint}, AuthType: arangodb.AuthNone}

	// A raw client for cleanup, which the store interface does not offer
	cleanup, err := arangodb.NewClient(cfg)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, err
	}

	return &TestContext{
		Backend:   "arangodb",
		Container: container,
		open: func() (store.Admin, error) {
			return arangodb.Connect(cfg)
		},
		reset: func(ctx context.Context, user, database string) error {
			if db, err := cleanup.Database(ctx, database); err == nil {
				if err := db.Remove(ctx); err != nil {
					return fmt.Errorf("failed to drop database %s: %w", database, err)
				}
			} else if !driver.IsNotFound(err) {
				return err
			}
			if u, err := cleanup.User(ctx, user); err == nil {
				if err := u.Remove(ctx); err != nil {
					return fmt.Errorf("failed to drop user %s: %w", user, err)
				}
			} else if !driver.IsNotFound(err) {
				return err
			}
			return nil
		},
	}, nil
}

// NewPostgresContext starts a PostgreSQL container
func NewPostgresContext(ctx context.Context) (*TestContext, error) {
	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	// Connect with GORM for cleanup between scenarios
	db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
		DSN:                  connStr,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &TestContext{
		Backend:   "postgres",
		Container: pgContainer,
		open: func() (store.Admin, error) {
			return postgres.Connect(postgres.Config{URL: connStr})
		},
		reset: func(ctx context.Context, user, database string) error {
			stmts := []string{
				fmt.Sprintf(`DROP DATABASE IF EXISTS %q WITH (FORCE)`, database),
				fmt.Sprintf(`DROP ROLE IF EXISTS %q`, user),
			}
			for _, stmt := range stmts {
				if err := db.WithContext(ctx).Exec(stmt).Error; err != nil {
					return fmt.Errorf("failed to reset server: %w", err)
				}
			}
			return nil
		},
		writeAs: func(ctx context.Context, user, database, collection string) error {
			dsn, err := postgres.WithDatabase(connStr, database)
			if err != nil {
				return err
			}
			target, err := gorm.Open(gormpostgres.New(gormpostgres.Config{
				DSN:                  dsn,
				PreferSimpleProtocol: true,
			}), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Silent),
			})
			if err != nil {
				return fmt.Errorf("failed to connect to %s: %w", database, err)
			}
			defer func() {
				if sqlDB, err := target.DB(); err == nil {
					_ = sqlDB.Close()
				}
			}()

			table := pq.QuoteIdentifier(collection)
			err = target.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
				stmts := []string{
					"SET LOCAL ROLE " + pq.QuoteIdentifier(user),
					"INSERT INTO " + table + " (key) VALUES ('discuits-write-check')",
					"UPDATE " + table + ` SET doc = '{"checked": true}' WHERE key = 'discuits-write-check'`,
					"SELECT key FROM " + table + " WHERE key = 'discuits-write-check'",
					"DELETE FROM " + table + " WHERE key = 'discuits-write-check'",
				}
				for _, stmt := range stmts {
					if err := tx.Exec(stmt).Error; err != nil {
						return err
					}
				}
				return errRollback
			})
			if errors.Is(err, errRollback) {
				return nil
			}
			return err
		},
		close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}, nil
}
