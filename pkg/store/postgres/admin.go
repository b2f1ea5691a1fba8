package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

// SQLSTATE codes classified by this package
const (
	codeDuplicateObject   = "42710"
	codeDuplicateDatabase = "42P04"
	codeDuplicateTable    = "42P07"
	codeUndefinedObject   = "42704"
	codeUndefinedTable    = "42P01"
	codeInvalidCatalog    = "3D000"
)

// Ensure Admin implements store.Admin
var _ store.Admin = (*Admin)(nil)

// Admin implements store.Admin on a PostgreSQL server. Users are login
// roles and collections are tables in the public schema.
type Admin struct {
	db     *gorm.DB
	opener Opener

	mu    sync.Mutex
	pools map[string]*gorm.DB
}

// NewAdmin creates an Admin using db for server-level statements and opener
// for connections scoped to one database
func NewAdmin(db *gorm.DB, opener Opener) *Admin {
	return &Admin{db: db, opener: opener}
}

// ServerVersion returns the server_version setting
func (a *Admin) ServerVersion(ctx context.Context) (string, error) {
	var version string
	if err := a.db.WithContext(ctx).Raw("SHOW server_version").Row().Scan(&version); err != nil {
		return "", classify(err, "server version")
	}
	return version, nil
}

// CreateUser creates a login role. An empty password creates the role
// without one.
func (a *Admin) CreateUser(ctx context.Context, name, password string) error {
	stmt := "CREATE ROLE " + pq.QuoteIdentifier(name) + " LOGIN"
	if password != "" {
		stmt += " PASSWORD " + pq.QuoteLiteral(password)
	}
	if err := a.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return classify(err, fmt.Sprintf("user %q", name))
	}
	return nil
}

// UserExists reports whether a role with the name exists
func (a *Admin) UserExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := a.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = ?)", name).
		Row().Scan(&exists)
	if err != nil {
		return false, classify(err, fmt.Sprintf("user %q", name))
	}
	return exists, nil
}

// DatabaseNames lists every non-template database
func (a *Admin) DatabaseNames(ctx context.Context) ([]string, error) {
	rows, err := a.db.WithContext(ctx).
		Raw("SELECT datname FROM pg_database WHERE NOT datistemplate ORDER BY datname").
		Rows()
	if err != nil {
		return nil, classify(err, "list databases")
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, classify(err, "list databases")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "list databases")
	}
	return names, nil
}

// CreateDatabase creates an empty database
func (a *Admin) CreateDatabase(ctx context.Context, name string) error {
	if err := a.db.WithContext(ctx).Exec("CREATE DATABASE " + pq.QuoteIdentifier(name)).Error; err != nil {
		return classify(err, fmt.Sprintf("database %q", name))
	}
	return nil
}

// GrantDatabase replaces the privileges of user on database and on the
// tables of its public schema. Table privileges are also set as default
// privileges, so collections created later by the admin role are covered.
func (a *Admin) GrantDatabase(ctx context.Context, user, database string, grant store.Grant) error {
	var onDatabase, onTables string
	switch grant {
	case store.GrantReadWrite:
		onDatabase, onTables = "ALL PRIVILEGES", "SELECT, INSERT, UPDATE, DELETE"
	case store.GrantReadOnly:
		onDatabase, onTables = "CONNECT", "SELECT"
	case store.GrantNone:
	default:
		return fmt.Errorf("invalid grant %q", grant)
	}

	what := fmt.Sprintf("grant %s on %q to %q", grant, database, user)
	role := pq.QuoteIdentifier(user)

	on := " ON DATABASE " + pq.QuoteIdentifier(database)
	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("REVOKE ALL PRIVILEGES" + on + " FROM " + role).Error; err != nil {
			return err
		}
		if onDatabase == "" {
			return nil
		}
		return tx.Exec("GRANT " + onDatabase + on + " TO " + role).Error
	})
	if err != nil {
		return classify(err, what)
	}

	db, err := a.database(database)
	if err != nil {
		return classify(err, what)
	}
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmts := []string{
			"REVOKE ALL PRIVILEGES ON ALL TABLES IN SCHEMA public FROM " + role,
			"ALTER DEFAULT PRIVILEGES IN SCHEMA public REVOKE ALL PRIVILEGES ON TABLES FROM " + role,
		}
		if onTables != "" {
			stmts = append(stmts,
				"GRANT "+onTables+" ON ALL TABLES IN SCHEMA public TO "+role,
				"ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT "+onTables+" ON TABLES TO "+role,
			)
		}
		for _, stmt := range stmts {
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return classify(err, what)
	}
	return nil
}

// DatabaseAccess derives the access level from the effective privileges.
// Without CONNECT the level is none. When the public schema has tables,
// rw needs CREATE on the database and SELECT, INSERT, UPDATE and DELETE on
// every table, ro needs SELECT on every table. A database without tables
// falls back to the database privileges: CREATE means rw, CONNECT ro.
func (a *Admin) DatabaseAccess(ctx context.Context, user, database string) (store.Grant, error) {
	what := fmt.Sprintf("access of %q on %q", user, database)

	var canCreate, canConnect bool
	err := a.db.WithContext(ctx).
		Raw("SELECT has_database_privilege(?, ?, 'CREATE'), has_database_privilege(?, ?, 'CONNECT')",
			user, database, user, database).
		Row().Scan(&canCreate, &canConnect)
	if err != nil {
		return "", classify(err, what)
	}
	if !canConnect {
		return store.GrantNone, nil
	}

	db, err := a.database(database)
	if err != nil {
		return "", classify(err, what)
	}
	var (
		tables          int64
		canRead, canDML bool
	)
	err = db.WithContext(ctx).Raw(
		"SELECT count(*), "+
			"coalesce(bool_and(has_table_privilege(?, c.oid, 'SELECT')), false), "+
			"coalesce(bool_and(has_table_privilege(?, c.oid, 'INSERT') AND "+
			"has_table_privilege(?, c.oid, 'UPDATE') AND has_table_privilege(?, c.oid, 'DELETE')), false) "+
			"FROM pg_class c JOIN pg_namespace n ON n.oid = c.relnamespace "+
			"WHERE n.nspname = 'public' AND c.relkind IN ('r', 'p')",
		user, user, user, user).
		Row().Scan(&tables, &canRead, &canDML)
	if err != nil {
		return "", classify(err, what)
	}

	switch {
	case tables == 0 && canCreate:
		return store.GrantReadWrite, nil
	case tables == 0:
		return store.GrantReadOnly, nil
	case canCreate && canRead && canDML:
		return store.GrantReadWrite, nil
	case canRead:
		return store.GrantReadOnly, nil
	default:
		return store.GrantNone, nil
	}
}

// UseDatabase opens a connection to an existing database
func (a *Admin) UseDatabase(ctx context.Context, name string) (store.Database, error) {
	var exists bool
	err := a.db.WithContext(ctx).
		Raw("SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)", name).
		Row().Scan(&exists)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("database %q", name))
	}
	if !exists {
		return nil, fmt.Errorf("database %q: %w", name, store.ErrNotFound)
	}

	db, err := a.database(name)
	if err != nil {
		return nil, fmt.Errorf("database %q: %w", name, err)
	}
	return &Database{db: db, name: name}, nil
}

// database returns the connection pool scoped to name, opening it on
// first use
func (a *Admin) database(name string) (*gorm.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if db, ok := a.pools[name]; ok {
		return db, nil
	}
	db, err := a.opener(name)
	if err != nil {
		return nil, err
	}
	if a.pools == nil {
		a.pools = make(map[string]*gorm.DB)
	}
	a.pools[name] = db
	return db, nil
}

// Close closes the administrative connection and every pool scoped to
// one database
func (a *Admin) Close() error {
	a.mu.Lock()
	pools := []*gorm.DB{a.db}
	for _, db := range a.pools {
		pools = append(pools, db)
	}
	a.pools = nil
	a.mu.Unlock()

	var errs []error
	seen := make(map[*gorm.DB]bool)
	for _, pool := range pools {
		if seen[pool] {
			continue
		}
		seen[pool] = true

		sqlDB, err := pool.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ensure Database implements store.Database
var _ store.Database = (*Database)(nil)

// Database implements store.Database for one PostgreSQL database
type Database struct {
	db   *gorm.DB
	name string
}

// Name returns the database name
func (d *Database) Name() string {
	return d.name
}

// CreateDocumentCollection creates a table holding keyed JSON documents
func (d *Database) CreateDocumentCollection(ctx context.Context, name string) error {
	stmt := "CREATE TABLE " + pq.QuoteIdentifier(name) + " (" +
		"key text PRIMARY KEY, " +
		"doc jsonb NOT NULL DEFAULT '{}'::jsonb)"
	if err := d.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return classify(err, fmt.Sprintf("collection %q", name))
	}
	return nil
}

// CreateEdgeCollection creates a document table with _from and _to columns
func (d *Database) CreateEdgeCollection(ctx context.Context, name string) error {
	stmt := "CREATE TABLE " + pq.QuoteIdentifier(name) + " (" +
		"key text PRIMARY KEY, " +
		"_from text NOT NULL, " +
		"_to text NOT NULL, " +
		"doc jsonb NOT NULL DEFAULT '{}'::jsonb)"
	if err := d.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return classify(err, fmt.Sprintf("collection %q", name))
	}
	return nil
}

// Collections returns the tables of the public schema. Tables with a
// _from column are edge collections.
func (d *Database) Collections(ctx context.Context) (map[string]schema.Kind, error) {
	rows, err := d.db.WithContext(ctx).Raw(
		"SELECT table_name, bool_or(column_name = '_from') FROM information_schema.columns " +
			"WHERE table_schema = 'public' GROUP BY table_name ORDER BY table_name").
		Rows()
	if err != nil {
		return nil, classify(err, fmt.Sprintf("collections of %q", d.name))
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]schema.Kind)
	for rows.Next() {
		var (
			name string
			edge bool
		)
		if err := rows.Scan(&name, &edge); err != nil {
			return nil, classify(err, fmt.Sprintf("collections of %q", d.name))
		}
		if edge {
			result[name] = schema.KindEdge
		} else {
			result[name] = schema.KindDocument
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, fmt.Sprintf("collections of %q", d.name))
	}
	return result, nil
}

// sqlState extracts the SQLSTATE from pgx and lib/pq errors
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func classify(err error, what string) error {
	switch sqlState(err) {
	case codeDuplicateObject, codeDuplicateDatabase, codeDuplicateTable:
		return fmt.Errorf("%s: %w: %w", what, store.ErrAlreadyExists, err)
	case codeUndefinedObject, codeUndefinedTable, codeInvalidCatalog:
		return fmt.Errorf("%s: %w: %w", what, store.ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
