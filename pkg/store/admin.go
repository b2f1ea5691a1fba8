package store

import (
	"context"

	"github.com/discuits/discuitsctl/pkg/schema"
)

// HealthStore provides health check operations
type HealthStore interface {
	// ServerVersion returns the version reported by the database server
	ServerVersion(ctx context.Context) (string, error)
}

// Admin abstracts the administrative API of the database server.
//
// Creation methods return an error wrapping ErrAlreadyExists when the
// object is already present.
type Admin interface {
	HealthStore

	// CreateUser creates a user with the given password
	CreateUser(ctx context.Context, name, password string) error

	// UserExists reports whether a user is known to the server
	UserExists(ctx context.Context, name string) (bool, error)

	// DatabaseNames lists the names of all databases
	DatabaseNames(ctx context.Context) ([]string, error)

	// CreateDatabase creates an empty database
	CreateDatabase(ctx context.Context, name string) error

	// GrantDatabase sets the access level of user on database, replacing
	// any previous level
	GrantDatabase(ctx context.Context, user, database string, grant Grant) error

	// DatabaseAccess returns the access level of user on database
	DatabaseAccess(ctx context.Context, user, database string) (Grant, error)

	// UseDatabase returns a handle scoped to an existing database. It
	// returns an error wrapping ErrNotFound when the database is missing.
	UseDatabase(ctx context.Context, name string) (Database, error)

	// Close releases the connection to the server
	Close() error
}

// Database is a handle on one database. Collection operations are only
// reachable through it.
type Database interface {
	// Name returns the name of the database the handle is bound to
	Name() string

	// CreateDocumentCollection creates a document collection
	CreateDocumentCollection(ctx context.Context, name string) error

	// CreateEdgeCollection creates an edge collection
	CreateEdgeCollection(ctx context.Context, name string) error

	// Collections returns the kind of every non-system collection
	Collections(ctx context.Context) (map[string]schema.Kind, error)
}
