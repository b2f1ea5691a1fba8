package arangodb

import (
	"context"
	"fmt"
	"strings"

	driver "github.com/arangodb/go-driver"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

// Ensure Admin implements store.Admin
var _ store.Admin = (*Admin)(nil)

// Admin implements store.Admin on top of an ArangoDB client
type Admin struct {
	client driver.Client
}

// NewAdmin wraps an existing client
func NewAdmin(client driver.Client) *Admin {
	return &Admin{client: client}
}

// ServerVersion returns the server version string
func (a *Admin) ServerVersion(ctx context.Context) (string, error) {
	info, err := a.client.Version(ctx)
	if err != nil {
		return "", classify(err, "server version")
	}
	return string(info.Version), nil
}

// CreateUser creates an active user
func (a *Admin) CreateUser(ctx context.Context, name, password string) error {
	active := true
	_, err := a.client.CreateUser(ctx, name, &driver.UserOptions{
		Password: password,
		Active:   &active,
	})
	if err != nil {
		return classify(err, fmt.Sprintf("user %q", name))
	}
	return nil
}

// UserExists reports whether the user is known to the server
func (a *Admin) UserExists(ctx context.Context, name string) (bool, error) {
	ok, err := a.client.UserExists(ctx, name)
	if err != nil {
		return false, classify(err, fmt.Sprintf("user %q", name))
	}
	return ok, nil
}

// DatabaseNames lists every database, including _system
func (a *Admin) DatabaseNames(ctx context.Context) ([]string, error) {
	dbs, err := a.client.Databases(ctx)
	if err != nil {
		return nil, classify(err, "list databases")
	}
	names := make([]string, 0, len(dbs))
	for _, db := range dbs {
		names = append(names, db.Name())
	}
	return names, nil
}

// CreateDatabase creates an empty database
func (a *Admin) CreateDatabase(ctx context.Context, name string) error {
	if _, err := a.client.CreateDatabase(ctx, name, nil); err != nil {
		return classify(err, fmt.Sprintf("database %q", name))
	}
	return nil
}

// GrantDatabase sets the access level of user on database
func (a *Admin) GrantDatabase(ctx context.Context, user, database string, grant store.Grant) error {
	u, err := a.client.User(ctx, user)
	if err != nil {
		return classify(err, fmt.Sprintf("user %q", user))
	}
	db, err := a.client.Database(ctx, database)
	if err != nil {
		return classify(err, fmt.Sprintf("database %q", database))
	}
	level, err := driverGrant(grant)
	if err != nil {
		return err
	}
	if err := u.SetDatabaseAccess(ctx, db, level); err != nil {
		return classify(err, fmt.Sprintf("grant %s on %q to %q", grant, database, user))
	}
	return nil
}

// DatabaseAccess returns the access level of user on database
func (a *Admin) DatabaseAccess(ctx context.Context, user, database string) (store.Grant, error) {
	u, err := a.client.User(ctx, user)
	if err != nil {
		return "", classify(err, fmt.Sprintf("user %q", user))
	}
	db, err := a.client.Database(ctx, database)
	if err != nil {
		return "", classify(err, fmt.Sprintf("database %q", database))
	}
	level, err := u.GetDatabaseAccess(ctx, db)
	if err != nil {
		return "", classify(err, fmt.Sprintf("access of %q on %q", user, database))
	}
	return storeGrant(level)
}

// UseDatabase returns a handle on an existing database
func (a *Admin) UseDatabase(ctx context.Context, name string) (store.Database, error) {
	db, err := a.client.Database(ctx, name)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("database %q", name))
	}
	return &Database{db: db}, nil
}

// Close is a no-op; the HTTP connection holds no dedicated resources
func (a *Admin) Close() error {
	return nil
}

// Ensure Database implements store.Database
var _ store.Database = (*Database)(nil)

// Database implements store.Database for one ArangoDB database
type Database struct {
	db driver.Database
}

// Name returns the database name
func (d *Database) Name() string {
	return d.db.Name()
}

// CreateDocumentCollection creates a document collection
func (d *Database) CreateDocumentCollection(ctx context.Context, name string) error {
	return d.createCollection(ctx, name, driver.CollectionTypeDocument)
}

// CreateEdgeCollection creates an edge collection
func (d *Database) CreateEdgeCollection(ctx context.Context, name string) error {
	return d.createCollection(ctx, name, driver.CollectionTypeEdge)
}

func (d *Database) createCollection(ctx context.Context, name string, kind driver.CollectionType) error {
	_, err := d.db.CreateCollection(ctx, name, &driver.CreateCollectionOptions{
		Type: kind,
	})
	if err != nil {
		return classify(err, fmt.Sprintf("collection %q", name))
	}
	return nil
}

// Collections returns the kind of every non-system collection
func (d *Database) Collections(ctx context.Context) (map[string]schema.Kind, error) {
	cols, err := d.db.Collections(ctx)
	if err != nil {
		return nil, classify(err, fmt.Sprintf("collections of %q", d.db.Name()))
	}

	result := make(map[string]schema.Kind, len(cols))
	for _, col := range cols {
		if strings.HasPrefix(col.Name(), "_") {
			continue
		}
		props, err := col.Properties(ctx)
		if err != nil {
			return nil, classify(err, fmt.Sprintf("collection %q", col.Name()))
		}
		if props.IsSystem {
			continue
		}
		result[col.Name()] = schemaKind(props.Type)
	}
	return result, nil
}

// classify maps driver errors onto the store sentinels, keeping the
// original error in the chain
func classify(err error, what string) error {
	switch {
	case driver.IsConflict(err):
		return fmt.Errorf("%s: %w: %w", what, store.ErrAlreadyExists, err)
	case driver.IsNotFound(err):
		return fmt.Errorf("%s: %w: %w", what, store.ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func driverGrant(grant store.Grant) (driver.Grant, error) {
	switch grant {
	case store.GrantReadWrite:
		return driver.GrantReadWrite, nil
	case store.GrantReadOnly:
		return driver.GrantReadOnly, nil
	case store.GrantNone:
		return driver.GrantNone, nil
	default:
		return "", fmt.Errorf("invalid grant %q", grant)
	}
}

// grantUndefined is the level the server reports for a database that was
// never granted; the v1 driver has no constant for it.
const grantUndefined = driver.Grant("undefined")

// storeGrant maps an access level read from the server. A level that was
// never set on the database reads as undefined and means no access.
func storeGrant(level driver.Grant) (store.Grant, error) {
	switch level {
	case driver.GrantReadWrite:
		return store.GrantReadWrite, nil
	case driver.GrantReadOnly:
		return store.GrantReadOnly, nil
	case driver.GrantNone, grantUndefined:
		return store.GrantNone, nil
	default:
		return "", fmt.Errorf("unexpected access level %q", level)
	}
}

// unknownKind is reported for collection types other than document and edge
const unknownKind = schema.Kind(-1)

func schemaKind(t driver.CollectionType) schema.Kind {
	switch t {
	case driver.CollectionTypeDocument:
		return schema.KindDocument
	case driver.CollectionTypeEdge:
		return schema.KindEdge
	default:
		return unknownKind
	}
}
