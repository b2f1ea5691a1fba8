package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

// Version is reported by ServerVersion
const Version = "memory"

// Op names an administrative call
type Op string

const (
	OpServerVersion            Op = "server_version"
	OpCreateUser               Op = "create_user"
	OpUserExists               Op = "user_exists"
	OpDatabaseNames            Op = "database_names"
	OpCreateDatabase           Op = "create_database"
	OpGrantDatabase            Op = "grant_database"
	OpDatabaseAccess           Op = "database_access"
	OpUseDatabase              Op = "use_database"
	OpCreateDocumentCollection Op = "create_document_collection"
	OpCreateEdgeCollection     Op = "create_edge_collection"
	OpCollections              Op = "collections"
)

// Call is one recorded administrative call
type Call struct {
	Op Op
	// Name is the object the call targets, if any
	Name string
	// Database is the database a collection call was issued through
	Database string
	// Active is the database most recently selected with UseDatabase at
	// the time of the call
	Active string
}

// Ensure Admin implements store.Admin
var _ store.Admin = (*Admin)(nil)

// Admin is an in-process store.Admin
type Admin struct {
	mu        sync.Mutex
	users     map[string]string
	databases map[string]map[string]schema.Kind
	grants    map[string]store.Grant
	active    string
	calls     []Call
	failures  map[failure]error
	closed    bool
}

type failure struct {
	op   Op
	name string
}

// New returns an empty server
func New() *Admin {
	return &Admin{
		users:     make(map[string]string),
		databases: make(map[string]map[string]schema.Kind),
		grants:    make(map[string]store.Grant),
		failures:  make(map[failure]error),
	}
}

// FailOn makes every call of op targeting name return err. An empty name
// matches every target of op.
func (a *Admin) FailOn(op Op, name string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures[failure{op: op, name: name}] = err
}

// ClearFailures removes all injected failures
func (a *Admin) ClearFailures() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = make(map[failure]error)
}

// Calls returns a copy of the recorded calls
func (a *Admin) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	calls := make([]Call, len(a.calls))
	copy(calls, a.calls)
	return calls
}

// CallsOf returns the recorded calls of the given operations
func (a *Admin) CallsOf(ops ...Op) []Call {
	var matched []Call
	for _, c := range a.Calls() {
		for _, op := range ops {
			if c.Op == op {
				matched = append(matched, c)
				break
			}
		}
	}
	return matched
}

// ResetCalls forgets the recorded calls
func (a *Admin) ResetCalls() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = nil
}

// Closed reports whether Close was called
func (a *Admin) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// record must be called with the lock held
func (a *Admin) record(op Op, name, database string) error {
	a.calls = append(a.calls, Call{Op: op, Name: name, Database: database, Active: a.active})
	if err, ok := a.failures[failure{op: op, name: name}]; ok {
		return err
	}
	if err, ok := a.failures[failure{op: op}]; ok {
		return err
	}
	return nil
}

func (a *Admin) ServerVersion(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpServerVersion, "", ""); err != nil {
		return "", err
	}
	return Version, nil
}

func (a *Admin) CreateUser(ctx context.Context, name, password string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpCreateUser, name, ""); err != nil {
		return err
	}
	if _, ok := a.users[name]; ok {
		return fmt.Errorf("user %q: %w", name, store.ErrAlreadyExists)
	}
	a.users[name] = password
	return nil
}

func (a *Admin) UserExists(ctx context.Context, name string) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpUserExists, name, ""); err != nil {
		return false, err
	}
	_, ok := a.users[name]
	return ok, nil
}

func (a *Admin) DatabaseNames(ctx context.Context) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpDatabaseNames, "", ""); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(a.databases))
	for name := range a.databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (a *Admin) CreateDatabase(ctx context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpCreateDatabase, name, ""); err != nil {
		return err
	}
	if _, ok := a.databases[name]; ok {
		return fmt.Errorf("database %q: %w", name, store.ErrAlreadyExists)
	}
	a.databases[name] = make(map[string]schema.Kind)
	return nil
}

func (a *Admin) GrantDatabase(ctx context.Context, user, database string, grant store.Grant) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpGrantDatabase, user+"@"+database, ""); err != nil {
		return err
	}
	if _, ok := a.users[user]; !ok {
		return fmt.Errorf("user %q: %w", user, store.ErrNotFound)
	}
	if _, ok := a.databases[database]; !ok {
		return fmt.Errorf("database %q: %w", database, store.ErrNotFound)
	}
	a.grants[user+"@"+database] = grant
	return nil
}

func (a *Admin) DatabaseAccess(ctx context.Context, user, database string) (store.Grant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpDatabaseAccess, user+"@"+database, ""); err != nil {
		return "", err
	}
	if grant, ok := a.grants[user+"@"+database]; ok {
		return grant, nil
	}
	return store.GrantNone, nil
}

func (a *Admin) UseDatabase(ctx context.Context, name string) (store.Database, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpUseDatabase, name, ""); err != nil {
		return nil, err
	}
	if _, ok := a.databases[name]; !ok {
		return nil, fmt.Errorf("database %q: %w", name, store.ErrNotFound)
	}
	a.active = name
	return &database{admin: a, name: name}, nil
}

func (a *Admin) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

type database struct {
	admin *Admin
	name  string
}

func (d *database) Name() string {
	return d.name
}

func (d *database) CreateDocumentCollection(ctx context.Context, name string) error {
	return d.create(OpCreateDocumentCollection, name, schema.KindDocument)
}

func (d *database) CreateEdgeCollection(ctx context.Context, name string) error {
	return d.create(OpCreateEdgeCollection, name, schema.KindEdge)
}

func (d *database) create(op Op, name string, kind schema.Kind) error {
	a := d.admin
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(op, name, d.name); err != nil {
		return err
	}
	collections, ok := a.databases[d.name]
	if !ok {
		return fmt.Errorf("database %q: %w", d.name, store.ErrNotFound)
	}
	if _, ok := collections[name]; ok {
		return fmt.Errorf("collection %q: %w", name, store.ErrAlreadyExists)
	}
	collections[name] = kind
	return nil
}

func (d *database) Collections(ctx context.Context) (map[string]schema.Kind, error) {
	a := d.admin
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.record(OpCollections, "", d.name); err != nil {
		return nil, err
	}
	collections, ok := a.databases[d.name]
	if !ok {
		return nil, fmt.Errorf("database %q: %w", d.name, store.ErrNotFound)
	}
	result := make(map[string]schema.Kind, len(collections))
	for name, kind := range collections {
		result[name] = kind
	}
	return result, nil
}
