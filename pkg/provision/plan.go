package provision

import (
	"fmt"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

const (
	// DefaultUser is the application user created by a default run
	DefaultUser = "discuits_test"

	// DefaultDatabase is the database created by a default run
	DefaultDatabase = "discuits_test"
)

// Plan describes the state a run converges to
type Plan struct {
	User        string
	Password    string
	Database    string
	Grant       store.Grant
	Collections schema.Table
}

// DefaultPlan returns the compiled-in provisioning plan: user and database
// discuits_test with an empty password, a read-write grant and the
// default collection table.
func DefaultPlan() Plan {
	return Plan{
		User:        DefaultUser,
		Password:    "",
		Database:    DefaultDatabase,
		Grant:       store.GrantReadWrite,
		Collections: schema.DefaultTable(),
	}
}

// Validate checks the plan before any call is issued
func (p Plan) Validate() error {
	if p.User == "" {
		return fmt.Errorf("user name is required")
	}
	if p.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if _, err := store.ParseGrant(string(p.Grant)); err != nil {
		return err
	}
	if err := p.Collections.Validate(); err != nil {
		return fmt.Errorf("invalid collections: %w", err)
	}
	return nil
}
