package provision

import (
	"context"
	"fmt"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

// Verification lists the differences between a plan and the server
type Verification struct {
	Discrepancies []string
}

// OK reports whether the server matches the plan
func (v *Verification) OK() bool {
	return len(v.Discrepancies) == 0
}

func (v *Verification) addf(format string, args ...interface{}) {
	v.Discrepancies = append(v.Discrepancies, fmt.Sprintf(format, args...))
}

// Verify reads back the user, database, grant and collections of plan.
// Collections with an unrecognized kind are not checked. The error is
// only set when the server could not be queried.
func Verify(ctx context.Context, admin store.Admin, plan Plan) (*Verification, error) {
	v := &Verification{}

	exists, err := admin.UserExists(ctx, plan.User)
	if err != nil {
		return nil, fmt.Errorf("failed to check user %q: %w", plan.User, err)
	}
	if !exists {
		v.addf("user %s does not exist", plan.User)
	}

	names, err := admin.DatabaseNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}
	found := false
	for _, name := range names {
		if name == plan.Database {
			found = true
			break
		}
	}
	if !found {
		v.addf("database %s does not exist", plan.Database)
		return v, nil
	}

	if exists {
		grant, err := admin.DatabaseAccess(ctx, plan.User, plan.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to read access of %q on %q: %w", plan.User, plan.Database, err)
		}
		if grant != plan.Grant {
			v.addf("user %s has %s access on %s, expected %s", plan.User, grant, plan.Database, plan.Grant)
		}
	}

	db, err := admin.UseDatabase(ctx, plan.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to select database %q: %w", plan.Database, err)
	}
	collections, err := db.Collections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	for _, c := range plan.Collections {
		if !c.Kind.IsAKind() {
			continue
		}
		kind, ok := collections[c.Name]
		switch {
		case !ok:
			v.addf("collection %s does not exist", c.Name)
		case kind != c.Kind:
			v.addf("collection %s is %s, expected %s", c.Name, describe(kind), c.Kind)
		}
	}
	return v, nil
}

func describe(k schema.Kind) string {
	if k.IsAKind() {
		return k.String()
	}
	return "of an unsupported type"
}
