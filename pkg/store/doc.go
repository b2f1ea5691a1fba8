// Package store provides the administrative abstractions used to provision
// the Discuits database.
//
// This package defines interfaces for the server-level operations the
// provisioner needs (users, databases, grants) and for the collection
// operations scoped to one database. Implementations live in sub-packages:
//
//   - arangodb: ArangoDB through github.com/arangodb/go-driver
//   - postgres: PostgreSQL through GORM
//   - memory: in-process state, used by tests and dry runs
//
// # Usage
//
//	admin, err := arangodb.Connect(arangodb.Config{Endpoints: endpoints})
//	if err != nil {
//	    return err
//	}
//	defer admin.Close()
//
//	if err := admin.CreateUser(ctx, "discuits_test", ""); err != nil {
//	    if store.IsAlreadyExists(err) {
//	        // Nothing to do
//	    }
//	}
//
//	db, err := admin.UseDatabase(ctx, "discuits_test")
//	if err != nil {
//	    return err
//	}
//	err = db.CreateEdgeCollection(ctx, "artist_to")
package store
