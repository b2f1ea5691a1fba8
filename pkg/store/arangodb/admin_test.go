package arangodb

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	driver "github.com/arangodb/go-driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

// fakeServer answers the handful of REST calls exercised below
type fakeServer struct {
	mu        sync.Mutex
	users     map[string]bool
	databases []string
	requests  []string
	auth      []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		users:     map[string]bool{"root": true},
		databases: []string{"_system"},
	}
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/_api/version":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"server": "arango", "version": "3.11.5", "license": "community",
		})

	case r.Method == http.MethodPost && r.URL.Path == "/_api/user":
		var body struct {
			User string `json:"user"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if f.users[body.User] {
			writeError(w, http.StatusConflict, 1702, "duplicate user")
			return
		}
		f.users[body.User] = true
		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"user": body.User, "active": true, "extra": map[string]interface{}{},
		})

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/_api/user/"):
		name := strings.TrimPrefix(r.URL.Path, "/_api/user/")
		if !f.users[name] {
			writeError(w, http.StatusNotFound, 1703, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"user": name, "active": true, "extra": map[string]interface{}{},
		})

	case r.Method == http.MethodGet && r.URL.Path == "/_api/database":
		writeJSON(w, http.StatusOK, map[string]interface{}{"result": f.databases})

	default:
		writeError(w, http.StatusNotFound, 404, "unknown path "+r.URL.Path)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status, errorNum int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": true, "code": status, "errorNum": errorNum, "errorMessage": message,
	})
}

func connectFake(t *testing.T, cfg Config) (*Admin, *fakeServer) {
	t.Helper()
	fake := newFakeServer()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	cfg.Endpoints = []string{srv.URL}
	admin, err := Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = admin.Close() })
	return admin, fake
}

func TestAdminAgainstFakeServer(t *testing.T) {
	ctx := context.Background()

	t.Run("server version", func(t *testing.T) {
		admin, _ := connectFake(t, Config{AuthType: AuthNone})

		version, err := admin.ServerVersion(ctx)
		require.NoError(t, err)
		assert.Equal(t, "3.11.5", version)
	})

	t.Run("duplicate user is already-exists", func(t *testing.T) {
		admin, _ := connectFake(t, Config{AuthType: AuthNone})

		require.NoError(t, admin.CreateUser(ctx, "discuits_test", ""))

		err := admin.CreateUser(ctx, "discuits_test", "")
		require.Error(t, err)
		assert.True(t, store.IsAlreadyExists(err))
		assert.Contains(t, err.Error(), `user "discuits_test"`)
	})

	t.Run("user exists", func(t *testing.T) {
		admin, _ := connectFake(t, Config{AuthType: AuthNone})

		ok, err := admin.UserExists(ctx, "root")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = admin.UserExists(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("database names", func(t *testing.T) {
		admin, fake := connectFake(t, Config{AuthType: AuthNone})
		fake.databases = []string{"_system", "discuits_test"}

		names, err := admin.DatabaseNames(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"_system", "discuits_test"}, names)
	})

	t.Run("basic auth header is sent", func(t *testing.T) {
		admin, fake := connectFake(t, Config{AuthType: AuthBasic, Username: "root", Password: "secret"})

		_, err := admin.ServerVersion(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, fake.auth)
		assert.True(t, strings.HasPrefix(fake.auth[0], "Basic "))
	})

	t.Run("jwt secret auth sends a bearer token", func(t *testing.T) {
		admin, fake := connectFake(t, Config{AuthType: AuthJWTSecret, JWTSecret: "s3cr3t"})

		_, err := admin.ServerVersion(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, fake.auth)
		assert.True(t, strings.HasPrefix(fake.auth[0], "bearer "))
	})
}

func TestAuthentication(t *testing.T) {
	auth, err := authentication(Config{AuthType: AuthNone})
	require.NoError(t, err)
	assert.Nil(t, auth)

	auth, err = authentication(Config{})
	require.NoError(t, err)
	assert.Nil(t, auth)

	auth, err = authentication(Config{AuthType: AuthBasic, Username: "root"})
	require.NoError(t, err)
	assert.NotNil(t, auth)

	auth, err = authentication(Config{AuthType: AuthJWT, Username: "root"})
	require.NoError(t, err)
	assert.NotNil(t, auth)

	_, err = authentication(Config{AuthType: AuthJWTSecret})
	assert.Error(t, err)

	_, err = authentication(Config{AuthType: "kerberos"})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	conflict := driver.ArangoError{HasError: true, Code: http.StatusConflict, ErrorNum: 1207, ErrorMessage: "duplicate name"}
	err := classify(conflict, `collection "album"`)
	assert.True(t, store.IsAlreadyExists(err))
	assert.False(t, store.IsNotFound(err))
	assert.Contains(t, err.Error(), `collection "album"`)
	assert.Contains(t, err.Error(), "duplicate name")

	missing := driver.ArangoError{HasError: true, Code: http.StatusNotFound, ErrorNum: 1228, ErrorMessage: "database not found"}
	err = classify(missing, `database "discuits_test"`)
	assert.True(t, store.IsNotFound(err))
	assert.False(t, store.IsAlreadyExists(err))

	forbidden := driver.ArangoError{HasError: true, Code: http.StatusForbidden, ErrorNum: 11, ErrorMessage: "forbidden"}
	err = classify(forbidden, `user "discuits_test"`)
	assert.False(t, store.IsAlreadyExists(err))
	assert.False(t, store.IsNotFound(err))

	plain := errors.New("connection refused")
	err = classify(plain, "server version")
	assert.ErrorIs(t, err, plain)
}

func TestGrantAndKindMapping(t *testing.T) {
	g, err := driverGrant(store.GrantReadWrite)
	require.NoError(t, err)
	assert.Equal(t, driver.GrantReadWrite, g)

	g, err = driverGrant(store.GrantReadOnly)
	require.NoError(t, err)
	assert.Equal(t, driver.GrantReadOnly, g)

	g, err = driverGrant(store.GrantNone)
	require.NoError(t, err)
	assert.Equal(t, driver.GrantNone, g)

	_, err = driverGrant("admin")
	assert.Error(t, err)

	for level, want := range map[driver.Grant]store.Grant{
		driver.GrantReadWrite: store.GrantReadWrite,
		driver.GrantReadOnly:  store.GrantReadOnly,
		driver.GrantNone:      store.GrantNone,
		grantUndefined:        store.GrantNone,
	} {
		got, err := storeGrant(level)
		require.NoError(t, err, level)
		assert.Equal(t, want, got, level)
	}
	_, err = storeGrant("admin")
	assert.Error(t, err)

	assert.Equal(t, schema.KindDocument, schemaKind(driver.CollectionTypeDocument))
	assert.Equal(t, schema.KindEdge, schemaKind(driver.CollectionTypeEdge))
	assert.False(t, schemaKind(driver.CollectionType(9)).IsAKind())
}
