package arangodb

import (
	"fmt"

	driver "github.com/arangodb/go-driver"
	"github.com/arangodb/go-driver/http"
)

// DefaultEndpoint is the address of a local ArangoDB server
const DefaultEndpoint = "http://127.0.0.1:8529"

// AuthType selects how the client authenticates
type AuthType string

const (
	AuthNone AuthType = "none"
	// AuthBasic sends the username and password with every request
	AuthBasic AuthType = "basic"
	// AuthJWT exchanges the username and password for a token
	AuthJWT AuthType = "jwt"
	// AuthJWTSecret signs a superuser token with the server's JWT secret
	AuthJWTSecret AuthType = "jwt-secret"
)

// AuthTypes lists the supported authentication types
var AuthTypes = []AuthType{AuthNone, AuthBasic, AuthJWT, AuthJWTSecret}

// Config holds connection settings
type Config struct {
	// Endpoints of the server or cluster coordinators (defaults to DefaultEndpoint)
	Endpoints []string
	AuthType  AuthType
	Username  string
	Password  string
	// JWTSecret is the value of the server's --server.jwt-secret, used by AuthJWTSecret
	JWTSecret string
}

// Connect creates an Admin for the configured server. No request is sent
// until the first call.
func Connect(cfg Config) (*Admin, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	return NewAdmin(client), nil
}

// NewClient creates a driver client for the configured server
func NewClient(cfg Config) (driver.Client, error) {
	endpoints := cfg.Endpoints
	if len(endpoints) == 0 {
		endpoints = []string{DefaultEndpoint}
	}

	conn, err := http.NewConnection(http.ConnectionConfig{
		Endpoints: endpoints,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	auth, err := authentication(cfg)
	if err != nil {
		return nil, err
	}

	client, err := driver.NewClient(driver.ClientConfig{
		Connection:     conn,
		Authentication: auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func authentication(cfg Config) (driver.Authentication, error) {
	switch cfg.AuthType {
	case AuthNone, "":
		return nil, nil
	case AuthBasic:
		return driver.BasicAuthentication(cfg.Username, cfg.Password), nil
	case AuthJWT:
		return driver.JWTAuthentication(cfg.Username, cfg.Password), nil
	case AuthJWTSecret:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("auth type %s requires a JWT secret", AuthJWTSecret)
		}
		token, err := SuperuserToken(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		return driver.RawAuthentication("bearer " + token), nil
	default:
		return nil, fmt.Errorf("unsupported auth type %q", cfg.AuthType)
	}
}
