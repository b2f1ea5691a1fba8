package arangodb

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer is the issuer ArangoDB requires for tokens signed with its secret
const tokenIssuer = "arangodb"

// tokenServerID identifies this tool to the server
const tokenServerID = "discuitsctl"

// tokenTTL bounds the lifetime of a minted superuser token
const tokenTTL = time.Hour

// now is replaced in tests
var now = time.Now

// SuperuserToken signs a token accepted by ArangoDB as a superuser. The
// server must be started with --server.jwt-secret set to secret.
func SuperuserToken(secret string) (string, error) {
	issuedAt := now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":       tokenIssuer,
		"server_id": tokenServerID,
		"iat":       issuedAt.Unix(),
		"exp":       issuedAt.Add(tokenTTL).Unix(),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign superuser token: %w", err)
	}
	return signed, nil
}
