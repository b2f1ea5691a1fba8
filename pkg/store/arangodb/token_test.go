package arangodb

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuperuserToken(t *testing.T) {
	fixed := time.Now().Truncate(time.Second)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	signed, err := SuperuserToken("s3cr3t")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(signed, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("s3cr3t"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	assert.True(t, token.Valid)

	assert.Equal(t, "arangodb", claims["iss"])
	assert.Equal(t, "discuitsctl", claims["server_id"])
	assert.Equal(t, float64(fixed.Unix()), claims["iat"])
	assert.Equal(t, float64(fixed.Add(time.Hour).Unix()), claims["exp"])

	_, err = jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}
