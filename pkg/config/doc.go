// Package config provides configuration management for discuitsctl.
//
// Configuration is resolved in three layers, each attribute remembering
// which layer set it:
//
//   - Compiled-in defaults
//   - The config file, $DISCUITS_CONFIG_PATH/discuits.yml or --config
//   - Environment variables prefixed with DISCUITS_
//
// # Key Configuration Options
//
//   - DISCUITS_BACKEND: arangodb, postgres or memory
//   - DISCUITS_ENDPOINTS: comma separated ArangoDB endpoints
//   - DISCUITS_DATABASE_URL: PostgreSQL connection URL
//   - DISCUITS_AUTH_TYPE: none, basic, jwt or jwt-secret
//   - DISCUITS_USER, DISCUITS_DATABASE: names to provision
//
// The collection table can only be set in the file:
//
//	collections:
//	  album: document
//	  artist_to: edge
package config
