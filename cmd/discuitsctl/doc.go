// Command discuitsctl provisions the database used by the Discuits
// application.
//
// A run ensures, in order, the application user, the application database,
// the user's grant on it and the collections of the Discuits models. Every
// step is idempotent, so the command is safe to run on every deploy.
//
// # Backends
//
//   - arangodb: ArangoDB over HTTP (default, http://127.0.0.1:8529)
//   - postgres: PostgreSQL, collections become tables
//   - memory: in-process, for dry runs
//
// # Quick Start
//
//	# Wait for the server, then provision
//	discuitsctl wait --retries 30
//	discuitsctl provision
//
//	# Check the result
//	discuitsctl verify
//
// # Environment Variables
//
//   - DISCUITS_BACKEND: arangodb, postgres or memory
//   - DISCUITS_ENDPOINTS: ArangoDB endpoints, comma separated
//   - DISCUITS_AUTH_TYPE: none, basic, jwt or jwt-secret
//   - DISCUITS_ADMIN_USERNAME, DISCUITS_ADMIN_PASSWORD: admin credentials
//   - DISCUITS_DATABASE_URL: PostgreSQL connection URL
//   - DISCUITS_CONFIG_PATH: directory holding discuits.yml
package main
