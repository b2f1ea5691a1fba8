package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/discuits/discuitsctl/pkg/logging"
	"github.com/discuits/discuitsctl/pkg/schema"
	"github.com/discuits/discuitsctl/pkg/store"
)

const (
	DefaultConfigPath = "/etc/discuits/config"
	ConfigFileName    = "discuits.yml"

	// EnvPrefix is prepended to every environment variable name
	EnvPrefix = "DISCUITS_"

	DefaultEndpoint = "http://127.0.0.1:8529"
)

// Backend names
const (
	BackendArangoDB = "arangodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Attribute sources
const (
	SourceDefault     = "default"
	SourceFile        = "file"
	SourceEnvironment = "environment"
)

// ValidBackends is the list of supported backends
var ValidBackends = []string{BackendArangoDB, BackendPostgres, BackendMemory}

// ValidAuthTypes is the list of ArangoDB authentication modes
var ValidAuthTypes = []string{"none", "basic", "jwt", "jwt-secret"}

const redacted = "********"

// Config holds all discuitsctl settings
type Config struct {
	// Backend selects the database server implementation
	Backend string `yaml:"backend" json:"backend" env:"BACKEND"`

	// Endpoints are the ArangoDB coordinator URLs
	Endpoints []string `yaml:"endpoints" json:"endpoints" env:"ENDPOINTS" envSeparator:","`

	// DatabaseURL is the PostgreSQL maintenance database URL
	DatabaseURL string `yaml:"database_url" json:"database_url" env:"DATABASE_URL"`

	// AuthType is the ArangoDB authentication mode
	AuthType string `yaml:"auth_type" json:"auth_type" env:"AUTH_TYPE"`

	AdminUsername string `yaml:"admin_username" json:"admin_username" env:"ADMIN_USERNAME"`
	AdminPassword string `yaml:"admin_password" json:"-" env:"ADMIN_PASSWORD"`

	// JWTSecret is the server secret used to mint superuser tokens
	JWTSecret string `yaml:"jwt_secret" json:"-" env:"JWT_SECRET"`

	// User is the application user to provision
	User         string `yaml:"user" json:"user" env:"USER"`
	UserPassword string `yaml:"user_password" json:"-" env:"USER_PASSWORD"`

	// Database is the application database to provision
	Database string `yaml:"database" json:"database" env:"DATABASE"`

	// Grant is the access level given to User on Database
	Grant string `yaml:"grant" json:"grant" env:"GRANT"`

	// Collections is read from the config file only
	Collections schema.Table `yaml:"collections" json:"-" env:"-"`

	LogLevel  string `yaml:"log_level" json:"log_level" env:"LOG_LEVEL"`
	LogFormat string `yaml:"log_format" json:"log_format" env:"LOG_FORMAT"`

	// MetricsFile is where provisioning metrics are written after a run
	MetricsFile string `yaml:"metrics_file" json:"metrics_file" env:"METRICS_FILE"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// newDefault returns a config with default values
func newDefault() *Config {
	c := &Config{
		Backend:       BackendArangoDB,
		Endpoints:     []string{DefaultEndpoint},
		AuthType:      "basic",
		AdminUsername: "root",
		User:          "discuits_test",
		Database:      "discuits_test",
		Grant:         string(store.GrantReadWrite),
		Collections:   schema.DefaultTable(),
		LogLevel:      "info",
		LogFormat:     string(logging.FormatConsole),
		sources:       make(map[string]string),
	}
	for _, name := range attributeNames() {
		c.sources[name] = SourceDefault
	}
	return c
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return newDefault()
}

// Load loads configuration from $DISCUITS_CONFIG_PATH/discuits.yml and
// environment variables. Environment variables take precedence over file
// values. A missing file is not an error.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvPrefix + "CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return load(filepath.Join(configPath, ConfigFileName), false)
}

// LoadFile loads configuration from path and environment variables. The
// file must exist.
func LoadFile(path string) (*Config, error) {
	return load(path, true)
}

func load(path string, required bool) (*Config, error) {
	config := newDefault()
	config.configFilePath = path

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		config.applyFileConfig(&fileConfig)
	case required || !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := config.applyEnvConfig(env.ToMap(os.Environ())); err != nil {
		return nil, err
	}

	return config, nil
}

func attributeNames() []string {
	return []string{
		"backend", "endpoints", "database_url", "auth_type",
		"admin_username", "admin_password", "jwt_secret",
		"user", "user_password", "database", "grant", "collections",
		"log_level", "log_format", "metrics_file",
	}
}

// stringFields maps attribute names to their string fields
func (c *Config) stringFields() map[string]*string {
	return map[string]*string{
		"backend":        &c.Backend,
		"database_url":   &c.DatabaseURL,
		"auth_type":      &c.AuthType,
		"admin_username": &c.AdminUsername,
		"admin_password": &c.AdminPassword,
		"jwt_secret":     &c.JWTSecret,
		"user":           &c.User,
		"user_password":  &c.UserPassword,
		"database":       &c.Database,
		"grant":          &c.Grant,
		"log_level":      &c.LogLevel,
		"log_format":     &c.LogFormat,
		"metrics_file":   &c.MetricsFile,
	}
}

func (c *Config) applyFileConfig(file *Config) {
	fileFields := file.stringFields()
	for name, field := range c.stringFields() {
		if v := *fileFields[name]; v != "" {
			*field = v
			c.sources[name] = SourceFile
		}
	}
	if len(file.Endpoints) > 0 {
		c.Endpoints = file.Endpoints
		c.sources["endpoints"] = SourceFile
	}
	if len(file.Collections) > 0 {
		c.Collections = file.Collections
		c.sources["collections"] = SourceFile
	}
}

// applyEnvConfig overrides every attribute whose variable is set and not
// empty in environ
func (c *Config) applyEnvConfig(environ map[string]string) error {
	var envConfig Config
	err := env.ParseWithOptions(&envConfig, env.Options{
		Prefix:      EnvPrefix,
		Environment: environ,
	})
	if err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	isSet := func(name string) bool {
		return environ[EnvPrefix+strings.ToUpper(name)] != ""
	}

	envFields := envConfig.stringFields()
	for name, field := range c.stringFields() {
		if isSet(name) {
			*field = *envFields[name]
			c.sources[name] = SourceEnvironment
		}
	}
	if isSet("endpoints") {
		c.Endpoints = trimAll(envConfig.Endpoints)
		c.sources["endpoints"] = SourceEnvironment
	}
	return nil
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return SourceDefault
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return SourceDefault
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !contains(ValidBackends, c.Backend) {
		return fmt.Errorf("invalid backend: %s", c.Backend)
	}

	switch c.Backend {
	case BackendArangoDB:
		if len(c.Endpoints) == 0 {
			return fmt.Errorf("endpoints are required for the %s backend", c.Backend)
		}
		for _, e := range c.Endpoints {
			u, err := url.Parse(e)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid endpoint: %s", e)
			}
		}
		if !contains(ValidAuthTypes, c.AuthType) {
			return fmt.Errorf("invalid auth_type: %s", c.AuthType)
		}
		if c.AuthType == "jwt-secret" && c.JWTSecret == "" {
			return fmt.Errorf("auth_type jwt-secret requires jwt_secret")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the %s backend", c.Backend)
		}
	}

	if c.User == "" {
		return fmt.Errorf("user must not be empty")
	}
	if c.Database == "" {
		return fmt.Errorf("database must not be empty")
	}
	if _, err := store.ParseGrant(c.Grant); err != nil {
		return err
	}
	if err := c.Collections.Validate(); err != nil {
		return fmt.Errorf("invalid collections: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// Attributes returns all configuration attributes with their values and
// sources. Secrets are redacted.
func (c *Config) Attributes() []Attribute {
	attr := func(name, value string) Attribute {
		return Attribute{Name: name, Value: value, Source: c.Source(name)}
	}
	return []Attribute{
		attr("backend", c.Backend),
		attr("endpoints", strings.Join(c.Endpoints, ",")),
		attr("database_url", redactURL(c.DatabaseURL)),
		attr("auth_type", c.AuthType),
		attr("admin_username", c.AdminUsername),
		attr("admin_password", redact(c.AdminPassword)),
		attr("jwt_secret", redact(c.JWTSecret)),
		attr("user", c.User),
		attr("user_password", redact(c.UserPassword)),
		attr("database", c.Database),
		attr("grant", c.Grant),
		attr("collections", formatCollections(c.Collections)),
		attr("log_level", c.LogLevel),
		attr("log_format", c.LogFormat),
		attr("metrics_file", c.MetricsFile),
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-20s %-50s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-20s %-50s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-20s %-50s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// formatCollections writes unknown kinds by number, as the config file does
func formatCollections(t schema.Table) string {
	parts := make([]string, 0, len(t))
	for _, c := range t {
		kind := strconv.Itoa(int(c.Kind))
		if c.Kind.IsAKind() {
			kind = c.Kind.String()
		}
		parts = append(parts, c.Name+":"+kind)
	}
	return strings.Join(parts, ",")
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return redacted
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		// key/value connection strings may carry a password anywhere
		return redacted
	}
	return u.Redacted()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func trimAll(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			result = append(result, v)
		}
	}
	return result
}
