// Package config handles configuration for the directory server, including
// defaults, JSON overlay, command-line flags and environment secrets.
package config

import (
	"os"
	"time"
)

// AdminTokenEnv is the environment variable that supplies the shared admin
// secret. It wins over the JSON overlay and flags so deployments never need
// the secret on a command line.
const AdminTokenEnv = "ANNUAIRE_ADMIN_TOKEN"

// Config holds runtime settings for the directory server.
//
// Fields:
//   - EndpointAddr: bind address for the HTTP endpoint.
//   - AdminToken: shared secret gating all mutations. Empty disables them.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings.
//   - EntryPrefix / AggregateKey / BackupPrefix: store layout locations.
//   - Layout: "per-entry" or "aggregate".
//   - StoreTimeout: per-operation deadline on object-store calls.
type Config struct {
	EndpointAddr   string
	AdminToken     string
	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string
	EntryPrefix    string
	AggregateKey   string
	BackupPrefix   string
	Layout         string
	StoreTimeout   time.Duration
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.AdminToken = ""
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "annuaire"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
	c.EntryPrefix = "rers/entries/"
	c.AggregateKey = "rers/data.json"
	c.BackupPrefix = "rers/backups/"
	c.Layout = "per-entry"
	c.StoreTimeout = 10 * time.Second
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, command-line flags and finally the
// environment.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	parseEnv(cfg)
	return cfg
}

func parseEnv(config *Config) {
	if token := os.Getenv(AdminTokenEnv); token != "" {
		config.AdminToken = token
	}
}
