// Package config handles configuration for the admin CLI.
package config

import (
	"flag"
	"os"
	"time"

	"github.com/reseauechanges/annuaire/internal/flagx"
)

// AdminTokenEnv supplies the admin token without prompting; it matches the
// variable the server reads.
const AdminTokenEnv = "ANNUAIRE_ADMIN_TOKEN"

// Config holds runtime settings for the admin CLI.
//
// Fields:
//   - ServerURL: base URL of the directory server.
//   - AdminToken: shared secret for mutations; empty means prompt.
//   - RequestTimeout: per-request HTTP deadline.
type Config struct {
	ServerURL      string
	AdminToken     string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays
// command-line flags and the environment.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)
	if token := os.Getenv(AdminTokenEnv); token != "" {
		cfg.AdminToken = token
	}
	return cfg
}

// parseFlags populates selected CLI Config fields from command-line flags.
//
//	-a string   server base URL (e.g., "http://127.0.0.1:8080")
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a"})

	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	fs.StringVar(&config.ServerURL, "a", config.ServerURL, "server base URL")
	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
