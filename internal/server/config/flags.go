package config

import (
	"flag"
	"os"
	"time"

	"github.com/reseauechanges/annuaire/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-s string   admin token (prefer the environment variable)
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-l string   storage layout ("per-entry" or "aggregate")
//	-w int      object-store timeout, seconds
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-u", "-p", "-b", "-g", "-e", "-l", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.AdminToken, "s", config.AdminToken, "admin token")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.Layout, "l", config.Layout, "storage layout (per-entry or aggregate)")

	storeTimeout := fs.Int("w", int(config.StoreTimeout.Seconds()), "store timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.StoreTimeout = time.Duration(*storeTimeout) * time.Second
}
