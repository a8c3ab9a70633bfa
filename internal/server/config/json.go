package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/reseauechanges/annuaire/internal/flagx"
	"github.com/reseauechanges/annuaire/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for the timeout field, which allows
// parsing both string values such as "10s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; its non-empty fields are copied into the runtime
// Config.
type JsonConfig struct {
	EndpointAddr   string         `json:"endpoint_addr"`
	AdminToken     string         `json:"admin_token"`
	S3RootUser     string         `json:"s3_root_user"`
	S3RootPassword string         `json:"s3_root_password"`
	S3Bucket       string         `json:"s3_bucket"`
	S3Region       string         `json:"s3_region"`
	S3BaseEndpoint string         `json:"s3_base_endpoint"`
	EntryPrefix    string         `json:"entry_prefix"`
	AggregateKey   string         `json:"aggregate_key"`
	BackupPrefix   string         `json:"backup_prefix"`
	Layout         string         `json:"layout"`
	StoreTimeout   timex.Duration `json:"store_timeout"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; if neither is set, no JSON file is loaded. Fields absent from the
// file keep their current values. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddr, c.EndpointAddr)
	overlay(&config.AdminToken, c.AdminToken)
	overlay(&config.S3RootUser, c.S3RootUser)
	overlay(&config.S3RootPassword, c.S3RootPassword)
	overlay(&config.S3Bucket, c.S3Bucket)
	overlay(&config.S3Region, c.S3Region)
	overlay(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	overlay(&config.EntryPrefix, c.EntryPrefix)
	overlay(&config.AggregateKey, c.AggregateKey)
	overlay(&config.BackupPrefix, c.BackupPrefix)
	overlay(&config.Layout, c.Layout)

	if c.StoreTimeout.Duration != 0 {
		config.StoreTimeout = time.Duration(c.StoreTimeout.Duration)
	}
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
