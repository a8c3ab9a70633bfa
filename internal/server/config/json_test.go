package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJson_OverlaysNonEmptyFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr": ":7070",
		"layout": "aggregate",
		"store_timeout": "30s"
	}`), 0o600))

	origArgs := os.Args
	os.Args = []string{"server", "-c", path}
	defer func() { os.Args = origArgs }()

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, ":7070", c.EndpointAddr)
	assert.Equal(t, "aggregate", c.Layout)
	assert.Equal(t, 30*time.Second, c.StoreTimeout)

	// fields absent from the file keep their defaults
	assert.Equal(t, "annuaire", c.S3Bucket)
	assert.Equal(t, "rers/entries/", c.EntryPrefix)
}

func TestParseJson_NoFileConfigured(t *testing.T) {
	origArgs := os.Args
	os.Args = []string{"server"}
	defer func() { os.Args = origArgs }()

	var c Config
	c.LoadDefaults()
	parseJson(&c)

	assert.Equal(t, ":8080", c.EndpointAddr)
}

func TestParseJson_BadFilePanics(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(`{broken`), 0o600))

	origArgs := os.Args
	os.Args = []string{"server", "-c", path}
	defer func() { os.Args = origArgs }()

	var c Config
	c.LoadDefaults()
	assert.Panics(t, func() { parseJson(&c) })
}
