package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadConfigDefaults(t *testing.T) {
	resetViper(t)
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_OUTPUT", "")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "", config.LogLevel)
	assert.Equal(t, "auto", config.LogFormat)
	assert.Equal(t, "stderr", config.LogOutput)
	assert.False(t, config.Verbose)
	assert.False(t, config.Quiet)
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", "stdout")

	config, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "debug", config.LogLevel)
	assert.Equal(t, "json", config.LogFormat)
	assert.Equal(t, "stdout", config.LogOutput)
}

func TestLoadConfigUsesExplicitFile(t *testing.T) {
	resetViper(t)

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("schema_file: portal-schema.yaml\ndata_dir: /srv/riboseq\nverbose: true\n"), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, path, config.ConfigFile)
	assert.Equal(t, "portal-schema.yaml", config.SchemaFile)
	assert.Equal(t, "/srv/riboseq", config.DataDir)
	assert.True(t, config.Verbose)
}

func TestUpdateFromFlags(t *testing.T) {
	config := &Config{}

	config.UpdateFromFlags(true, false)
	assert.True(t, config.Verbose)
	assert.False(t, config.Quiet)

	// Flags only raise values, never clear ones set by the environment.
	config.UpdateFromFlags(false, false)
	assert.True(t, config.Verbose)

	config.UpdateFromFlags(false, true)
	assert.True(t, config.Quiet)
}
