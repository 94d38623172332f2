package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
		want   string
	}{
		{
			name:   "default is info",
			config: &Config{},
			want:   "info",
		},
		{
			name:   "verbose is debug",
			config: &Config{Verbose: true},
			want:   "debug",
		},
		{
			name:   "quiet is warn",
			config: &Config{Quiet: true},
			want:   "warn",
		},
		{
			name:   "quiet wins over verbose",
			config: &Config{Verbose: true, Quiet: true},
			want:   "warn",
		},
		{
			name:   "env level is used",
			config: &Config{LogLevel: "trace"},
			want:   "trace",
		},
		{
			name:   "flags win over env level",
			config: &Config{Verbose: true, LogLevel: "error"},
			want:   "debug",
		},
		{
			name:   "invalid env level falls back to info",
			config: &Config{LogLevel: "loud"},
			want:   "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, determineLogLevel(tt.config))
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	for _, level := range []string{"trace", "debug", "info", "warn", "error"} {
		assert.Equal(t, level, validateLogLevel(level))
	}
	assert.Equal(t, "info", validateLogLevel("verbose"))
	assert.Equal(t, "info", validateLogLevel(""))
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(&Config{LogFormat: "json", LogOutput: "stderr"})

	// Smoke test: the logger must be usable without panicking.
	logger.Info().Msg("logger constructed")
}
