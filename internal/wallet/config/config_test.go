package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "cardvault.db", c.DatabasePath)
	assert.Equal(t, CVVDiscard, c.CVVRetention)
	assert.False(t, c.RetainCVV())
	assert.Equal(t, "json", c.BackupEncoding)
	assert.Equal(t, 5, c.Lockout.MaxAttempts)
	assert.Equal(t, 30*time.Second, c.Lockout.BaseDelay)
	assert.Zero(t, c.SessionTTL)
	assert.Equal(t, int64(64<<20), c.BackupMaxSize)
	require.NoError(t, c.Validate())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "cardvault.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"cvv retention", func(c *Config) { c.CVVRetention = "sometimes" }},
		{"encoding", func(c *Config) { c.BackupEncoding = "xml" }},
		{"log format", func(c *Config) { c.LogFormat = "logfmt" }},
		{"kdf threads", func(c *Config) { c.KDF.Threads = 0 }},
		{"kdf memory", func(c *Config) { c.KDF.MemoryKiB = 4 }},
		{"kdf memory too high", func(c *Config) { c.KDF.MemoryKiB = 4 << 20 }},
		{"kdf time too high", func(c *Config) { c.KDF.Time = 1000 }},
		{"backup max size", func(c *Config) { c.BackupMaxSize = 0 }},
		{"lockout", func(c *Config) { c.Lockout.MaxAttempts = -1 }},
		{"ttl", func(c *Config) { c.SessionTTL = -time.Second }},
		{"db path", func(c *Config) { c.DatabasePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
