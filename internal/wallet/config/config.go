package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/dmitrijs2005/cardvault/internal/wallet/sink"
)

// CVV retention policies.
const (
	CVVDiscard = "discard"
	CVVRetain  = "retain"
)

// KDF holds argon2id costs for new vaults and backups.
type KDF struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// Lockout configures unlock throttling; MaxAttempts 0 disables it.
type Lockout struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Config holds runtime settings for a vault.
type Config struct {
	DatabasePath string
	LogLevel     string
	LogFormat    string

	KDF        KDF
	Lockout    Lockout
	SessionTTL time.Duration

	CVVRetention string
	StrictDelete bool
	RequireLuhn  bool

	BackupEncoding string
	BackupDir      string
	// BackupMaxSize caps the size of a backup read back from a sink.
	BackupMaxSize int64
	// S3 enables the bucket sink when Bucket is set.
	S3 sink.S3Config
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "cardvault.db"
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.KDF = KDF{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}
	c.Lockout = Lockout{MaxAttempts: 5, BaseDelay: 30 * time.Second, MaxDelay: time.Hour}
	c.SessionTTL = 0
	c.CVVRetention = CVVDiscard
	c.StrictDelete = false
	c.RequireLuhn = false
	c.BackupEncoding = "json"
	c.BackupDir = "backups"
	c.BackupMaxSize = sink.DefaultMaxSize
	c.S3 = sink.S3Config{Region: "us-east-1"}
}

// RetainCVV reports whether CVVs are stored.
func (c *Config) RetainCVV() bool {
	return c.CVVRetention == CVVRetain
}

// Validate checks enumerated settings and numeric ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database_path must not be empty"))
	}
	switch c.CVVRetention {
	case CVVDiscard, CVVRetain:
	default:
		errs = append(errs, fmt.Errorf("cvv_retention must be %q or %q, got %q", CVVDiscard, CVVRetain, c.CVVRetention))
	}
	switch c.BackupEncoding {
	case "json", "cbor":
	default:
		errs = append(errs, fmt.Errorf("backup_encoding must be json or cbor, got %q", c.BackupEncoding))
	}
	switch c.LogFormat {
	case "text", "json", "zerolog":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text, json or zerolog, got %q", c.LogFormat))
	}
	kdf := cryptox.KDFParams{Salt: make([]byte, cryptox.SaltSize), Time: c.KDF.Time, MemoryKiB: c.KDF.MemoryKiB, Threads: c.KDF.Threads}
	if err := kdf.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("kdf: %w", err))
	}
	if c.Lockout.MaxAttempts < 0 || c.Lockout.BaseDelay < 0 || c.Lockout.MaxDelay < 0 {
		errs = append(errs, errors.New("lockout values must not be negative"))
	}
	if c.BackupMaxSize <= 0 {
		errs = append(errs, errors.New("backup_max_bytes must be positive"))
	}
	if c.SessionTTL < 0 {
		errs = append(errs, errors.New("session_ttl must not be negative"))
	}
	return errors.Join(errs...)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the config file (if given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
