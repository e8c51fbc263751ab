package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/flagx"
	"github.com/dmitrijs2005/cardvault/internal/timex"
	"github.com/dmitrijs2005/cardvault/internal/wallet/sink"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape. Pointers distinguish a missing key from
// a zero value so defaults survive partial files.
type fileConfig struct {
	DatabasePath *string `json:"database_path" yaml:"database_path"`
	LogLevel     *string `json:"log_level" yaml:"log_level"`
	LogFormat    *string `json:"log_format" yaml:"log_format"`

	KDF *struct {
		Time      *uint32 `json:"time" yaml:"time"`
		MemoryKiB *uint32 `json:"memory_kib" yaml:"memory_kib"`
		Threads   *uint8  `json:"threads" yaml:"threads"`
	} `json:"kdf" yaml:"kdf"`

	Lockout *struct {
		MaxAttempts *int            `json:"max_attempts" yaml:"max_attempts"`
		BaseDelay   *timex.Duration `json:"base_delay" yaml:"base_delay"`
		MaxDelay    *timex.Duration `json:"max_delay" yaml:"max_delay"`
	} `json:"lockout" yaml:"lockout"`

	SessionTTL *timex.Duration `json:"session_ttl" yaml:"session_ttl"`

	CVVRetention *string `json:"cvv_retention" yaml:"cvv_retention"`
	StrictDelete *bool   `json:"strict_delete" yaml:"strict_delete"`
	RequireLuhn  *bool   `json:"require_luhn" yaml:"require_luhn"`

	BackupEncoding *string        `json:"backup_encoding" yaml:"backup_encoding"`
	BackupDir      *string        `json:"backup_dir" yaml:"backup_dir"`
	BackupMaxSize  *int64         `json:"backup_max_bytes" yaml:"backup_max_bytes"`
	S3             *sink.S3Config `json:"s3" yaml:"s3"`
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *timex.Duration) {
	if src != nil {
		*dst = src.Duration
	}
}

// parseFile overlays cfg with the file named by -c/-config, if any.
// It panics on read or decode errors, like the rest of startup parsing.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := loadFile(cfg, path); err != nil {
		panic(err)
	}
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &fc)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		return fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *fileConfig) apply(cfg *Config) {
	set(&cfg.DatabasePath, fc.DatabasePath)
	set(&cfg.LogLevel, fc.LogLevel)
	set(&cfg.LogFormat, fc.LogFormat)

	if fc.KDF != nil {
		set(&cfg.KDF.Time, fc.KDF.Time)
		set(&cfg.KDF.MemoryKiB, fc.KDF.MemoryKiB)
		set(&cfg.KDF.Threads, fc.KDF.Threads)
	}
	if fc.Lockout != nil {
		set(&cfg.Lockout.MaxAttempts, fc.Lockout.MaxAttempts)
		setDuration(&cfg.Lockout.BaseDelay, fc.Lockout.BaseDelay)
		setDuration(&cfg.Lockout.MaxDelay, fc.Lockout.MaxDelay)
	}
	setDuration(&cfg.SessionTTL, fc.SessionTTL)

	set(&cfg.CVVRetention, fc.CVVRetention)
	set(&cfg.StrictDelete, fc.StrictDelete)
	set(&cfg.RequireLuhn, fc.RequireLuhn)

	set(&cfg.BackupEncoding, fc.BackupEncoding)
	set(&cfg.BackupDir, fc.BackupDir)
	set(&cfg.BackupMaxSize, fc.BackupMaxSize)
	set(&cfg.S3, fc.S3)
}
