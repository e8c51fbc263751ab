package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string   database file path
//	-l string   log level
//	-t int      session TTL in seconds (0 disables expiry)
//	-b string   backup directory
//
// Only these flags are taken from os.Args; see flagx.FilterArgs.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-l", "-t", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "database file path")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	ttl := fs.Int("t", int(cfg.SessionTTL.Seconds()), "session TTL in seconds, 0 for none")
	fs.StringVar(&cfg.BackupDir, "b", cfg.BackupDir, "backup directory")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// only when given, so a sub-second TTL from the file is kept
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			cfg.SessionTTL = time.Duration(*ttl) * time.Second
		}
	})
}
