// Package config loads runtime configuration for the card vault.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config. The format is
//     picked by extension: .json, .yaml or .yml. Keys missing from the file
//     keep their defaults.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-d string   database file path
//	-l string   log level (debug, info, warn, error)
//	-t int      session TTL in seconds, 0 for none
//	-b string   backup directory
//
// # File schema
//
// Durations are timex.Duration values, so they can be strings like "30s"
// or integer nanoseconds:
//
//	database_path: cardvault.db
//	log_level: info
//	log_format: text          # text, json or zerolog
//	kdf: {time: 3, memory_kib: 65536, threads: 4}
//	lockout: {max_attempts: 5, base_delay: 30s, max_delay: 1h}
//	session_ttl: 15m
//	cvv_retention: discard    # or retain
//	strict_delete: false
//	require_luhn: false
//	backup_encoding: json     # or cbor
//	backup_dir: backups
//	s3: {bucket: vault, region: us-east-1, endpoint: "http://127.0.0.1:9000"}
//
// Environment variables are not read.
package config
