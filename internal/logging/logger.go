// Package logging is the vault's structured logger: a small context-aware
// interface with adapters for log/slog and zerolog.
//
// Callers log record ids, counts and errors. Values under the keys listed in
// Redacted are replaced before they reach the output, so a card number or PIN
// passed by mistake is not written to disk.
package logging

import (
	"context"
	"strings"
)

// Logger takes key-value pairs after the message:
//
//	log.Info(ctx, "card created", "id", id)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that adds args to every entry.
	With(args ...any) Logger
}

// RedactedValue replaces the value of a sensitive key.
const RedactedValue = "[REDACTED]"

// Redacted lists the attribute keys whose values are never logged.
// Matching is case-insensitive.
var Redacted = []string{"number", "cvv", "pin", "secret", "passphrase", "key", "password"}

func sensitive(key string) bool {
	for _, k := range Redacted {
		if strings.EqualFold(key, k) {
			return true
		}
	}
	return false
}
