// Package sink stores serialized backup blobs by name, either in a local
// directory or in an S3-compatible bucket.
package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Sink is a named blob store. Get returns an error matching
// common.ErrNotFound for an unknown name.
type Sink interface {
	Put(ctx context.Context, name string, data []byte) error
	Get(ctx context.Context, name string) ([]byte, error)
}

var (
	ErrInvalidName = errors.New("invalid backup name")
	ErrTooLarge    = errors.New("backup exceeds size limit")
)

// DefaultMaxSize bounds the blobs Get will read.
const DefaultMaxSize int64 = 64 << 20

type options struct {
	maxSize int64
}

// Option configures a sink.
type Option func(*options)

// MaxSize sets the largest blob Get accepts. Values below 1 keep the default.
func MaxSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{maxSize: DefaultMaxSize}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// readLimited reads r but stops one byte past limit, so an oversized blob
// costs at most limit+1 bytes of memory.
func readLimited(r io.Reader, limit int64, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", name, err)
	}
	if int64(len(data)) > limit {
		return nil, tooLarge(name, limit)
	}
	return data, nil
}

func tooLarge(name string, limit int64) error {
	return fmt.Errorf("backup %s: over %d bytes: %w", name, limit, ErrTooLarge)
}

// checkName accepts plain file names only, so a name can never escape the
// sink's directory or prefix.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}
