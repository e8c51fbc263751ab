package cryptox

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// SaltSize is the length of generated KDF salts.
const SaltSize = 32

// Upper bounds for KDFParams. Parameters arrive from backup blobs and the
// metadata table, and argon2 allocates MemoryKiB up front.
const (
	MaxTime      = 16
	MaxMemoryKiB = 1 << 20 // 1 GiB
	MaxThreads   = 64
	MaxSaltSize  = 1024
)

var ErrInvalidKDFParams = errors.New("invalid kdf parameters")

// KDFParams are the argon2id inputs stored next to the data they protect.
// None of them are secret.
type KDFParams struct {
	Salt      []byte `json:"salt" cbor:"salt"`
	Time      uint32 `json:"time" cbor:"time"`
	MemoryKiB uint32 `json:"memory_kib" cbor:"memory_kib"`
	Threads   uint8  `json:"threads" cbor:"threads"`
}

// DefaultKDFParams returns interactive-login strength parameters with a
// fresh salt: 3 passes over 64 MiB with 4 lanes.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Salt:      common.GenerateRandByteArray(SaltSize),
		Time:      3,
		MemoryKiB: 64 * 1024,
		Threads:   4,
	}
}

// WithFreshSalt returns a copy of p with a newly generated salt.
func (p KDFParams) WithFreshSalt() KDFParams {
	p.Salt = common.GenerateRandByteArray(SaltSize)
	return p
}

// Validate rejects parameters that make no sense for key protection, such as
// an empty salt, and costs above the Max* bounds.
func (p KDFParams) Validate() error {
	switch {
	case len(p.Salt) < 16 || len(p.Salt) > MaxSaltSize:
		return fmt.Errorf("%w: salt length %d", ErrInvalidKDFParams, len(p.Salt))
	case p.Time == 0 || p.Time > MaxTime:
		return fmt.Errorf("%w: time %d", ErrInvalidKDFParams, p.Time)
	case p.Threads == 0 || p.Threads > MaxThreads:
		return fmt.Errorf("%w: threads %d", ErrInvalidKDFParams, p.Threads)
	case p.MemoryKiB < 8*uint32(p.Threads) || p.MemoryKiB > MaxMemoryKiB:
		return fmt.Errorf("%w: memory %d KiB", ErrInvalidKDFParams, p.MemoryKiB)
	}
	return nil
}

// DeriveKey stretches secret into a KeySize key with argon2id.
// The call is intentionally slow; keep it off interactive paths or use
// DeriveKeyContext.
func DeriveKey(secret []byte, p KDFParams) []byte {
	return argon2.IDKey(secret, p.Salt, p.Time, p.MemoryKiB, p.Threads, KeySize)
}

// DeriveKeyContext runs DeriveKey on its own goroutine and returns early with
// ctx.Err() if the context is done first. argon2 itself cannot be
// interrupted, so an abandoned derivation finishes in the background and its
// result is wiped.
func DeriveKeyContext(ctx context.Context, secret []byte, p KDFParams) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// argon2 reads secret after we may have returned; give it its own copy.
	in := append([]byte(nil), secret...)
	done := make(chan []byte, 1)
	go func() {
		done <- DeriveKey(in, p)
		common.WipeByteArray(in)
	}()

	select {
	case key := <-done:
		return key, nil
	case <-ctx.Done():
		go func() { common.WipeByteArray(<-done) }()
		return nil, ctx.Err()
	}
}

// SubKey derives an independent key for one purpose from master using
// HKDF-SHA256 with label as the info string.
func SubKey(master []byte, label string) ([]byte, error) {
	r := hkdf.New(sha256.New, master, nil, []byte(label))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("hkdf %s: %w", label, err)
	}
	return key, nil
}
