// Package cryptox contains the cryptographic primitives of the card vault:
// authenticated field sealing, transport sealing for backups, key derivation
// and sub-key separation.
//
// Nothing in this package logs. Callers own every key slice they pass in and
// should wipe it with common.WipeByteArray when done.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the length of every symmetric key used by the vault.
const KeySize = 32

// Seal encrypts plaintext with AES-256-GCM under key.
//
// A new random 12-byte nonce is generated for each call, so sealing the same
// plaintext twice yields different outputs. The nonce is prepended to the
// result:
//
//	nonce || ciphertext || tag
//
// aad is authenticated but not encrypted; the same aad must be passed to Open.
// The vault uses "<record id>|<field>" so a ciphertext cannot be moved to
// another record or column.
//
// Example:
//
//	sealed, err := cryptox.Seal(key, []byte("4532123456789012"), []byte(id+"|number"))
//	if err != nil {
//	    return err
//	}
func Seal(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// Open reverses Seal. Any authentication failure (tampered data, wrong key,
// wrong aad or truncated input) is reported as common.ErrIntegrity and no
// plaintext is returned.
func Open(key, sealed, aad []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return open(aead, sealed, aad)
}

// SealTransport encrypts plaintext with XChaCha20-Poly1305. It is used for
// data leaving the device (backups), where the 24-byte random nonce removes
// any concern about nonce reuse across many exports under one passphrase.
func SealTransport(key, plaintext, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("transport cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, aad), nil
}

// OpenTransport reverses SealTransport with the same error contract as Open.
func OpenTransport(key, sealed, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("transport cipher: %w", err)
	}
	return open(aead, sealed, aad)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("field cipher: %w", err)
	}
	return aead, nil
}

func open(aead cipher.AEAD, sealed, aad []byte) ([]byte, error) {
	ns := aead.NonceSize()
	if len(sealed) < ns+aead.Overhead() {
		return nil, common.ErrIntegrity
	}

	plaintext, err := aead.Open(nil, sealed[:ns], sealed[ns:], aad)
	if err != nil {
		return nil, common.ErrIntegrity
	}
	return plaintext, nil
}
