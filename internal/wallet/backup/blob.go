package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/fxamacker/cbor/v2"
)

const (
	// Format tags every blob this package writes.
	Format = "cardvault-backup"
	// Version is the only blob layout Import understands.
	Version = 1
)

// Encoding selects the serialized form of a blob.
type Encoding string

const (
	EncodingJSON Encoding = "json"
	EncodingCBOR Encoding = "cbor"
)

// ParseEncoding maps a configuration value to an Encoding. Empty means JSON.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingJSON:
		return EncodingJSON, nil
	case EncodingCBOR:
		return EncodingCBOR, nil
	}
	return "", fmt.Errorf("unknown backup encoding %q", s)
}

// Blob is the portable backup document. Number and CVV in each record are
// sealed with the transport key derived from the backup passphrase using
// KDF; Check lets Import reject a wrong passphrase before touching records.
type Blob struct {
	Format    string            `json:"format" cbor:"format"`
	Version   int               `json:"version" cbor:"version"`
	Timestamp time.Time         `json:"timestamp" cbor:"timestamp"`
	KDF       cryptox.KDFParams `json:"kdf" cbor:"kdf"`
	Check     []byte            `json:"check" cbor:"check"`
	Records   []Record          `json:"records" cbor:"records"`
}

// Record is one card inside a Blob.
type Record struct {
	ID          string    `json:"id" cbor:"id"`
	Name        string    `json:"name" cbor:"name"`
	Number      []byte    `json:"number" cbor:"number"`
	ExpiryMonth string    `json:"expiry_month" cbor:"expiry_month"`
	ExpiryYear  string    `json:"expiry_year" cbor:"expiry_year"`
	CVV         []byte    `json:"cvv,omitempty" cbor:"cvv,omitempty"`
	Type        string    `json:"type" cbor:"type"`
	Category    string    `json:"category,omitempty" cbor:"category,omitempty"`
	Color       string    `json:"color" cbor:"color"`
	LastFour    string    `json:"last_four" cbor:"last_four"`
	CreatedAt   time.Time `json:"created_at" cbor:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" cbor:"updated_at"`
}

// header is decoded first so an unknown version is rejected before its
// records are interpreted.
type header struct {
	Format  string `json:"format" cbor:"format"`
	Version int    `json:"version" cbor:"version"`
}

var cborEnc = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

func encode(b *Blob, enc Encoding) ([]byte, error) {
	switch enc {
	case EncodingCBOR:
		return cborEnc.Marshal(b)
	case EncodingJSON, "":
		return json.Marshal(b)
	}
	return nil, fmt.Errorf("unknown backup encoding %q", enc)
}

// detect reports the encoding of data. JSON documents start with '{' after
// optional whitespace; anything else is treated as CBOR.
func detect(data []byte) Encoding {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return EncodingJSON
	}
	return EncodingCBOR
}

func unmarshal(data []byte, enc Encoding, v any) error {
	if enc == EncodingJSON {
		return json.Unmarshal(data, v)
	}
	return cbor.Unmarshal(data, v)
}

// decode parses data, checking format and version before the full body.
func decode(data []byte) (*Blob, Encoding, error) {
	enc := detect(data)

	var h header
	if err := unmarshal(data, enc, &h); err != nil {
		return nil, enc, fmt.Errorf("unrecognized backup: %w", common.ErrUnsupportedVersion)
	}
	if h.Format != Format {
		return nil, enc, fmt.Errorf("format %q: %w", h.Format, common.ErrUnsupportedVersion)
	}
	if h.Version != Version {
		return nil, enc, fmt.Errorf("version %d: %w", h.Version, common.ErrUnsupportedVersion)
	}

	var b Blob
	if err := unmarshal(data, enc, &b); err != nil {
		return nil, enc, fmt.Errorf("decode backup: %w", err)
	}
	return &b, enc, nil
}
