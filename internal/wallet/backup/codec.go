// Package backup exports the vault's cards to a portable, versioned blob and
// imports them back. Sensitive fields never leave the process in cleartext:
// they are re-sealed under a key derived from a separate backup passphrase.
package backup

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/dmitrijs2005/cardvault/internal/logging"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
)

// TransportKeyLabel derives the blob key from the passphrase master key.
const TransportKeyLabel = "cardvault/backup/v1"

var (
	checkPlaintext = []byte("cardvault backup check")
	checkAAD       = []byte("check")
)

// Store is the record store the codec reads from and restores into.
type Store interface {
	All(ctx context.Context, s *keys.Session) iter.Seq2[*models.Card, error]
	Restore(ctx context.Context, s *keys.Session, card models.Card) error
}

// Failure names a record that Import skipped and why.
type Failure struct {
	ID  string
	Err error
}

// Result summarizes an Import.
type Result struct {
	Imported int
	Skipped  int
	Failures []Failure
}

type Options struct {
	Encoding Encoding
	// KDF supplies costs for the passphrase derivation; Export always uses
	// a fresh salt.
	KDF    cryptox.KDFParams
	Logger logging.Logger
	Now    func() time.Time
}

// Codec converts between the record store and backup blobs.
type Codec struct {
	store Store
	opts  Options
}

func NewCodec(store Store, opts Options) *Codec {
	def := cryptox.DefaultKDFParams()
	if opts.KDF.Time == 0 {
		opts.KDF.Time = def.Time
	}
	if opts.KDF.MemoryKiB == 0 {
		opts.KDF.MemoryKiB = def.MemoryKiB
	}
	if opts.KDF.Threads == 0 {
		opts.KDF.Threads = def.Threads
	}
	if opts.Encoding == "" {
		opts.Encoding = EncodingJSON
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Codec{store: store, opts: opts}
}

func emptyPassphrase() error {
	return &models.ValidationError{Fields: []models.FieldError{{Field: "passphrase", Message: "must not be empty"}}}
}

func transportKey(ctx context.Context, passphrase []byte, p cryptox.KDFParams) ([]byte, error) {
	master, err := cryptox.DeriveKeyContext(ctx, passphrase, p)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(master)
	return cryptox.SubKey(master, TransportKeyLabel)
}

// Export writes every card into a blob protected by passphrase. It fails on
// the first card that cannot be read, so a backup is never silently partial.
func (c *Codec) Export(ctx context.Context, s *keys.Session, passphrase []byte) ([]byte, error) {
	if s.Locked() {
		return nil, common.ErrLocked
	}
	if len(passphrase) == 0 {
		return nil, emptyPassphrase()
	}

	params := c.opts.KDF.WithFreshSalt()
	key, err := transportKey(ctx, passphrase, params)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	check, err := cryptox.SealTransport(key, checkPlaintext, checkAAD)
	if err != nil {
		return nil, err
	}

	blob := &Blob{
		Format:    Format,
		Version:   Version,
		Timestamp: c.opts.Now().UTC(),
		KDF:       params,
		Check:     check,
		Records:   []Record{},
	}

	for card, err := range c.store.All(ctx, s) {
		if err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
		rec, err := sealRecord(key, card)
		if err != nil {
			return nil, err
		}
		blob.Records = append(blob.Records, rec)
	}

	data, err := encode(blob, c.opts.Encoding)
	if err != nil {
		return nil, fmt.Errorf("encode backup: %w", err)
	}

	c.opts.Logger.Info(ctx, "backup exported", "records", len(blob.Records), "encoding", string(c.opts.Encoding))
	return data, nil
}

// Import restores the cards in data. The blob must carry a known format and
// version (common.ErrUnsupportedVersion) and passphrase must match the one
// used for Export (common.ErrUnauthorized). Records that fail to decrypt,
// validate or insert, including ids that already exist, are skipped and
// listed in Result.Failures; the rest are imported.
func (c *Codec) Import(ctx context.Context, data []byte, s *keys.Session, passphrase []byte) (*Result, error) {
	if s.Locked() {
		return nil, common.ErrLocked
	}
	if len(passphrase) == 0 {
		return nil, emptyPassphrase()
	}

	blob, enc, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := blob.KDF.Validate(); err != nil {
		return nil, fmt.Errorf("backup kdf: %v: %w", err, common.ErrIntegrity)
	}

	key, err := transportKey(ctx, passphrase, blob.KDF)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(key)

	if _, err := cryptox.OpenTransport(key, blob.Check, checkAAD); err != nil {
		return nil, common.ErrUnauthorized
	}

	res := &Result{}
	for _, rec := range blob.Records {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		card, err := openRecord(key, rec)
		if err == nil {
			err = c.store.Restore(ctx, s, *card)
		}
		if err != nil {
			if errors.Is(err, common.ErrLocked) {
				return res, err
			}
			res.Skipped++
			res.Failures = append(res.Failures, Failure{ID: rec.ID, Err: err})
			c.opts.Logger.Warn(ctx, "backup record skipped", "id", rec.ID, "error", err)
			continue
		}
		res.Imported++
	}

	c.opts.Logger.Info(ctx, "backup imported",
		"imported", res.Imported, "skipped", res.Skipped, "encoding", string(enc))
	return res, nil
}

func sealRecord(key []byte, card *models.Card) (Record, error) {
	number, err := cryptox.SealTransport(key, []byte(card.Number), recordAAD(card.ID, models.FieldNumber))
	if err != nil {
		return Record{}, fmt.Errorf("seal record %s: %w", card.ID, err)
	}

	var cvv []byte
	if card.CVV != "" {
		cvv, err = cryptox.SealTransport(key, []byte(card.CVV), recordAAD(card.ID, models.FieldCVV))
		if err != nil {
			return Record{}, fmt.Errorf("seal record %s: %w", card.ID, err)
		}
	}

	return Record{
		ID:          card.ID,
		Name:        card.Name,
		Number:      number,
		ExpiryMonth: card.ExpiryMonth,
		ExpiryYear:  card.ExpiryYear,
		CVV:         cvv,
		Type:        string(card.Type),
		Category:    card.Category,
		Color:       card.Color,
		LastFour:    card.LastFour,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
	}, nil
}

func openRecord(key []byte, rec Record) (*models.Card, error) {
	number, err := cryptox.OpenTransport(key, rec.Number, recordAAD(rec.ID, models.FieldNumber))
	if err != nil {
		return nil, fmt.Errorf("record %s: number: %w", rec.ID, common.ErrIntegrity)
	}

	var cvv []byte
	if len(rec.CVV) > 0 {
		cvv, err = cryptox.OpenTransport(key, rec.CVV, recordAAD(rec.ID, models.FieldCVV))
		if err != nil {
			return nil, fmt.Errorf("record %s: cvv: %w", rec.ID, common.ErrIntegrity)
		}
	}

	return &models.Card{
		ID:          rec.ID,
		Name:        rec.Name,
		Number:      string(number),
		ExpiryMonth: rec.ExpiryMonth,
		ExpiryYear:  rec.ExpiryYear,
		CVV:         string(cvv),
		Type:        models.CardType(rec.Type),
		Category:    rec.Category,
		Color:       rec.Color,
		LastFour:    rec.LastFour,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}, nil
}

func recordAAD(id, field string) []byte {
	return []byte(id + "|" + field)
}
