// Package services implements the vault's record store and payment ledger on
// top of the repositories. Every operation takes the caller's keys.Session;
// a nil, locked or expired session fails with common.ErrLocked.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/dbx"
	"github.com/dmitrijs2005/cardvault/internal/logging"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/dmitrijs2005/cardvault/internal/wallet/repositories/cards"
	"github.com/google/uuid"
)

// CardOptions configure a CardService.
type CardOptions struct {
	// RetainCVV stores the CVV sealed alongside the number. When false the
	// CVV is validated on Create and then dropped.
	RetainCVV bool
	// RequireLuhn adds a checksum test to number validation.
	RequireLuhn bool
	// StrictDelete makes Delete of a missing id fail with ErrNotFound.
	StrictDelete bool
	Logger       logging.Logger
	Now          func() time.Time
}

type deleteOptions struct {
	strict bool
}

// DeleteOption adjusts a single Delete call.
type DeleteOption func(*deleteOptions)

// Strict makes Delete report common.ErrNotFound for an unknown id.
func Strict() DeleteOption {
	return func(o *deleteOptions) { o.strict = true }
}

// CardService is the record store: validated create, read, list and delete
// of cards with the number and CVV sealed at rest.
type CardService struct {
	db        *sql.DB
	opts      CardOptions
	validator models.Validator

	// mu serializes writers; readers go straight to the pool.
	mu sync.Mutex
}

func NewCardService(db *sql.DB, opts CardOptions) *CardService {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &CardService{
		db:        db,
		opts:      opts,
		validator: models.Validator{RequireLuhn: opts.RequireLuhn},
	}
}

func (c *CardService) repo(db dbx.DBTX) cards.Repository {
	return cards.NewSQLiteRepository(db)
}

// Create validates in, seals its sensitive fields and stores it. It returns
// the new card's id, or a *models.ValidationError listing every bad field.
func (c *CardService) Create(ctx context.Context, s *keys.Session, in models.NewCard) (string, error) {
	var id string
	err := s.WithKey(func(key []byte) error {
		if err := c.validator.NewCard(in); err != nil {
			return err
		}

		uid, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		now := c.opts.Now().UTC()

		card := &models.Card{
			ID:          uid.String(),
			Name:        in.Name,
			Number:      in.Number,
			ExpiryMonth: in.ExpiryMonth,
			ExpiryYear:  in.ExpiryYear,
			CVV:         in.CVV,
			Type:        in.Type,
			Category:    in.Category,
			Color:       in.Color,
			LastFour:    models.LastFour(in.Number),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if card.Color == "" {
			card.Color = models.DefaultColor
		}

		if err := c.insert(ctx, key, card); err != nil {
			return err
		}
		id = card.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	c.opts.Logger.Info(ctx, "card created", "id", id)
	return id, nil
}

// Restore stores a card decoded from a backup, keeping its id and
// timestamps. An id already present yields common.ErrConflict.
func (c *CardService) Restore(ctx context.Context, s *keys.Session, card models.Card) error {
	return s.WithKey(func(key []byte) error {
		if card.Color == "" {
			card.Color = models.DefaultColor
		}
		if err := c.validator.RestoredCard(card); err != nil {
			return err
		}
		if card.CreatedAt.IsZero() {
			card.CreatedAt = c.opts.Now()
		}
		card.CreatedAt = card.CreatedAt.UTC()
		card.UpdatedAt = card.UpdatedAt.UTC()
		if card.UpdatedAt.IsZero() {
			card.UpdatedAt = card.CreatedAt
		}
		return c.insert(ctx, key, &card)
	})
}

func (c *CardService) insert(ctx context.Context, key []byte, card *models.Card) error {
	row, err := sealCard(key, card, c.opts.RetainCVV)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return c.repo(tx).Insert(ctx, row)
	})
}

// Get returns the decrypted card. A missing id yields common.ErrNotFound; a
// row that fails authentication yields an error matching common.ErrIntegrity.
func (c *CardService) Get(ctx context.Context, s *keys.Session, id string) (*models.Card, error) {
	var card *models.Card
	err := s.WithKey(func(key []byte) error {
		row, err := c.repo(c.db).GetByID(ctx, id)
		if err != nil {
			return err
		}
		card, err = openCard(key, row)
		return err
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

// All streams decrypted cards, newest first. Each range runs a fresh query.
// The key is borrowed per card, so locking the session mid-iteration ends
// the sequence with common.ErrLocked. A card that fails authentication is
// yielded as an error and iteration continues if the consumer keeps going.
func (c *CardService) All(ctx context.Context, s *keys.Session) iter.Seq2[*models.Card, error] {
	return func(yield func(*models.Card, error) bool) {
		if s.Locked() {
			yield(nil, common.ErrLocked)
			return
		}

		for row, err := range c.repo(c.db).All(ctx) {
			if err != nil {
				yield(nil, err)
				return
			}

			var card *models.Card
			err = s.WithKey(func(key []byte) error {
				var err error
				card, err = openCard(key, row)
				return err
			})
			if err != nil {
				if errors.Is(err, common.ErrLocked) {
					yield(nil, err)
					return
				}
				c.opts.Logger.Warn(ctx, "card failed verification", "id", row.ID)
			}
			if !yield(card, err) {
				return
			}
		}
	}
}

// List collects All. It stops at the first error.
func (c *CardService) List(ctx context.Context, s *keys.Session) ([]models.Card, error) {
	result := []models.Card{}
	for card, err := range c.All(ctx, s) {
		if err != nil {
			return nil, err
		}
		result = append(result, *card)
	}
	return result, nil
}

// Delete removes the card with id and its transactions. Deleting a missing
// id succeeds unless Strict is given or the service defaults to strict.
func (c *CardService) Delete(ctx context.Context, s *keys.Session, id string, opts ...DeleteOption) error {
	o := deleteOptions{strict: c.opts.StrictDelete}
	for _, opt := range opts {
		opt(&o)
	}

	var deleted bool
	err := s.WithKey(func([]byte) error {
		c.mu.Lock()
		defer c.mu.Unlock()

		return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			var err error
			deleted, err = c.repo(tx).DeleteByID(ctx, id)
			return err
		})
	})
	if err != nil {
		return err
	}

	if !deleted {
		if o.strict {
			return fmt.Errorf("card %s: %w", id, common.ErrNotFound)
		}
		return nil
	}
	c.opts.Logger.Info(ctx, "card deleted", "id", id)
	return nil
}

// Count returns the number of stored cards without decrypting anything.
func (c *CardService) Count(ctx context.Context, s *keys.Session) (int, error) {
	var n int
	err := s.WithKey(func([]byte) error {
		var err error
		n, err = c.repo(c.db).Count(ctx)
		return err
	})
	return n, err
}
