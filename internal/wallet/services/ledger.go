package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/dbx"
	"github.com/dmitrijs2005/cardvault/internal/logging"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/dmitrijs2005/cardvault/internal/wallet/repositories/cards"
	"github.com/dmitrijs2005/cardvault/internal/wallet/repositories/transactions"
	"github.com/google/uuid"
)

// LedgerService records simulated payments against stored cards. No money
// moves; entries exist for the history view.
type LedgerService struct {
	db  *sql.DB
	log logging.Logger
	now func() time.Time

	mu sync.Mutex
}

func NewLedgerService(db *sql.DB, log logging.Logger, now func() time.Time) *LedgerService {
	if log == nil {
		log = logging.Discard()
	}
	if now == nil {
		now = time.Now
	}
	return &LedgerService{db: db, log: log, now: now}
}

// Record validates in and appends it to the card's history. The card must
// exist.
func (l *LedgerService) Record(ctx context.Context, s *keys.Session, in models.NewTransaction) (string, error) {
	var id string
	err := s.WithKey(func([]byte) error {
		in = in.Normalize()
		if err := in.Validate(); err != nil {
			return err
		}

		uid, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate id: %w", err)
		}
		tx := &models.Transaction{
			ID:        uid.String(),
			CardID:    in.CardID,
			Amount:    in.Amount,
			Currency:  in.Currency,
			Merchant:  in.Merchant,
			Type:      in.Type,
			Status:    in.Status,
			CreatedAt: l.now().UTC(),
		}

		l.mu.Lock()
		defer l.mu.Unlock()

		err = dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, db dbx.DBTX) error {
			ok, err := cards.NewSQLiteRepository(db).Exists(ctx, tx.CardID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("card %s: %w", tx.CardID, common.ErrNotFound)
			}
			return transactions.NewSQLiteRepository(db).Insert(ctx, tx)
		})
		if err != nil {
			return err
		}
		id = tx.ID
		return nil
	})
	if err != nil {
		return "", err
	}

	l.log.Info(ctx, "transaction recorded", "id", id)
	return id, nil
}

// ListByCard returns the card's transactions, newest first. An unknown card
// yields common.ErrNotFound.
func (l *LedgerService) ListByCard(ctx context.Context, s *keys.Session, cardID string) ([]models.Transaction, error) {
	var result []models.Transaction
	err := s.WithKey(func([]byte) error {
		ok, err := cards.NewSQLiteRepository(l.db).Exists(ctx, cardID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("card %s: %w", cardID, common.ErrNotFound)
		}
		result, err = transactions.NewSQLiteRepository(l.db).ListByCard(ctx, cardID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
