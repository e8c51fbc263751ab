// Package transactions persists the simulated payment ledger.
package transactions

import (
	"context"

	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
)

type Repository interface {
	Insert(ctx context.Context, tx *models.Transaction) error
	// ListByCard returns the card's transactions, newest first.
	ListByCard(ctx context.Context, cardID string) ([]models.Transaction, error)
}
