package cards

import (
	"context"
	"iter"

	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
)

// Repository describes storage operations on sealed card rows.
type Repository interface {
	// Insert stores a new row. An existing id yields common.ErrConflict.
	Insert(ctx context.Context, row *models.CardRow) error

	// GetByID returns common.ErrNotFound when no row has id.
	GetByID(ctx context.Context, id string) (*models.CardRow, error)

	// All streams rows newest first. The query runs when iteration starts
	// and the result set stays open until the loop ends.
	All(ctx context.Context) iter.Seq2[*models.CardRow, error]

	// DeleteByID reports whether a row was removed.
	DeleteByID(ctx context.Context, id string) (bool, error)

	Count(ctx context.Context) (int, error)

	Exists(ctx context.Context, id string) (bool, error)
}
