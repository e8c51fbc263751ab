package transactions

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/dbx"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/shopspring/decimal"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, tx *models.Transaction) error {
	query := `INSERT INTO transactions (id, card_id, amount, currency, merchant_name, transaction_type, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		tx.ID, tx.CardID, tx.Amount.String(), tx.Currency, tx.Merchant,
		string(tx.Type), string(tx.Status), tx.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", tx.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) ListByCard(ctx context.Context, cardID string) ([]models.Transaction, error) {
	query := `SELECT id, card_id, amount, currency, merchant_name, transaction_type, status, created_at
		FROM transactions WHERE card_id = ? ORDER BY created_at DESC, seq DESC`

	rows, err := r.db.QueryContext(ctx, query, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to select transactions: %w", err)
	}
	defer rows.Close()

	result := []models.Transaction{}
	for rows.Next() {
		var (
			t       models.Transaction
			amount  string
			typ     string
			status  string
			created int64
		)
		if err := rows.Scan(&t.ID, &t.CardID, &amount, &t.Currency, &t.Merchant, &typ, &status, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		t.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("transaction %s: bad amount: %w", t.ID, err)
		}
		t.Type = models.TransactionType(typ)
		t.Status = models.TransactionStatus(status)
		t.CreatedAt = time.Unix(0, created).UTC()
		result = append(result, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}
	return result, nil
}
