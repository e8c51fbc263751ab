package cards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/dbx"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
)

const selectColumns = `seq, id, name, number, expiry_month, expiry_year, cvv, type, category, color, last_four, created_at, updated_at`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, row *models.CardRow) error {
	query := `INSERT INTO cards (id, name, number, expiry_month, expiry_year, cvv, type, category, color, last_four, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		row.ID, row.Name, row.Number, row.ExpiryMonth, row.ExpiryYear, nullable(row.CVV),
		string(row.Type), row.Category, row.Color, row.LastFour,
		row.CreatedAt.UnixNano(), row.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", row.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("card %s: %w", row.ID, common.ErrConflict)
	}

	if seq, err := res.LastInsertId(); err == nil {
		row.Seq = seq
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.CardRow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM cards WHERE id = ?`, id)

	c, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("card %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) All(ctx context.Context) iter.Seq2[*models.CardRow, error] {
	return func(yield func(*models.CardRow, error) bool) {
		rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM cards ORDER BY created_at DESC, seq DESC`)
		if err != nil {
			yield(nil, fmt.Errorf("failed to select cards: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scan(rows)
			if err != nil {
				yield(nil, fmt.Errorf("failed to scan card row: %w", err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("failed to iterate card rows: %w", err))
		}
	}
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete card %s: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up card %s: %w", id, err)
	}
	return true, nil
}

// nullable binds an empty blob as NULL.
func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.CardRow, error) {
	var (
		c                models.CardRow
		typ              string
		created, updated int64
	)
	err := s.Scan(&c.Seq, &c.ID, &c.Name, &c.Number, &c.ExpiryMonth, &c.ExpiryYear, &c.CVV,
		&typ, &c.Category, &c.Color, &c.LastFour, &created, &updated)
	if err != nil {
		return nil, err
	}
	c.Type = models.CardType(typ)
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return &c, nil
}
