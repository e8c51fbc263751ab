// Package dbx holds the database/sql glue shared by the vault repositories.
//
// Repositories take a DBTX so the same code runs against the pool or inside
// a transaction. Vault writes go through WithTx: setup with its kdf and
// canary rows, card inserts and deletes, and a payment with its card lookup.
package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction on db. It commits when fn returns nil and
// rolls back when fn fails or panics; a panic is re-raised after rollback.
//
// The vault's DSN sets _txlock=immediate, so BeginTx takes SQLite's write
// lock up front. Two writers therefore queue on busy_timeout at BEGIN instead
// of both reading and then failing with SQLITE_BUSY on their first write.
// Read-only work should use db directly and not hold that lock.
//
// Build repositories inside fn from tx, not from db:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//		return cards.NewSQLiteRepository(tx).Insert(ctx, row)
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("commit: %w", cErr)
		}
	}()

	return fn(ctx, tx)
}
