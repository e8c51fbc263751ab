// Package database opens the vault's SQLite file with the pragmas the
// repositories rely on and brings the schema up to date.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	"github.com/dmitrijs2005/cardvault/internal/wallet/migrations"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// DSN builds a modernc.org/sqlite connection string for path with foreign
// keys enforced, a busy timeout, WAL journaling and IMMEDIATE write
// transactions.
func DSN(path string) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Set("_txlock", "immediate")

	if path == MemoryPath {
		return "file::memory:?" + q.Encode()
	}

	q.Add("_pragma", "journal_mode(WAL)")
	return "file:" + path + "?" + q.Encode()
}

// Open opens the database at path and runs migrations. An in-memory database
// is limited to a single connection, since each connection would otherwise
// see its own empty database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	if err := migrations.Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
