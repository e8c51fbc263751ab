// Package wallet is the card vault's public surface. A Wallet owns one
// database handle and wires the key manager, record store, ledger and backup
// codec over it. Callers unlock once, then pass the returned session to
// every record operation.
package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/dmitrijs2005/cardvault/internal/logging"
	"github.com/dmitrijs2005/cardvault/internal/wallet/backup"
	"github.com/dmitrijs2005/cardvault/internal/wallet/config"
	"github.com/dmitrijs2005/cardvault/internal/wallet/database"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/dmitrijs2005/cardvault/internal/wallet/services"
	"github.com/dmitrijs2005/cardvault/internal/wallet/sink"
)

type Wallet struct {
	cfg *config.Config
	db  *sql.DB
	log logging.Logger

	keys   *keys.Manager
	cards  *services.CardService
	ledger *services.LedgerService
	codec  *backup.Codec
}

// Open validates cfg, opens (and migrates) the database and returns a ready
// Wallet. The caller must Close it.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (*Wallet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	encoding, err := backup.ParseEncoding(cfg.BackupEncoding)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	kdf := cryptox.KDFParams{Time: cfg.KDF.Time, MemoryKiB: cfg.KDF.MemoryKiB, Threads: cfg.KDF.Threads}

	w := &Wallet{cfg: cfg, db: db, log: log}
	w.keys = keys.NewManager(db, keys.Options{
		KDF: kdf,
		Lockout: keys.Policy{
			MaxAttempts: cfg.Lockout.MaxAttempts,
			BaseDelay:   cfg.Lockout.BaseDelay,
			MaxDelay:    cfg.Lockout.MaxDelay,
		},
		SessionTTL: cfg.SessionTTL,
		Logger:     log.With("component", "keys"),
	})
	w.cards = services.NewCardService(db, services.CardOptions{
		RetainCVV:    cfg.RetainCVV(),
		RequireLuhn:  cfg.RequireLuhn,
		StrictDelete: cfg.StrictDelete,
		Logger:       log.With("component", "cards"),
	})
	w.ledger = services.NewLedgerService(db, log.With("component", "ledger"), nil)
	w.codec = backup.NewCodec(w.cards, backup.Options{
		Encoding: encoding,
		KDF:      kdf,
		Logger:   log.With("component", "backup"),
	})

	log.Debug(ctx, "wallet opened", "path", cfg.DatabasePath)
	return w, nil
}

// Close releases the database. Sessions outlive it but every operation on a
// closed Wallet fails.
func (w *Wallet) Close() error {
	return w.db.Close()
}

func (w *Wallet) IsInitialized(ctx context.Context) (bool, error) {
	return w.keys.IsInitialized(ctx)
}

// Initialize sets up a new vault under secret and returns an unlocked session.
func (w *Wallet) Initialize(ctx context.Context, secret []byte) (*keys.Session, error) {
	return w.keys.Initialize(ctx, secret)
}

// Unlock returns a session for the right secret, common.ErrUnauthorized for a
// wrong one, or *keys.LockoutError while attempts are throttled.
func (w *Wallet) Unlock(ctx context.Context, secret []byte) (*keys.Session, error) {
	return w.keys.Unlock(ctx, secret)
}

// Lock discards the session key. It waits for operations using it to finish.
func (w *Wallet) Lock(s *keys.Session) {
	w.keys.Lock(s)
}

func (w *Wallet) Create(ctx context.Context, s *keys.Session, in models.NewCard) (string, error) {
	return w.cards.Create(ctx, s, in)
}

func (w *Wallet) Get(ctx context.Context, s *keys.Session, id string) (*models.Card, error) {
	return w.cards.Get(ctx, s, id)
}

func (w *Wallet) List(ctx context.Context, s *keys.Session) ([]models.Card, error) {
	return w.cards.List(ctx, s)
}

// All streams cards newest first; see services.CardService.All.
func (w *Wallet) All(ctx context.Context, s *keys.Session) iter.Seq2[*models.Card, error] {
	return w.cards.All(ctx, s)
}

func (w *Wallet) Delete(ctx context.Context, s *keys.Session, id string, opts ...services.DeleteOption) error {
	return w.cards.Delete(ctx, s, id, opts...)
}

func (w *Wallet) Count(ctx context.Context, s *keys.Session) (int, error) {
	return w.cards.Count(ctx, s)
}

// Export returns a backup blob of every card protected by passphrase.
func (w *Wallet) Export(ctx context.Context, s *keys.Session, passphrase []byte) ([]byte, error) {
	return w.codec.Export(ctx, s, passphrase)
}

// Import restores cards from a blob made by Export; see backup.Codec.Import.
func (w *Wallet) Import(ctx context.Context, data []byte, s *keys.Session, passphrase []byte) (*backup.Result, error) {
	return w.codec.Import(ctx, data, s, passphrase)
}

func (w *Wallet) RecordTransaction(ctx context.Context, s *keys.Session, in models.NewTransaction) (string, error) {
	return w.ledger.Record(ctx, s, in)
}

func (w *Wallet) Transactions(ctx context.Context, s *keys.Session, cardID string) ([]models.Transaction, error) {
	return w.ledger.ListByCard(ctx, s, cardID)
}

// BackupSink returns the configured destination for backups: the S3 bucket
// when one is configured, the backup directory otherwise.
func (w *Wallet) BackupSink(ctx context.Context) (sink.Sink, error) {
	limit := sink.MaxSize(w.cfg.BackupMaxSize)
	if w.cfg.S3.Bucket != "" {
		return sink.NewS3Sink(ctx, w.cfg.S3, limit)
	}
	return sink.NewFileSink(w.cfg.BackupDir, limit)
}

// ExportTo exports and stores the blob in dst under name.
func (w *Wallet) ExportTo(ctx context.Context, s *keys.Session, dst sink.Sink, name string, passphrase []byte) error {
	data, err := w.Export(ctx, s, passphrase)
	if err != nil {
		return err
	}
	return dst.Put(ctx, name, data)
}

// ImportFrom reads the blob name from src and imports it.
func (w *Wallet) ImportFrom(ctx context.Context, src sink.Sink, name string, s *keys.Session, passphrase []byte) (*backup.Result, error) {
	data, err := src.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return w.Import(ctx, data, s, passphrase)
}
