// Package keys turns the user's secret into the vault's field key and guards
// it: first-run setup, unlock with a throttling policy, and the Session that
// carries the key until it is locked.
//
// Nothing secret is persisted. The metadata table holds the argon2id
// parameters (including the salt), a canary sealed under the field key, and
// the failed-attempt counter with its deadline.
package keys

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/dmitrijs2005/cardvault/internal/dbx"
	"github.com/dmitrijs2005/cardvault/internal/logging"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/dmitrijs2005/cardvault/internal/wallet/repositories/metadata"
)

// Metadata keys.
const (
	metaKDF            = "kdf"
	metaCanary         = "canary"
	metaFailedAttempts = "failed_attempts"
	metaLockedUntil    = "locked_until"
)

// FieldKeyLabel separates the field-encryption key from anything else that
// may later be derived from the same master key.
const FieldKeyLabel = "cardvault/fields/v1"

var (
	canaryPlaintext = []byte("cardvault canary v1")
	canaryAAD       = []byte("canary")
)

// Options configure a Manager. Zero values fall back to defaults, except
// Lockout, whose zero value disables throttling.
type Options struct {
	// KDF supplies time, memory and thread costs for new vaults. Its salt
	// is ignored; Initialize always generates a fresh one.
	KDF        cryptox.KDFParams
	Lockout    Policy
	SessionTTL time.Duration
	Logger     logging.Logger
	// Now is the clock used for lockout deadlines and session expiry.
	Now func() time.Time
}

// Manager owns the vault's unlock state.
type Manager struct {
	db   *sql.DB
	opts Options

	// mu serializes setup and unlock attempts so the failure counter is
	// read and written consistently.
	mu sync.Mutex
	// decoy is used to run a full derivation when the vault has no salt.
	decoy cryptox.KDFParams
}

func NewManager(db *sql.DB, opts Options) *Manager {
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
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		db:    db,
		opts:  opts,
		decoy: opts.KDF.WithFreshSalt(),
	}
}

func (m *Manager) repo(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}

// IsInitialized reports whether Initialize has completed on this database.
func (m *Manager) IsInitialized(ctx context.Context) (bool, error) {
	v, err := m.repo(m.db).Get(ctx, metaKDF)
	if err != nil {
		return false, err
	}
	return v != nil, nil
}

// Initialize sets up a new vault protected by secret and returns an unlocked
// session. It fails with common.ErrAlreadyInitialized if the vault has
// already been set up.
func (m *Manager) Initialize(ctx context.Context, secret []byte) (*Session, error) {
	if len(secret) == 0 {
		return nil, &models.ValidationError{Fields: []models.FieldError{{Field: "secret", Message: "must not be empty"}}}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ok, err := m.IsInitialized(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, common.ErrAlreadyInitialized
	}

	params := m.opts.KDF.WithFreshSalt()
	key, err := m.deriveFieldKey(ctx, secret, params)
	if err != nil {
		return nil, err
	}

	canary, err := cryptox.Seal(key, canaryPlaintext, canaryAAD)
	if err != nil {
		common.WipeByteArray(key)
		return nil, err
	}
	encodedParams, err := json.Marshal(params)
	if err != nil {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("encode kdf params: %w", err)
	}

	err = dbx.WithTx(ctx, m.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := m.repo(tx)
		if v, err := repo.Get(ctx, metaKDF); err != nil {
			return err
		} else if v != nil {
			return common.ErrAlreadyInitialized
		}
		if err := repo.Set(ctx, metaKDF, encodedParams); err != nil {
			return err
		}
		if err := repo.Set(ctx, metaCanary, canary); err != nil {
			return err
		}
		return clearFailures(ctx, repo)
	})
	if err != nil {
		common.WipeByteArray(key)
		return nil, fmt.Errorf("initialize vault: %w", err)
	}

	m.opts.Logger.Info(ctx, "vault initialized")
	return newSession(key, m.opts.SessionTTL, m.opts.Now), nil
}

// Unlock derives the field key from secret and checks it against the stored
// canary. A wrong secret and an uninitialized vault both cost a full
// derivation and both yield common.ErrUnauthorized. While the lockout policy
// blocks attempts, Unlock returns *LockoutError without deriving anything.
func (m *Manager) Unlock(ctx context.Context, secret []byte) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	repo := m.repo(m.db)

	failures, until, err := loadFailures(ctx, repo)
	if err != nil {
		return nil, err
	}
	if now := m.opts.Now(); now.Before(until) {
		m.opts.Logger.Warn(ctx, "unlock blocked", "failures", failures)
		return nil, &LockoutError{RetryAfter: until.Sub(now)}
	}

	params, canary, err := m.loadVerifier(ctx, repo)
	if err != nil {
		return nil, err
	}
	initialized := canary != nil
	if !initialized {
		params = m.decoy
	}

	key, err := m.deriveFieldKey(ctx, secret, params)
	if err != nil {
		return nil, err
	}

	if initialized {
		if _, openErr := cryptox.Open(key, canary, canaryAAD); openErr == nil {
			if failures > 0 {
				if err := clearFailures(ctx, repo); err != nil {
					common.WipeByteArray(key)
					return nil, err
				}
			}
			m.opts.Logger.Info(ctx, "vault unlocked")
			return newSession(key, m.opts.SessionTTL, m.opts.Now), nil
		}
	}
	common.WipeByteArray(key)

	failures++
	if err := m.recordFailure(ctx, repo, failures); err != nil {
		return nil, err
	}
	m.opts.Logger.Warn(ctx, "unlock failed", "failures", failures)
	return nil, common.ErrUnauthorized
}

// Lock wipes the session's key; see Session.Lock.
func (m *Manager) Lock(s *Session) {
	s.Lock()
}

func (m *Manager) deriveFieldKey(ctx context.Context, secret []byte, params cryptox.KDFParams) ([]byte, error) {
	master, err := cryptox.DeriveKeyContext(ctx, secret, params)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(master)
	return cryptox.SubKey(master, FieldKeyLabel)
}

// loadVerifier returns the stored parameters and canary, or a nil canary if
// the vault is not initialized.
func (m *Manager) loadVerifier(ctx context.Context, repo metadata.Repository) (cryptox.KDFParams, []byte, error) {
	var params cryptox.KDFParams

	raw, err := repo.Get(ctx, metaKDF)
	if err != nil || raw == nil {
		return params, nil, err
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, nil, fmt.Errorf("decode kdf params: %w", err)
	}
	if err := params.Validate(); err != nil {
		return params, nil, fmt.Errorf("stored kdf params: %v: %w", err, common.ErrIntegrity)
	}

	canary, err := repo.Get(ctx, metaCanary)
	if err != nil {
		return params, nil, err
	}
	if canary == nil {
		return params, nil, fmt.Errorf("canary missing: %w", common.ErrIntegrity)
	}
	return params, canary, nil
}

func (m *Manager) recordFailure(ctx context.Context, repo metadata.Repository, failures int) error {
	if err := repo.Set(ctx, metaFailedAttempts, []byte(strconv.Itoa(failures))); err != nil {
		return err
	}
	if d := m.opts.Lockout.Delay(failures); d > 0 {
		until := m.opts.Now().Add(d).UnixNano()
		return repo.Set(ctx, metaLockedUntil, []byte(strconv.FormatInt(until, 10)))
	}
	return nil
}

func loadFailures(ctx context.Context, repo metadata.Repository) (int, time.Time, error) {
	var until time.Time

	raw, err := repo.Get(ctx, metaFailedAttempts)
	if err != nil || raw == nil {
		return 0, until, err
	}
	failures, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0, until, fmt.Errorf("decode failed attempts: %w", err)
	}

	raw, err = repo.Get(ctx, metaLockedUntil)
	if err != nil {
		return 0, until, err
	}
	if raw != nil {
		ns, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, until, fmt.Errorf("decode lockout deadline: %w", err)
		}
		until = time.Unix(0, ns)
	}
	return failures, until, nil
}

func clearFailures(ctx context.Context, repo metadata.Repository) error {
	return errors.Join(
		repo.Delete(ctx, metaFailedAttempts),
		repo.Delete(ctx, metaLockedUntil),
	)
}
