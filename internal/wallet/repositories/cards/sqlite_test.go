package cards

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/wallet/database"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func row(id string, created time.Time) *models.CardRow {
	return &models.CardRow{
		ID:          id,
		Name:        "card " + id,
		Number:      []byte{0x01, 0x02, 0x03},
		ExpiryMonth: "12",
		ExpiryYear:  "26",
		Type:        models.CardTypeCredit,
		Color:       models.DefaultColor,
		LastFour:    "9012",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func collect(t *testing.T, r *SQLiteRepository) []string {
	t.Helper()
	var ids []string
	for c, err := range r.All(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	return ids
}

func TestInsertAndGetByID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 123456789, time.UTC)

	in := row("a", now)
	in.CVV = []byte{0x09}
	in.Category = "travel"
	require.NoError(t, r.Insert(ctx, in))
	assert.NotZero(t, in.Seq)

	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestInsert_NilCVVStoredAsNull(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, row("a", time.Now())))

	var isNull bool
	require.NoError(t, db.QueryRow(`SELECT cvv IS NULL FROM cards WHERE id = 'a'`).Scan(&isNull))
	assert.True(t, isNull)

	got, err := r.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, got.CVV)
}

func TestInsert_DuplicateID_Conflict(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, row("a", time.Now())))
	err := r.Insert(ctx, row("a", time.Now()))
	require.ErrorIs(t, err, common.ErrConflict)
}

func TestGetByID_Missing_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	_, err := r.GetByID(context.Background(), "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestAll_NewestFirst_TiesBySeq(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, r.Insert(ctx, row("old", base)))
	require.NoError(t, r.Insert(ctx, row("new", base.Add(time.Hour))))
	require.NoError(t, r.Insert(ctx, row("tie1", base.Add(30*time.Minute))))
	require.NoError(t, r.Insert(ctx, row("tie2", base.Add(30*time.Minute))))

	assert.Equal(t, []string{"new", "tie2", "tie1", "old"}, collect(t, r))
}

func TestAll_IsRestartable(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	seq := r.All(ctx)
	require.NoError(t, r.Insert(ctx, row("a", time.Now())))

	var first []string
	for c, err := range seq {
		require.NoError(t, err)
		first = append(first, c.ID)
	}
	require.NoError(t, r.Insert(ctx, row("b", time.Now().Add(time.Second))))

	var second []string
	for c, err := range seq {
		require.NoError(t, err)
		second = append(second, c.ID)
	}
	assert.Equal(t, []string{"a"}, first)
	assert.Equal(t, []string{"b", "a"}, second)
}

func TestAll_EarlyBreak(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.Insert(ctx, row(id, time.Now())))
	}

	n := 0
	for _, err := range r.All(ctx) {
		require.NoError(t, err)
		n++
		break
	}
	assert.Equal(t, 1, n)

	count, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestAll_CancelledContext(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var gotErr error
	for _, err := range r.All(ctx) {
		gotErr = err
	}
	require.Error(t, gotErr)
}

func TestDeleteByIDAndCount(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Insert(ctx, row("a", time.Now())))
	require.NoError(t, r.Insert(ctx, row("b", time.Now())))

	n, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, err := r.DeleteByID(ctx, "a")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = r.DeleteByID(ctx, "a")
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err = r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := r.Exists(ctx, "b")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.Exists(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
