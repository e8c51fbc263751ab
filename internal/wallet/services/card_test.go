package services

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/dmitrijs2005/cardvault/internal/cryptox"
	"github.com/dmitrijs2005/cardvault/internal/wallet/database"
	"github.com/dmitrijs2005/cardvault/internal/wallet/keys"
	"github.com/dmitrijs2005/cardvault/internal/wallet/models"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newSession(t *testing.T, db *sql.DB, secret string) *keys.Session {
	t.Helper()
	m := keys.NewManager(db, keys.Options{KDF: cryptox.KDFParams{Time: 1, MemoryKiB: 64, Threads: 1}})
	s, err := m.Initialize(context.Background(), []byte(secret))
	require.NoError(t, err)
	return s
}

func setup(t *testing.T, opts CardOptions) (*CardService, *keys.Session, *sql.DB) {
	t.Helper()
	db := openDB(t)
	return NewCardService(db, opts), newSession(t, db, "1234"), db
}

func mainCard() models.NewCard {
	return models.NewCard{
		Name:        "Main Card",
		Number:      "4532123456789012",
		ExpiryMonth: "12",
		ExpiryYear:  "26",
		CVV:         "123",
		Type:        models.CardTypeCredit,
	}
}

func TestCreateAndGet_MainCard(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	id, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := svc.Get(ctx, s, id)
	require.NoError(t, err)

	want := &models.Card{
		ID:          id,
		Name:        "Main Card",
		Number:      "4532123456789012",
		ExpiryMonth: "12",
		ExpiryYear:  "26",
		Type:        models.CardTypeCredit,
		Color:       models.DefaultColor,
		LastFour:    "9012",
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(models.Card{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Errorf("card mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, got.CVV, "cvv is discarded by default")
	assert.False(t, got.CreatedAt.IsZero())

	n, err := svc.Count(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCreate_RetainCVV(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{RetainCVV: true})
	ctx := context.Background()

	id, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)

	got, err := svc.Get(ctx, s, id)
	require.NoError(t, err)
	assert.Equal(t, "123", got.CVV)
}

func TestCreate_StoresNoPlaintext(t *testing.T) {
	svc, s, db := setup(t, CardOptions{RetainCVV: true})
	ctx := context.Background()

	_, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)

	var number, cvv []byte
	require.NoError(t, db.QueryRow(`SELECT number, cvv FROM cards`).Scan(&number, &cvv))
	assert.NotContains(t, string(number), "4532123456789012")
	assert.NotContains(t, string(cvv), "123")
}

func TestCreate_Invalid_NothingStored(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	in := mainCard()
	in.Number = "12ab"
	in.ExpiryMonth = "13"
	_, err := svc.Create(ctx, s, in)
	require.ErrorIs(t, err, common.ErrValidation)

	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.True(t, ve.Has(models.FieldNumber))
	assert.True(t, ve.Has(models.FieldExpiryMonth))

	n, err := svc.Count(ctx, s)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreate_RequireLuhn(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{RequireLuhn: true})
	ctx := context.Background()

	_, err := svc.Create(ctx, s, mainCard())
	require.ErrorIs(t, err, common.ErrValidation)

	in := mainCard()
	in.Number = "4111111111111111"
	_, err = svc.Create(ctx, s, in)
	require.NoError(t, err)
}

func TestOperations_LockedSession(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	id, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)
	s.Lock()

	for _, sess := range []*keys.Session{s, nil} {
		_, err = svc.Create(ctx, sess, mainCard())
		require.ErrorIs(t, err, common.ErrLocked)
		_, err = svc.Get(ctx, sess, id)
		require.ErrorIs(t, err, common.ErrLocked)
		_, err = svc.List(ctx, sess)
		require.ErrorIs(t, err, common.ErrLocked)
		_, err = svc.Count(ctx, sess)
		require.ErrorIs(t, err, common.ErrLocked)
		require.ErrorIs(t, svc.Delete(ctx, sess, id), common.ErrLocked)
		require.ErrorIs(t, svc.Restore(ctx, sess, models.Card{ID: "x"}), common.ErrLocked)
	}
}

func TestGet_Missing(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	_, err := svc.Get(context.Background(), s, "nope")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCreateDelete_CountAndOrder(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	const n = 6
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		in := mainCard()
		in.Name = fmt.Sprintf("card %d", i)
		id, err := svc.Create(ctx, s, in)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	require.NoError(t, svc.Delete(ctx, s, ids[1]))
	require.NoError(t, svc.Delete(ctx, s, ids[4]))

	count, err := svc.Count(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, n-2, count)

	list, err := svc.List(ctx, s)
	require.NoError(t, err)
	var got []string
	for _, c := range list {
		got = append(got, c.ID)
	}
	assert.Equal(t, []string{ids[5], ids[3], ids[2], ids[0]}, got)
}

func TestDelete_IdempotentAndStrict(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	id, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, s, id))
	require.NoError(t, svc.Delete(ctx, s, id))
	require.ErrorIs(t, svc.Delete(ctx, s, id, Strict()), common.ErrNotFound)

	strict := NewCardService(svc.db, CardOptions{StrictDelete: true})
	require.ErrorIs(t, strict.Delete(ctx, s, "nope"), common.ErrNotFound)
}

func TestGet_TamperedRow_Integrity(t *testing.T) {
	svc, s, db := setup(t, CardOptions{})
	ctx := context.Background()

	a, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)
	other := mainCard()
	other.Number = "5555555555554444"
	b, err := svc.Create(ctx, s, other)
	require.NoError(t, err)

	// a ciphertext moved to another row must not decrypt there
	_, err = db.Exec(`UPDATE cards SET number = (SELECT number FROM cards WHERE id = ?) WHERE id = ?`, b, a)
	require.NoError(t, err)

	_, err = svc.Get(ctx, s, a)
	require.ErrorIs(t, err, common.ErrIntegrity)
	assert.Contains(t, err.Error(), a)
	assert.NotContains(t, err.Error(), "5555555555554444")

	// a flipped byte is detected too
	var sealed []byte
	require.NoError(t, db.QueryRow(`SELECT number FROM cards WHERE id = ?`, b).Scan(&sealed))
	sealed[len(sealed)/2] ^= 0xFF
	_, err = db.Exec(`UPDATE cards SET number = ? WHERE id = ?`, sealed, b)
	require.NoError(t, err)
	_, err = svc.Get(ctx, s, b)
	require.ErrorIs(t, err, common.ErrIntegrity)

	_, err = svc.List(ctx, s)
	require.ErrorIs(t, err, common.ErrIntegrity)
}

func TestGet_WrongKey_Integrity(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	id, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)

	foreign := newSession(t, openDB(t), "1234")
	_, err = svc.Get(ctx, foreign, id)
	require.ErrorIs(t, err, common.ErrIntegrity)
}

func TestCount_DecryptsNothing(t *testing.T) {
	svc, s, db := setup(t, CardOptions{})
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := svc.Create(ctx, s, mainCard())
		require.NoError(t, err)
		ids = append(ids, id)
	}

	_, err := db.Exec(`UPDATE cards SET number = x'00' WHERE id = ?`, ids[1])
	require.NoError(t, err)

	n, err := svc.Count(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = svc.Get(ctx, s, ids[1])
	require.ErrorIs(t, err, common.ErrIntegrity)
	_, err = svc.List(ctx, s)
	require.ErrorIs(t, err, common.ErrIntegrity)

	// a session for another vault holds the wrong key for every row
	foreign := newSession(t, openDB(t), "9999")
	n, err = svc.Count(ctx, foreign)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = svc.Get(ctx, foreign, ids[0])
	require.ErrorIs(t, err, common.ErrIntegrity)

	foreign.Lock()
	_, err = svc.Count(ctx, foreign)
	require.ErrorIs(t, err, common.ErrLocked)
}

func TestAll_LockDuringIteration(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, s, mainCard())
		require.NoError(t, err)
	}

	var seen int
	var lastErr error
	for c, err := range svc.All(ctx, s) {
		if err != nil {
			lastErr = err
			break
		}
		require.NotNil(t, c)
		seen++
		s.Lock()
	}
	assert.Equal(t, 1, seen)
	require.ErrorIs(t, lastErr, common.ErrLocked)
}

func TestAll_Restartable(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	seq := svc.All(ctx, s)
	count := func() int {
		n := 0
		for _, err := range seq {
			require.NoError(t, err)
			n++
		}
		return n
	}

	assert.Equal(t, 0, count())
	_, err := svc.Create(ctx, s, mainCard())
	require.NoError(t, err)
	assert.Equal(t, 1, count())
	assert.Equal(t, 1, count())
}

func TestRestore_KeepsIDAndConflicts(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{RetainCVV: true})
	ctx := context.Background()

	created := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	card := models.Card{
		ID:          "0190a000-0000-7000-8000-000000000001",
		Name:        "Restored",
		Number:      "4111111111111111",
		ExpiryMonth: "01",
		ExpiryYear:  "29",
		CVV:         "999",
		Type:        models.CardTypeDebit,
		LastFour:    "1111",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, svc.Restore(ctx, s, card))

	got, err := svc.Get(ctx, s, card.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "999", got.CVV)
	assert.Equal(t, models.DefaultColor, got.Color)

	require.ErrorIs(t, svc.Restore(ctx, s, card), common.ErrConflict)

	bad := card
	bad.ID = "other"
	bad.LastFour = "0000"
	require.ErrorIs(t, svc.Restore(ctx, s, bad), common.ErrValidation)
}

func TestCreate_Concurrent(t *testing.T) {
	svc, s, _ := setup(t, CardOptions{})
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := svc.Create(ctx, s, mainCard())
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[string]bool{}
	for id := range ids {
		unique[id] = true
	}
	assert.Len(t, unique, n)

	count, err := svc.Count(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}
