package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSink_PutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")
	s, err := NewFileSink(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "wallet.json", []byte("v1")))
	require.NoError(t, s.Put(ctx, "wallet.json", []byte("v2")))

	data, err := s.Get(ctx, "wallet.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), data)

	info, err := os.Stat(filepath.Join(dir, "wallet.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestFileSink_GetMissing(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "nope.json")
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestFileSink_RejectsPaths(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../x", "a/b", `a\b`, ".hidden"} {
		require.ErrorIs(t, s.Put(ctx, name, nil), ErrInvalidName, name)
		_, err := s.Get(ctx, name)
		require.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestFileSink_CancelledContext(t *testing.T) {
	s, err := NewFileSink(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, s.Put(ctx, "x", []byte("1")), context.Canceled)
}

func TestFileSink_MaxSize(t *testing.T) {
	s, err := NewFileSink(t.TempDir(), MaxSize(8))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "small.json", []byte("12345678")))
	data, err := s.Get(ctx, "small.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("12345678"), data)

	require.NoError(t, s.Put(ctx, "big.json", []byte("123456789")))
	_, err = s.Get(ctx, "big.json")
	require.ErrorIs(t, err, ErrTooLarge)
}
