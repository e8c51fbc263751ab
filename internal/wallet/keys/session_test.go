package keys

import (
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/cardvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_LockWipesKey(t *testing.T) {
	key := []byte{1, 2, 3, 4}
	s := newSession(key, 0, time.Now)

	require.NoError(t, s.WithKey(func(k []byte) error { return nil }))
	s.Lock()
	s.Lock()

	assert.Equal(t, []byte{0, 0, 0, 0}, key)
	assert.True(t, s.Locked())
	require.ErrorIs(t, s.WithKey(func(k []byte) error { return nil }), common.ErrLocked)
}

func TestSession_Nil(t *testing.T) {
	var s *Session
	require.ErrorIs(t, s.WithKey(func(k []byte) error { return nil }), common.ErrLocked)
	assert.True(t, s.Locked())
	s.Lock()
}

func TestSession_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newSession([]byte{1}, time.Minute, clock.Now)

	require.NoError(t, s.WithKey(func(k []byte) error { return nil }))
	clock.Advance(time.Minute)
	require.ErrorIs(t, s.WithKey(func(k []byte) error { return nil }), common.ErrLocked)
	assert.True(t, s.Locked())
}

func TestSession_LockWaitsForInFlight(t *testing.T) {
	s := newSession([]byte{7}, 0, time.Now)

	entered := make(chan struct{})
	release := make(chan struct{})
	var seen byte
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.WithKey(func(k []byte) error {
			close(entered)
			<-release
			seen = k[0]
			return nil
		})
	}()
	<-entered

	locked := make(chan struct{})
	go func() {
		s.Lock()
		close(locked)
	}()

	select {
	case <-locked:
		t.Fatal("Lock returned while an operation held the key")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	wg.Wait()
	<-locked

	assert.Equal(t, byte(7), seen, "in-flight operation saw the intact key")
	assert.True(t, s.Locked())
}
