package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// Concurrent read-modify-write under the same player lock must behave as if
// the operations ran sequentially.
func TestConcurrentStateSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initial := rapid.Int64Range(1000, 100000).Draw(t, "initial")
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		deltas := make([]int64, numOps)
		expected := initial
		for i := range deltas {
			deltas[i] = rapid.Int64Range(-500, 500).Draw(t, "delta")
			expected += deltas[i]
		}

		pl := NewPlayerLock()
		playerID := rapid.StringMatching(`[a-z0-9-]{8,36}`).Draw(t, "playerID")
		value := initial

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(delta int64) {
				defer wg.Done()
				pl.Lock(playerID)
				defer pl.Unlock(playerID)
				value += delta
			}(d)
		}
		wg.Wait()

		if value != expected {
			t.Fatalf("value mismatch with locking: expected %d, got %d", expected, value)
		}
	})
}

func TestTryLock(t *testing.T) {
	pl := NewPlayerLock()

	assert.True(t, pl.TryLock("p1"))
	assert.False(t, pl.TryLock("p1"))
	assert.True(t, pl.TryLock("p2"), "different players do not contend")

	pl.Unlock("p1")
	assert.True(t, pl.TryLock("p1"))
	pl.Unlock("p1")
	pl.Unlock("p2")
}

func TestLockWithTimeout(t *testing.T) {
	pl := NewPlayerLock()
	ctx := context.Background()

	pl.Lock("p1")
	acquired := pl.LockWithTimeout(ctx, "p1", 50*time.Millisecond)
	assert.False(t, acquired)

	pl.Unlock("p1")
	// The abandoned waiter releases the lock once it gets it; eventually the
	// lock is free again.
	assert.Eventually(t, func() bool {
		if !pl.TryLock("p1") {
			return false
		}
		pl.Unlock("p1")
		return true
	}, time.Second, 5*time.Millisecond)
}

func TestWithLock(t *testing.T) {
	pl := NewPlayerLock()
	ran := false

	err := pl.WithLock("p1", func() error {
		ran = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, ran)
	assert.True(t, pl.TryLock("p1"), "lock released after WithLock")
	pl.Unlock("p1")
}

func TestWithLockContext_Timeout(t *testing.T) {
	pl := NewPlayerLock()
	pl.Lock("p1")
	defer pl.Unlock("p1")

	err := pl.WithLockContext(context.Background(), "p1", 20*time.Millisecond, func() error {
		t.Fatal("must not run while the lock is held elsewhere")
		return nil
	})

	assert.ErrorIs(t, err, ErrLockTimeout)
}
