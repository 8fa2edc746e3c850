package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncer(t *testing.T) {
	t.Run("burst collapses to one trailing call", func(t *testing.T) {
		var calls atomic.Int64
		db := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })
		defer db.Stop()

		for i := 0; i < 10; i++ {
			db.Trigger()
			time.Sleep(2 * time.Millisecond)
		}

		require.Eventually(t, func() bool {
			return calls.Load() == 1
		}, time.Second, 5*time.Millisecond)

		// No extra call sneaks in afterwards.
		time.Sleep(60 * time.Millisecond)
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("separate bursts each fire", func(t *testing.T) {
		var calls atomic.Int64
		db := NewDebouncer(10*time.Millisecond, func() { calls.Add(1) })
		defer db.Stop()

		db.Trigger()
		require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 2*time.Millisecond)

		db.Trigger()
		require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 2*time.Millisecond)
	})

	t.Run("stop cancels the pending call", func(t *testing.T) {
		var calls atomic.Int64
		db := NewDebouncer(20*time.Millisecond, func() { calls.Add(1) })

		db.Trigger()
		db.Stop()

		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int64(0), calls.Load())

		// Triggers after Stop stay dead.
		db.Trigger()
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int64(0), calls.Load())
	})
}
