package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamclicker/core/internal/infrastructure/logger"
)

func TestScalarRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, value := range []float64{0, 7.5, 20000000} {
		store := newSpyStore()
		s := NewScalar[float64](store, "count", 42, logger.NewNop())
		require.NoError(t, s.Set(ctx, value))

		// a fresh accessor stands in for a new session
		fresh := NewScalar[float64](store, "count", 42, logger.NewNop())
		assert.Equal(t, value, fresh.Load(ctx))
		assert.Equal(t, value, fresh.Get())
	}
}

func TestScalarStoresPlainNumbers(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	s := NewScalar[float64](store, "count", 0, logger.NewNop())

	require.NoError(t, s.Set(ctx, 20000000))
	raw, _, err := store.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, "20000000", raw)

	require.NoError(t, s.Set(ctx, 7.5))
	raw, _, err = store.Get(ctx, "count")
	require.NoError(t, err)
	assert.Equal(t, "7.5", raw)
}

func TestScalarLoadFallsBackToDefault(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		s := NewScalar[float64](newSpyStore(), "rate", 3, logger.NewNop())
		assert.Equal(t, 3.0, s.Load(ctx))
	})

	t.Run("corrupt", func(t *testing.T) {
		store := newSpyStore()
		require.NoError(t, store.MemoryStore.Set(ctx, "rate", "twelve yams"))
		s := NewScalar[float64](store, "rate", 3, logger.NewNop())
		assert.Equal(t, 3.0, s.Load(ctx))
	})

	t.Run("null", func(t *testing.T) {
		store := newSpyStore()
		require.NoError(t, store.MemoryStore.Set(ctx, "rate", "null"))
		s := NewScalar[float64](store, "rate", 3, logger.NewNop())
		assert.Equal(t, 3.0, s.Load(ctx))
	})

	t.Run("backend error", func(t *testing.T) {
		store := newSpyStore()
		store.failGet = true
		s := NewScalar[float64](store, "rate", 3, logger.NewNop())
		assert.Equal(t, 3.0, s.Load(ctx))
	})
}

func TestScalarLoadNeverWrites(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	s := NewScalar[float64](store, "count", 0, logger.NewNop())

	s.Load(ctx)
	s.Load(ctx)
	assert.Zero(t, store.setCount("count"))
}

func TestScalarUpdate(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	s := NewScalar[float64](store, "count", 10, logger.NewNop())

	got, err := s.Update(ctx, func(prev float64) float64 { return prev + 5 })
	require.NoError(t, err)
	assert.Equal(t, 15.0, got)
	assert.Equal(t, 1, store.setCount("count"))
}

func TestScalarFailedWriteKeepsValue(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	s := NewScalar[float64](store, "count", 0, logger.NewNop())
	require.NoError(t, s.Set(ctx, 4))

	store.setFailSet(true)
	assert.ErrorIs(t, s.Set(ctx, 9), errDiskFull)
	got, err := s.Update(ctx, func(prev float64) float64 { return prev * 2 })
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, 4.0, got)
	assert.Equal(t, 4.0, s.Get())
}

func TestScalarReset(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	s := NewScalar[float64](store, "count", 1, logger.NewNop())
	require.NoError(t, s.Set(ctx, 99))

	require.NoError(t, s.Reset(ctx))
	assert.Equal(t, 1.0, s.Get())
	_, found, err := store.Get(ctx, "count")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCountersAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	c := NewCounters(store, logger.NewNop())

	require.NoError(t, c.SetCount(ctx, 15))
	_, err := c.UpdateRate(ctx, func(prev float64) float64 { return prev + 0.1 })
	require.NoError(t, err)

	fresh := NewCounters(store, logger.NewNop())
	count, rate := fresh.Load(ctx)
	assert.Equal(t, 15.0, count)
	assert.Equal(t, 0.1, rate)
	assert.Equal(t, 1, store.setCount("count"))
	assert.Equal(t, 1, store.setCount("rate"))
}
