package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yamclicker/core/internal/adapters/repository"
	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/logger"
)

var errDiskFull = errors.New("disk full")

// spyStore wraps a memory store, counting writes and optionally failing them.
type spyStore struct {
	*repository.MemoryStore

	mu      sync.Mutex
	sets    map[string]int
	failSet bool
	failGet bool
}

func newSpyStore() *spyStore {
	return &spyStore{MemoryStore: repository.NewMemoryStore(), sets: map[string]int{}}
}

func (s *spyStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	fail := s.failGet
	s.mu.Unlock()
	if fail {
		return "", false, errDiskFull
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	fail := s.failSet
	if !fail {
		s.sets[key]++
	}
	s.mu.Unlock()
	if fail {
		return errDiskFull
	}
	return s.MemoryStore.Set(ctx, key, value)
}

func (s *spyStore) setCount(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

func (s *spyStore) setFailSet(fail bool) {
	s.mu.Lock()
	s.failSet = fail
	s.mu.Unlock()
}

func testStart() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
}

// newTestGame builds an initialised engine on a fake clock.
func newTestGame(t *testing.T, store *spyStore) (*GameService, *clock.Fake) {
	t.Helper()
	clk := clock.NewFake(testStart())
	game := NewGameService(store, clk, GameOptions{}, logger.NewNop())
	require.NoError(t, game.Init(context.Background()))
	t.Cleanup(game.Teardown)
	return game, clk
}
