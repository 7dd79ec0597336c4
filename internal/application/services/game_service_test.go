package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/logger"
)

func drain(ch <-chan entities.Event) []entities.EventType {
	var types []entities.EventType
	for {
		select {
		case ev := <-ch:
			types = append(types, ev.Type)
		default:
			return types
		}
	}
}

func TestGameFreshStart(t *testing.T) {
	store := newSpyStore()
	game, clk := newTestGame(t, store)

	state := game.State()
	assert.Zero(t, state.Count)
	assert.Zero(t, state.Rate)
	if diff := cmp.Diff(entities.DefaultSeedCatalog(), state.Catalog); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
	assert.Zero(t, clk.Active())

	// initialisation reads but never writes
	for _, key := range []string{entities.KeyCount, entities.KeyRate, entities.KeyMarketItems} {
		assert.Zero(t, store.setCount(key), key)
	}
}

func TestGamePurchaseFlow(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	game, clk := newTestGame(t, store)

	require.NoError(t, game.SetCount(ctx, 15))
	item := game.Catalog()[0]
	assert.True(t, item.Unlocked)

	bought, err := game.Buy(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, bought.Amount)
	assert.Equal(t, 18.0, bought.Cost)
	assert.Zero(t, game.Count())
	assert.InDelta(t, 0.1, game.Rate(), 1e-9)

	// the unlock latch survives the count dropping below the new cost
	assert.True(t, game.Catalog()[0].Unlocked)

	clk.Advance(10 * time.Second)
	assert.Equal(t, 1.0, game.Count())
}

func TestGameBuyInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	game, _ := newTestGame(t, store)
	require.NoError(t, game.SetCount(ctx, 14))
	before := game.State()
	writes := store.setCount(entities.KeyMarketItems)

	_, err := game.Buy(ctx, 0)
	assert.ErrorIs(t, err, entities.ErrInsufficientFunds)

	if diff := cmp.Diff(before, game.State()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
	assert.Equal(t, writes, store.setCount(entities.KeyMarketItems))
}

func TestGameInvalidItem(t *testing.T) {
	ctx := context.Background()
	game, _ := newTestGame(t, newSpyStore())
	require.NoError(t, game.SetCount(ctx, 1e12))
	before := game.State()

	_, err := game.Buy(ctx, 8)
	assert.ErrorIs(t, err, entities.ErrItemNotFound)
	_, err = game.Purchase(ctx, -1)
	assert.ErrorIs(t, err, entities.ErrItemNotFound)
	assert.ErrorIs(t, game.Unlock(ctx, 42), entities.ErrItemNotFound)
	assert.ErrorIs(t, game.MakeVisible(ctx, 42), entities.ErrItemNotFound)

	if diff := cmp.Diff(before, game.State()); diff != "" {
		t.Errorf("state changed (-before +after):\n%s", diff)
	}
}

func TestGameRawPurchaseDoesNotTouchCounters(t *testing.T) {
	ctx := context.Background()
	game, _ := newTestGame(t, newSpyStore())

	bought, err := game.Purchase(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, bought.Amount)
	assert.Equal(t, 1265.0, bought.Cost)
	assert.Zero(t, game.Count())
	assert.Zero(t, game.Rate())
}

func TestGameTicksFollowRate(t *testing.T) {
	ctx := context.Background()
	game, clk := newTestGame(t, newSpyStore())

	require.NoError(t, game.SetRate(ctx, 2.3))
	clk.Advance(time.Second)
	assert.Equal(t, 2.0, game.Count())

	clk.Advance(9 * time.Second)
	assert.Equal(t, 23.0, game.Count())

	require.NoError(t, game.SetRate(ctx, 0))
	clk.Advance(time.Minute)
	assert.Equal(t, 23.0, game.Count())
	assert.Zero(t, clk.Active())
}

func TestGameTicksReconcileLatches(t *testing.T) {
	ctx := context.Background()
	game, clk := newTestGame(t, newSpyStore())

	require.NoError(t, game.SetRate(ctx, 5))
	clk.Advance(3 * time.Second)

	items := game.Catalog()
	assert.Equal(t, 15.0, game.Count())
	assert.True(t, items[0].Unlocked)
	assert.True(t, items[2].Visible)
	assert.False(t, items[3].Visible)
}

func TestGameClick(t *testing.T) {
	ctx := context.Background()
	game, _ := newTestGame(t, newSpyStore())

	for i := 0; i < 3; i++ {
		_, err := game.Click(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 3.0, game.Count())

	custom := NewGameService(newSpyStore(), clock.NewFake(testStart()), GameOptions{ClickValue: 5}, logger.NewNop())
	require.NoError(t, custom.Init(ctx))
	defer custom.Teardown()
	got, err := custom.Click(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)
}

func TestGameStatePersistsAcrossSessions(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()

	first, _ := newTestGame(t, store)
	require.NoError(t, first.SetCount(ctx, 120))
	_, err := first.Buy(ctx, 1)
	require.NoError(t, err)
	want := first.State()
	first.Teardown()

	second, clk := newTestGame(t, store)
	if diff := cmp.Diff(want, second.State()); diff != "" {
		t.Errorf("state mismatch (-first +second):\n%s", diff)
	}

	// the restored rate drives the scheduler straight away
	clk.Advance(time.Second)
	assert.Equal(t, 21.0, second.Count())
}

func TestGameCorruptCatalogFallsBackToSeed(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	require.NoError(t, store.MemoryStore.Set(ctx, entities.KeyMarketItems, "not a catalog"))
	require.NoError(t, store.MemoryStore.Set(ctx, entities.KeyCount, "7.5"))

	game, _ := newTestGame(t, store)
	assert.Equal(t, 7.5, game.Count())
	if diff := cmp.Diff(entities.DefaultSeedCatalog(), game.Catalog()); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}
}

func TestGameLoadCatalogPicksUpExternalWrites(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	game, _ := newTestGame(t, store)

	other := newTestMarket(store)
	_, err := other.Purchase(ctx, 6)
	require.NoError(t, err)

	items := game.LoadCatalog(ctx)
	assert.Equal(t, 1, items[6].Amount)
	assert.Equal(t, items, game.Catalog())
}

func TestGameEvents(t *testing.T) {
	ctx := context.Background()
	game, _ := newTestGame(t, newSpyStore())
	require.NoError(t, game.SetCount(ctx, 15))

	events, cancel := game.Subscribe(16)
	defer cancel()

	_, err := game.Buy(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []entities.EventType{
		entities.EventItemPurchased,
		entities.EventCountChanged,
		entities.EventRateChanged,
	}, drain(events))

	// latching an already set flag is silent
	require.NoError(t, game.Unlock(ctx, 0))
	assert.Empty(t, drain(events))

	require.NoError(t, game.MakeVisible(ctx, 7))
	assert.Equal(t, []entities.EventType{entities.EventItemVisible}, drain(events))
}

func TestGameEventsCarryState(t *testing.T) {
	ctx := context.Background()
	game, _ := newTestGame(t, newSpyStore())
	events, cancel := game.Subscribe(8)
	defer cancel()

	require.NoError(t, game.SetCount(ctx, 100))

	var got []entities.Event
	for len(events) > 0 {
		got = append(got, <-events)
	}
	require.NotEmpty(t, got)
	for _, ev := range got {
		assert.Equal(t, 100.0, ev.Count)
		assert.Equal(t, testStart(), ev.At)
	}

	want := []entities.Event{
		{Type: entities.EventCountChanged, Count: 100},
		{Type: entities.EventItemUnlocked, ItemID: intPtr(0), Count: 100},
		{Type: entities.EventItemUnlocked, ItemID: intPtr(1), Count: 100},
		{Type: entities.EventItemVisible, ItemID: intPtr(2), Count: 100},
		{Type: entities.EventItemVisible, ItemID: intPtr(3), Count: 100},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(entities.Event{}, "ID", "At")); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestGameReset(t *testing.T) {
	ctx := context.Background()
	store := newSpyStore()
	game, clk := newTestGame(t, store)
	require.NoError(t, game.SetCount(ctx, 200))
	_, err := game.Buy(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, game.Reset(ctx))

	state := game.State()
	assert.Zero(t, state.Count)
	assert.Zero(t, state.Rate)
	assert.Equal(t, entities.DefaultSeedCatalog(), state.Catalog)
	assert.Zero(t, clk.Active())
	for _, key := range []string{entities.KeyCount, entities.KeyRate, entities.KeyMarketItems} {
		_, found, err := store.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, found, key)
	}
}

func TestGameRejectsCallsOutsideLifecycle(t *testing.T) {
	ctx := context.Background()
	game := NewGameService(newSpyStore(), clock.NewFake(testStart()), GameOptions{}, logger.NewNop())

	_, err := game.Click(ctx)
	assert.ErrorIs(t, err, entities.ErrEngineNotStarted)

	require.NoError(t, game.Init(ctx))
	game.Teardown()

	_, err = game.Click(ctx)
	assert.ErrorIs(t, err, entities.ErrEngineNotStarted)
	_, err = game.Buy(ctx, 0)
	assert.ErrorIs(t, err, entities.ErrEngineNotStarted)
	assert.ErrorIs(t, game.SetRate(ctx, 1), entities.ErrEngineNotStarted)
	assert.ErrorIs(t, game.Reset(ctx), entities.ErrEngineNotStarted)
	assert.ErrorIs(t, game.Reconcile(ctx), entities.ErrEngineNotStarted)
}

func TestGameTeardownStopsTicks(t *testing.T) {
	ctx := context.Background()
	game, clk := newTestGame(t, newSpyStore())
	events, _ := game.Subscribe(1)

	require.NoError(t, game.SetRate(ctx, 3))
	game.Teardown()
	clk.Advance(time.Minute)

	assert.Zero(t, game.Count())
	assert.Zero(t, clk.Active())
	for range events {
	}
}

func TestGameRealClockTeardownLeavesNoGoroutines(t *testing.T) {
	ctx := context.Background()
	game := NewGameService(newSpyStore(), clock.Real{}, GameOptions{
		WholeTickInterval:    time.Millisecond,
		FractionTickInterval: 10 * time.Millisecond,
	}, logger.NewNop())
	require.NoError(t, game.Init(ctx))
	require.NoError(t, game.SetRate(ctx, 4.5))

	assert.Eventually(t, func() bool { return game.Count() >= 8 }, time.Second, time.Millisecond)
	game.Teardown()

	goleak.VerifyNone(t)
}

func intPtr(v int) *int { return &v }

func TestGameClickEvents(t *testing.T) {
	ctx := context.Background()
	game, _ := newTestGame(t, newSpyStore())
	events, cancel := game.Subscribe(8)
	defer cancel()

	_, err := game.Click(ctx)
	require.NoError(t, err)
	assert.Equal(t, []entities.EventType{entities.EventCountChanged, entities.EventClicked}, drain(events))
}
