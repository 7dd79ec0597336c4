package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/logger"
)

func TestEventBusFanOut(t *testing.T) {
	bus := NewEventBus(logger.NewNop())
	a, cancelA := bus.Subscribe(4)
	b, cancelB := bus.Subscribe(4)
	defer cancelA()
	defer cancelB()

	bus.Publish(
		entities.NewEvent(testStart(), entities.EventCountChanged),
		entities.NewEvent(testStart(), entities.EventRateChanged),
	)

	for _, ch := range []<-chan entities.Event{a, b} {
		assert.Equal(t, entities.EventCountChanged, (<-ch).Type)
		assert.Equal(t, entities.EventRateChanged, (<-ch).Type)
	}
}

func TestEventBusDropsWhenFull(t *testing.T) {
	bus := NewEventBus(logger.NewNop())
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(
		entities.NewEvent(testStart(), entities.EventCountChanged),
		entities.NewEvent(testStart(), entities.EventCountChanged),
		entities.NewEvent(testStart(), entities.EventCountChanged),
	)

	assert.Len(t, ch, 1)
	assert.Equal(t, uint64(2), bus.Dropped())
}

func TestEventBusCancel(t *testing.T) {
	bus := NewEventBus(logger.NewNop())
	ch, cancel := bus.Subscribe(1)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)

	bus.Publish(entities.NewEvent(testStart(), entities.EventCountChanged))
	assert.Zero(t, bus.Dropped())
}

func TestEventBusCloseAll(t *testing.T) {
	bus := NewEventBus(logger.NewNop())
	ch, cancel := bus.Subscribe(1)

	bus.CloseAll()
	_, open := <-ch
	require.False(t, open)

	// cancelling after CloseAll must not close the channel twice
	assert.NotPanics(t, cancel)
}
