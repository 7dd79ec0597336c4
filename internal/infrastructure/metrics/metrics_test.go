package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/yamclicker/core/internal/domain/entities"
)

func event(eventType entities.EventType, count, rate float64) entities.Event {
	ev := entities.NewEvent(time.Now(), eventType)
	ev.Count, ev.Rate = count, rate
	return ev
}

func itemEvent(eventType entities.EventType, id int) entities.Event {
	return entities.NewItemEvent(time.Now(), eventType, id)
}

func TestObserve(t *testing.T) {
	c := New()

	c.Observe(event(entities.EventClicked, 1, 0))
	c.Observe(event(entities.EventClicked, 2, 0))
	c.Observe(itemEvent(entities.EventItemPurchased, 0))
	c.Observe(itemEvent(entities.EventItemPurchased, 0))
	c.Observe(itemEvent(entities.EventItemPurchased, 3))
	c.Observe(itemEvent(entities.EventItemUnlocked, 1))
	c.Observe(event(entities.EventRateChanged, 15, 2.3))

	assert.Equal(t, 2.0, testutil.ToFloat64(c.clicks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.purchases.WithLabelValues("0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.purchases.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unlocked))
	assert.Equal(t, 15.0, testutil.ToFloat64(c.count))
	assert.Equal(t, 2.3, testutil.ToFloat64(c.rate))
}

func TestSetState(t *testing.T) {
	c := New()
	c.SetState(42, 1.5)

	assert.Equal(t, 42.0, testutil.ToFloat64(c.count))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.rate))
}

func TestRunStopsWhenChannelCloses(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New()
	events := make(chan entities.Event, 2)
	events <- event(entities.EventClicked, 1, 0)
	events <- event(entities.EventClicked, 2, 0)
	close(events)

	done := make(chan struct{})
	go func() {
		c.Run(context.Background(), events)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(c.clicks))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, make(chan entities.Event))
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRegistryGathers(t *testing.T) {
	c := New()
	c.Observe(itemEvent(entities.EventItemPurchased, 2))

	count, err := testutil.GatherAndCount(c.Registry, "yams_purchases_total", "yams_count")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}
