package services

import (
	"context"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// Counters holds the two independently persisted resource counters. Setting
// both (as a purchase does) is two separate writes.
type Counters struct {
	count *Scalar[float64]
	rate  *Scalar[float64]
}

// NewCounters creates counters bound to the "count" and "rate" keys
func NewCounters(store ports.KeyValueStore, log *logger.Logger) *Counters {
	log = log.WithComponent("counters")
	return &Counters{
		count: NewScalar[float64](store, entities.KeyCount, 0, log),
		rate:  NewScalar[float64](store, entities.KeyRate, 0, log),
	}
}

// Load reads both counters from storage.
func (c *Counters) Load(ctx context.Context) (count, rate float64) {
	return c.count.Load(ctx), c.rate.Load(ctx)
}

func (c *Counters) Count() float64 { return c.count.Get() }

func (c *Counters) Rate() float64 { return c.rate.Get() }

func (c *Counters) SetCount(ctx context.Context, v float64) error {
	return c.count.Set(ctx, v)
}

func (c *Counters) UpdateCount(ctx context.Context, fn func(float64) float64) (float64, error) {
	return c.count.Update(ctx, fn)
}

func (c *Counters) SetRate(ctx context.Context, v float64) error {
	return c.rate.Set(ctx, v)
}

func (c *Counters) UpdateRate(ctx context.Context, fn func(float64) float64) (float64, error) {
	return c.rate.Update(ctx, fn)
}

// Reset deletes both stored counters and zeroes them.
func (c *Counters) Reset(ctx context.Context) error {
	if err := c.count.Reset(ctx); err != nil {
		return err
	}
	return c.rate.Reset(ctx)
}
