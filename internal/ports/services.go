package ports

import (
	"context"

	"github.com/yamclicker/core/internal/domain/entities"
)

// GameEngine is the surface the UI adapters (HTTP, CLI, terminal) call.
type GameEngine interface {
	Count() float64
	Rate() float64
	SetCount(ctx context.Context, value float64) error
	UpdateCount(ctx context.Context, fn func(prev float64) float64) (float64, error)
	SetRate(ctx context.Context, value float64) error
	UpdateRate(ctx context.Context, fn func(prev float64) float64) (float64, error)

	LoadCatalog(ctx context.Context) entities.Catalog
	Catalog() entities.Catalog
	Purchase(ctx context.Context, id int) (entities.MarketItem, error)
	Unlock(ctx context.Context, id int) error
	MakeVisible(ctx context.Context, id int) error
	Reconcile(ctx context.Context) error

	Click(ctx context.Context) (float64, error)
	Buy(ctx context.Context, id int) (entities.MarketItem, error)
	Reset(ctx context.Context) error
	State() entities.State

	Subscribe(buffer int) (<-chan entities.Event, func())
}
