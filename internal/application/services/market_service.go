package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// DefaultCostMultiplier is applied to an item's cost on every purchase.
const DefaultCostMultiplier = 1.15

// MarketService owns the market catalog and persists it as one blob under
// the "marketItems" key. It does not check affordability.
type MarketService struct {
	mu         sync.RWMutex
	store      ports.KeyValueStore
	seed       entities.Catalog
	items      entities.Catalog
	multiplier float64
	now        func() time.Time
	logger     *logger.Logger
}

// NewMarketService creates a market service seeded with seed. The catalog
// holds the seed until Load is called.
func NewMarketService(store ports.KeyValueStore, seed entities.Catalog, multiplier float64, now func() time.Time, log *logger.Logger) *MarketService {
	if multiplier <= 1 {
		multiplier = DefaultCostMultiplier
	}
	if now == nil {
		now = time.Now
	}
	return &MarketService{
		store:      store,
		seed:       seed.Clone(),
		items:      seed.Clone(),
		multiplier: multiplier,
		now:        now,
		logger:     log.WithComponent("market"),
	}
}

// Load replaces the in-memory catalog with the persisted one, or with the
// seed when nothing well-formed is stored. It never writes.
func (s *MarketService) Load(ctx context.Context) entities.Catalog {
	items := s.read(ctx)

	s.mu.Lock()
	s.items = items
	s.mu.Unlock()

	return items.Clone()
}

func (s *MarketService) read(ctx context.Context) entities.Catalog {
	raw, found, err := s.store.Get(ctx, entities.KeyMarketItems)
	if err != nil {
		s.logger.Warnw("Failed to read catalog, using seed", "error", err)
		return s.seed.Clone()
	}
	if !found {
		return s.seed.Clone()
	}

	var items entities.Catalog
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warnw("Persisted catalog is not valid JSON, using seed", "error", err)
		return s.seed.Clone()
	}
	if err := entities.ValidateCatalog(items); err != nil {
		s.logger.Warnw("Persisted catalog is malformed, using seed", "error", err)
		return s.seed.Clone()
	}
	return items
}

// Items returns a snapshot of the catalog.
func (s *MarketService) Items() entities.Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items.Clone()
}

// Item returns one item by id.
func (s *MarketService) Item(id int) (entities.MarketItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.items.Valid(id) {
		return entities.MarketItem{}, itemNotFound(id)
	}
	return s.items[id], nil
}

// Purchase adds one unit of the item and raises its cost by the multiplier,
// rounded up.
func (s *MarketService) Purchase(ctx context.Context, id int) (entities.MarketItem, error) {
	var bought entities.MarketItem
	err := s.mutate(ctx, id, func(item *entities.MarketItem) {
		item.Amount++
		item.Cost = NextCost(item.Cost, s.multiplier)
		bought = *item
	})
	if err != nil {
		return entities.MarketItem{}, err
	}
	return bought, nil
}

// Unlock latches the unlocked flag. Calling it again is a no-op that still
// rewrites the blob.
func (s *MarketService) Unlock(ctx context.Context, id int) error {
	return s.mutate(ctx, id, func(item *entities.MarketItem) {
		item.Unlocked = true
	})
}

// MakeVisible latches the visible flag.
func (s *MarketService) MakeVisible(ctx context.Context, id int) error {
	return s.mutate(ctx, id, func(item *entities.MarketItem) {
		item.Visible = true
	})
}

// Reconcile reveals every item whose threshold count has reached and unlocks
// every item whose cost count has reached. The catalog is written once, only
// when a latch flipped.
func (s *MarketService) Reconcile(ctx context.Context, count float64) ([]entities.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.items.Clone()
	var events []entities.Event
	at := s.now()

	for i := range s.items {
		item := &s.items[i]
		if !item.Visible && count >= item.Threshold {
			item.Visible = true
			events = append(events, entities.NewItemEvent(at, entities.EventItemVisible, item.ID))
		}
		if !item.Unlocked && count >= item.Cost {
			item.Unlocked = true
			events = append(events, entities.NewItemEvent(at, entities.EventItemUnlocked, item.ID))
		}
	}

	if len(events) == 0 {
		return nil, nil
	}
	if err := s.persistLocked(ctx); err != nil {
		s.items = before
		return nil, err
	}
	return events, nil
}

// Reset deletes the stored catalog and restores the seed.
func (s *MarketService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Delete(ctx, entities.KeyMarketItems); err != nil {
		return fmt.Errorf("reset catalog: %w", err)
	}
	s.items = s.seed.Clone()
	return nil
}

// mutate applies fn to one item and writes the whole catalog, restoring the
// previous state if the write fails.
func (s *MarketService) mutate(ctx context.Context, id int, fn func(item *entities.MarketItem)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.items.Valid(id) {
		return itemNotFound(id)
	}

	before := s.items.Clone()
	fn(&s.items[id])
	if err := s.persistLocked(ctx); err != nil {
		s.items = before
		return err
	}
	return nil
}

func (s *MarketService) persistLocked(ctx context.Context) error {
	raw, err := json.Marshal(s.items)
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.store.Set(ctx, entities.KeyMarketItems, string(raw)); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}

// NextCost returns the cost after one purchase.
func NextCost(cost, multiplier float64) float64 {
	return math.Ceil(cost * multiplier)
}

func itemNotFound(id int) error {
	return fmt.Errorf("item %d: %w", id, entities.ErrItemNotFound)
}
