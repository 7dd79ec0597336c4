package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yamclicker/core/internal/domain/entities"
	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/logger"
	"github.com/yamclicker/core/internal/ports"
)

// GameOptions tunes the engine.
type GameOptions struct {
	ClickValue           float64
	CostMultiplier       float64
	WholeTickInterval    time.Duration
	FractionTickInterval time.Duration
	StorageTimeout       time.Duration
	Seed                 entities.Catalog
}

func (o *GameOptions) applyDefaults() {
	if o.ClickValue <= 0 {
		o.ClickValue = 1
	}
	if o.CostMultiplier <= 1 {
		o.CostMultiplier = DefaultCostMultiplier
	}
	if o.WholeTickInterval <= 0 {
		o.WholeTickInterval = time.Second
	}
	if o.FractionTickInterval <= 0 {
		o.FractionTickInterval = 10 * time.Second
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 2 * time.Second
	}
	if len(o.Seed) == 0 {
		o.Seed = entities.DefaultSeedCatalog()
	}
}

// GameService is the game-state engine: counters, catalog and tick
// scheduler behind one mutex. It is built once by the composition root and
// lives between Init and Teardown.
type GameService struct {
	mu       sync.Mutex
	started  bool
	opts     GameOptions
	clock    clock.Clock
	counters *Counters
	market   *MarketService
	ticker   *TickScheduler
	bus      *EventBus
	logger   *logger.Logger
}

var _ ports.GameEngine = (*GameService)(nil)

// NewGameService wires the engine to a store and a clock.
func NewGameService(store ports.KeyValueStore, clk clock.Clock, opts GameOptions, log *logger.Logger) *GameService {
	opts.applyDefaults()
	log = log.WithComponent("game")

	s := &GameService{
		opts:     opts,
		clock:    clk,
		counters: NewCounters(store, log),
		market:   NewMarketService(store, opts.Seed, opts.CostMultiplier, clk.Now, log),
		bus:      NewEventBus(log),
		logger:   log,
	}
	s.ticker = NewTickScheduler(clk, opts.WholeTickInterval, opts.FractionTickInterval, s.applyTick, log)
	return s
}

// Init loads counters and catalog, reconciles the latches and arms the
// scheduler.
func (s *GameService) Init(ctx context.Context) error {
	s.mu.Lock()
	count, rate := s.counters.Load(ctx)
	s.market.Load(ctx)
	events, err := s.market.Reconcile(ctx, count)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("init game: %w", err)
	}
	s.started = true
	events = s.stampLocked(events)
	s.mu.Unlock()

	s.ticker.Start(rate)
	s.bus.Publish(events...)

	s.logger.Infow("Game initialised", "count", count, "rate", rate)
	return nil
}

// Teardown stops the timers and closes every subscription. Mutating calls
// fail with ErrEngineNotStarted afterwards.
func (s *GameService) Teardown() {
	s.ticker.Stop()

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	s.bus.CloseAll()
	s.logger.Infow("Game torn down")
}

func (s *GameService) Count() float64 { return s.counters.Count() }

func (s *GameService) Rate() float64 { return s.counters.Rate() }

// Catalog returns a snapshot of the market.
func (s *GameService) Catalog() entities.Catalog { return s.market.Items() }

// State returns a consistent snapshot of counters and catalog.
func (s *GameService) State() entities.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return entities.State{
		Count:   s.counters.Count(),
		Rate:    s.counters.Rate(),
		Catalog: s.market.Items(),
	}
}

// Subscribe registers for change notifications.
func (s *GameService) Subscribe(buffer int) (<-chan entities.Event, func()) {
	return s.bus.Subscribe(buffer)
}

// SetCount replaces the count and reconciles the catalog.
func (s *GameService) SetCount(ctx context.Context, value float64) error {
	_, err := s.UpdateCount(ctx, func(float64) float64 { return value })
	return err
}

// UpdateCount derives the count from its previous value and reconciles the
// catalog.
func (s *GameService) UpdateCount(ctx context.Context, fn func(prev float64) float64) (float64, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0, entities.ErrEngineNotStarted
	}
	count, events, err := s.updateCountLocked(ctx, fn)
	events = s.stampLocked(events)
	s.mu.Unlock()

	s.bus.Publish(events...)
	return count, err
}

// SetRate replaces the rate and re-arms the scheduler.
func (s *GameService) SetRate(ctx context.Context, value float64) error {
	_, err := s.UpdateRate(ctx, func(float64) float64 { return value })
	return err
}

// UpdateRate derives the rate from its previous value and re-arms the
// scheduler.
func (s *GameService) UpdateRate(ctx context.Context, fn func(prev float64) float64) (float64, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return 0, entities.ErrEngineNotStarted
	}
	rate, err := s.counters.UpdateRate(ctx, fn)
	if err != nil {
		s.mu.Unlock()
		return rate, err
	}
	events := s.stampLocked([]entities.Event{entities.NewEvent(s.clock.Now(), entities.EventRateChanged)})
	s.mu.Unlock()

	s.rearm()
	s.bus.Publish(events...)
	return rate, nil
}

// LoadCatalog reloads the catalog from storage (or the seed).
func (s *GameService) LoadCatalog(ctx context.Context) entities.Catalog {
	s.mu.Lock()
	items := s.market.Load(ctx)
	events := s.stampLocked([]entities.Event{entities.NewEvent(s.clock.Now(), entities.EventCatalogChanged)})
	s.mu.Unlock()

	s.bus.Publish(events...)
	return items
}

// Purchase is the raw catalog purchase: the caller has already checked and
// debited the count. Use Buy for the full flow.
func (s *GameService) Purchase(ctx context.Context, id int) (entities.MarketItem, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return entities.MarketItem{}, entities.ErrEngineNotStarted
	}
	item, err := s.market.Purchase(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return item, err
	}
	events := s.stampLocked([]entities.Event{entities.NewItemEvent(s.clock.Now(), entities.EventItemPurchased, id)})
	s.mu.Unlock()

	s.bus.Publish(events...)
	return item, nil
}

// Unlock latches an item's unlocked flag.
func (s *GameService) Unlock(ctx context.Context, id int) error {
	return s.latch(ctx, id, entities.EventItemUnlocked, s.market.Unlock, func(m entities.MarketItem) bool { return m.Unlocked })
}

// MakeVisible latches an item's visible flag.
func (s *GameService) MakeVisible(ctx context.Context, id int) error {
	return s.latch(ctx, id, entities.EventItemVisible, s.market.MakeVisible, func(m entities.MarketItem) bool { return m.Visible })
}

func (s *GameService) latch(ctx context.Context, id int, eventType entities.EventType, set func(context.Context, int) error, isSet func(entities.MarketItem) bool) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return entities.ErrEngineNotStarted
	}
	before, err := s.market.Item(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := set(ctx, id); err != nil {
		s.mu.Unlock()
		return err
	}
	var events []entities.Event
	if !isSet(before) {
		events = s.stampLocked([]entities.Event{entities.NewItemEvent(s.clock.Now(), eventType, id)})
	}
	s.mu.Unlock()

	s.bus.Publish(events...)
	return nil
}

// Reconcile re-evaluates every visibility and unlock latch against the
// current count. Count changes made through the engine reconcile on their
// own; this is for callers that want to force it.
func (s *GameService) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return entities.ErrEngineNotStarted
	}
	events, err := s.market.Reconcile(ctx, s.counters.Count())
	events = s.stampLocked(events)
	s.mu.Unlock()

	s.bus.Publish(events...)
	return err
}

// Click adds one click worth of yams.
func (s *GameService) Click(ctx context.Context) (float64, error) {
	count, err := s.UpdateCount(ctx, func(prev float64) float64 { return prev + s.opts.ClickValue })
	if err != nil {
		return count, err
	}

	ev := entities.NewEvent(s.clock.Now(), entities.EventClicked)
	ev.Count, ev.Rate = count, s.counters.Rate()
	s.bus.Publish(ev)

	s.logger.LogGameAction("click", map[string]interface{}{"count": count})
	return count, nil
}

// Buy is the complete purchase flow: check affordability, purchase the
// item, debit its old cost and add its rate increase. The three writes are
// not atomic with each other.
func (s *GameService) Buy(ctx context.Context, id int) (entities.MarketItem, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return entities.MarketItem{}, entities.ErrEngineNotStarted
	}

	item, err := s.market.Item(id)
	if err != nil {
		s.mu.Unlock()
		return entities.MarketItem{}, err
	}
	if count := s.counters.Count(); !item.Affordable(count) {
		s.mu.Unlock()
		return item, fmt.Errorf("buy %s for %v with %v: %w", item.Name, item.Cost, count, entities.ErrInsufficientFunds)
	}

	bought, err := s.market.Purchase(ctx, id)
	if err != nil {
		s.mu.Unlock()
		return entities.MarketItem{}, err
	}
	events := []entities.Event{entities.NewItemEvent(s.clock.Now(), entities.EventItemPurchased, id)}

	_, countEvents, err := s.updateCountLocked(ctx, func(prev float64) float64 { return prev - item.Cost })
	events = append(events, countEvents...)
	if err == nil {
		_, err = s.counters.UpdateRate(ctx, func(prev float64) float64 { return prev + item.RateIncrease })
		if err == nil {
			events = append(events, entities.NewEvent(s.clock.Now(), entities.EventRateChanged))
		}
	}
	events = s.stampLocked(events)
	s.mu.Unlock()

	s.rearm()
	s.bus.Publish(events...)
	if err != nil {
		return bought, fmt.Errorf("buy %s: %w", item.Name, err)
	}

	s.logger.LogGameAction("buy", map[string]interface{}{
		"item_id":   id,
		"item_name": item.Name,
		"paid":      item.Cost,
		"new_cost":  bought.Cost,
		"amount":    bought.Amount,
	})
	return bought, nil
}

// Reset wipes the persisted state back to zero counters and the seed catalog.
func (s *GameService) Reset(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return entities.ErrEngineNotStarted
	}
	if err := s.counters.Reset(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.market.Reset(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	events := s.stampLocked([]entities.Event{entities.NewEvent(s.clock.Now(), entities.EventStateReset)})
	s.mu.Unlock()

	s.rearm()
	s.bus.Publish(events...)
	s.logger.Infow("Game state reset")
	return nil
}

// applyTick is the scheduler sink.
func (s *GameService) applyTick(amount float64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.StorageTimeout)
	defer cancel()

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	_, events, err := s.updateCountLocked(ctx, func(prev float64) float64 { return prev + amount })
	events = s.stampLocked(events)
	s.mu.Unlock()

	if err != nil {
		s.logger.WithError(err).Errorw("Tick failed", "amount", amount)
	}
	s.bus.Publish(events...)
}

func (s *GameService) updateCountLocked(ctx context.Context, fn func(float64) float64) (float64, []entities.Event, error) {
	count, err := s.counters.UpdateCount(ctx, fn)
	if err != nil {
		return count, nil, err
	}

	events := []entities.Event{entities.NewEvent(s.clock.Now(), entities.EventCountChanged)}
	reconciled, err := s.market.Reconcile(ctx, count)
	events = append(events, reconciled...)
	return count, events, err
}

// rearm must run without s.mu held: a tick in flight holds the scheduler
// lock while waiting for s.mu.
func (s *GameService) rearm() {
	s.ticker.Arm(s.counters.Rate())
}

func (s *GameService) stampLocked(events []entities.Event) []entities.Event {
	count, rate := s.counters.Count(), s.counters.Rate()
	for i := range events {
		events[i].Count = count
		events[i].Rate = rate
	}
	return events
}
