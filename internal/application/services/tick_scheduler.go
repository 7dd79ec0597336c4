package services

import (
	"math"
	"sync"
	"time"

	"github.com/yamclicker/core/internal/infrastructure/clock"
	"github.com/yamclicker/core/internal/infrastructure/logger"
)

// rateEpsilon absorbs binary rounding so that 2.3 splits into 2 and 3 tenths.
const rateEpsilon = 1e-9

// SplitRate separates a per-second rate into the whole units added every
// second and the tenths added every ten seconds.
func SplitRate(rate float64) (whole, tenths float64) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, 0
	}
	whole = math.Floor(rate + rateEpsilon)
	tenths = math.Floor(rate*10+rateEpsilon) - whole*10
	if tenths < 0 {
		tenths = 0
	}
	return whole, tenths
}

// TickScheduler advances the count from the rate with two periodic timers.
// Every Arm cancels the previous pair; deliveries from a cancelled pair are
// dropped. A stopped scheduler ignores Arm until Start is called again.
type TickScheduler struct {
	mu            sync.Mutex
	running       bool
	clock         clock.Clock
	wholeEvery    time.Duration
	fractionEvery time.Duration
	sink          func(amount float64)
	gen           uint64
	stops         []func()
	logger        *logger.Logger
}

// NewTickScheduler creates a scheduler that hands each tick amount to sink.
func NewTickScheduler(clk clock.Clock, wholeEvery, fractionEvery time.Duration, sink func(amount float64), log *logger.Logger) *TickScheduler {
	return &TickScheduler{
		clock:         clk,
		wholeEvery:    wholeEvery,
		fractionEvery: fractionEvery,
		sink:          sink,
		logger:        log.WithComponent("ticker"),
	}
}

// Start enables the scheduler and arms it for rate.
func (t *TickScheduler) Start(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = true
	t.armLocked(rate)
}

// Arm restarts both timers for rate. A zero component starts no timer.
func (t *TickScheduler) Arm(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return
	}
	t.armLocked(rate)
}

func (t *TickScheduler) armLocked(rate float64) {
	t.stopLocked()
	t.gen++
	gen := t.gen

	whole, tenths := SplitRate(rate)
	if whole > 0 {
		t.stops = append(t.stops, t.clock.Every(t.wholeEvery, func() { t.deliver(gen, whole) }))
	}
	if tenths > 0 {
		t.stops = append(t.stops, t.clock.Every(t.fractionEvery, func() { t.deliver(gen, tenths) }))
	}

	t.logger.Debugw("Tick scheduler armed", "rate", rate, "whole", whole, "tenths", tenths)
}

// Stop cancels both timers.
func (t *TickScheduler) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	t.stopLocked()
	t.gen++
}

// Armed reports how many timers are running.
func (t *TickScheduler) Armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stops)
}

func (t *TickScheduler) stopLocked() {
	for _, stop := range t.stops {
		stop()
	}
	t.stops = nil
}

// deliver holds the scheduler lock across sink so a concurrent Arm cannot
// interleave a stale tick with the new rate.
func (t *TickScheduler) deliver(gen uint64, amount float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.gen {
		return
	}
	t.sink(amount)
}
