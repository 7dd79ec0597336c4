package clock

import (
	"sort"
	"sync"
	"time"
)

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
	// Every calls fn once per period until the returned stop func is called.
	// Stop never blocks waiting for an in-flight fn.
	Every(period time.Duration, fn func()) (stop func())
}

// Real is backed by the system clock and time.Ticker goroutines.
type Real struct{}

// Now returns the current time using the system clock.
func (Real) Now() time.Time {
	return time.Now()
}

// Every starts a ticker goroutine that exits once stop is called.
func (Real) Every(period time.Duration, fn func()) func() {
	ticker := time.NewTicker(period)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// Fake is deterministic and test-friendly. Periodic callbacks fire
// synchronously from Advance, in time order.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers map[uint64]*fakeTimer
}

type fakeTimer struct {
	seq    uint64
	period time.Duration
	next   time.Time
	fn     func()
}

// NewFake returns a fake clock starting at start.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start, timers: map[uint64]*fakeTimer{}}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Every registers a periodic callback relative to the fake current time.
func (f *Fake) Every(period time.Duration, fn func()) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seq++
	id := f.seq
	f.timers[id] = &fakeTimer{seq: id, period: period, next: f.now.Add(period), fn: fn}

	return func() {
		f.mu.Lock()
		delete(f.timers, id)
		f.mu.Unlock()
	}
}

// Active reports how many periodic callbacks are registered.
func (f *Fake) Active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.timers)
}

// Advance moves the clock forward by d, firing every callback that comes due.
// Callbacks run without the clock lock held so they may register or stop
// timers themselves.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	for {
		due := f.nextDueLocked(target)
		if due == nil {
			break
		}
		f.now = due.next
		due.next = due.next.Add(due.period)
		fn := due.fn

		f.mu.Unlock()
		fn()
		f.mu.Lock()
	}

	f.now = target
	f.mu.Unlock()
}

func (f *Fake) nextDueLocked(target time.Time) *fakeTimer {
	pending := make([]*fakeTimer, 0, len(f.timers))
	for _, t := range f.timers {
		if !t.next.After(target) {
			pending = append(pending, t)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].next.Equal(pending[j].next) {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].next.Before(pending[j].next)
	})
	return pending[0]
}
