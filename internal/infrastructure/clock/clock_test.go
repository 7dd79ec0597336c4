package clock

import (
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRealClockNow(t *testing.T) {
	clk := Real{}
	if clk.Now().IsZero() {
		t.Fatalf("expected non-zero time")
	}
}

func TestRealEveryStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var calls atomic.Int64
	stop := Real{}.Every(5*time.Millisecond, func() { calls.Add(1) })

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	stop()
	stop()

	if calls.Load() < 2 {
		t.Fatalf("expected at least 2 calls got %d", calls.Load())
	}
}

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := NewFake(start)

	if !clk.Now().Equal(start) {
		t.Fatalf("expected start time")
	}

	clk.Advance(1500 * time.Millisecond)
	want := start.Add(1500 * time.Millisecond)
	if !clk.Now().Equal(want) {
		t.Fatalf("expected %v got %v", want, clk.Now())
	}
}

func TestFakeEveryFiresInOrder(t *testing.T) {
	clk := NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	var order []string
	clk.Every(time.Second, func() { order = append(order, "1s") })
	clk.Every(3*time.Second, func() { order = append(order, "3s") })

	clk.Advance(3 * time.Second)

	want := []string{"1s", "1s", "1s", "3s"}
	if len(order) != len(want) {
		t.Fatalf("expected %v got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v got %v", want, order)
		}
	}
}

func TestFakeEveryStop(t *testing.T) {
	clk := NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	calls := 0
	stop := clk.Every(time.Second, func() { calls++ })
	clk.Advance(2500 * time.Millisecond)
	stop()
	clk.Advance(10 * time.Second)

	if calls != 2 {
		t.Fatalf("expected 2 calls got %d", calls)
	}
	if clk.Active() != 0 {
		t.Fatalf("expected no active timers got %d", clk.Active())
	}
}

func TestFakeEveryStartsFromNow(t *testing.T) {
	clk := NewFake(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	clk.Advance(700 * time.Millisecond)

	calls := 0
	clk.Every(time.Second, func() { calls++ })
	clk.Advance(900 * time.Millisecond)
	if calls != 0 {
		t.Fatalf("expected 0 calls got %d", calls)
	}
	clk.Advance(100 * time.Millisecond)
	if calls != 1 {
		t.Fatalf("expected 1 call got %d", calls)
	}
}
