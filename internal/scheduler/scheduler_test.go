package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type countingEngine struct {
	mu     sync.Mutex
	runs   []time.Time
	sweeps int
}

func (e *countingEngine) Run(_ context.Context, asOf time.Time, _ string) (*domain.Run, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.runs = append(e.runs, asOf)
	return &domain.Run{ID: "run-test", Status: domain.RunStatusCompleted}, nil
}

func (e *countingEngine) SweepExpired(context.Context, time.Time) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sweeps++
	return 0, nil
}

func (e *countingEngine) runCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.runs)
}

func (e *countingEngine) sweepCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sweeps
}

func abidjan(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Abidjan")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func newTestScheduler(t *testing.T, engine Engine, clock Clock) *Scheduler {
	t.Helper()
	s, err := New(engine, "00:01", "Africa/Abidjan", time.Hour, 10*time.Minute, zap.NewNop(), WithClock(clock))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	return s
}

func TestDailyRunFiresOncePerDay(t *testing.T) {
	loc := abidjan(t)
	engine := &countingEngine{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 0, 30, 0, loc)}
	s := newTestScheduler(t, engine, clock)
	ctx := context.Background()

	// before the slot: nothing fires
	s.Tick(ctx)
	if engine.runCount() != 0 {
		t.Fatal("run fired before the scheduled slot")
	}

	// at the slot
	clock.Set(time.Date(2026, 3, 1, 0, 1, 0, 0, loc))
	s.Tick(ctx)
	if engine.runCount() != 1 {
		t.Fatalf("runs = %d, want 1", engine.runCount())
	}

	// later the same day: no repeat
	clock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, loc))
	s.Tick(ctx)
	if engine.runCount() != 1 {
		t.Fatalf("runs = %d after same-day tick, want 1", engine.runCount())
	}

	// next day fires again
	clock.Set(time.Date(2026, 3, 2, 0, 1, 0, 0, loc))
	s.Tick(ctx)
	if engine.runCount() != 2 {
		t.Fatalf("runs = %d after next day, want 2", engine.runCount())
	}
}

func TestMissedSlotCatchesUpSameDay(t *testing.T) {
	loc := abidjan(t)
	engine := &countingEngine{}
	// process starts hours after the slot, e.g. after a restart
	clock := &fakeClock{now: time.Date(2026, 3, 1, 7, 30, 0, 0, loc)}
	s := newTestScheduler(t, engine, clock)

	s.Tick(context.Background())
	if engine.runCount() != 1 {
		t.Fatalf("runs = %d, want catch-up run", engine.runCount())
	}
}

func TestDailyRunKeysGainDayToLocalDate(t *testing.T) {
	engine := &countingEngine{}
	// 00:05 on March 2 in Tokyo is still March 1 in UTC
	clock := &fakeClock{now: time.Date(2026, 3, 1, 15, 5, 0, 0, time.UTC)}
	s, err := New(engine, "00:01", "Asia/Tokyo", time.Hour, 0, zap.NewNop(), WithClock(clock))
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	s.Tick(context.Background())
	if engine.runCount() != 1 {
		t.Fatalf("runs = %d, want 1", engine.runCount())
	}
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	if !engine.runs[0].Equal(want) {
		t.Fatalf("as_of = %s, want %s", engine.runs[0], want)
	}
}

func TestSweepFiresOnInterval(t *testing.T) {
	loc := abidjan(t)
	engine := &countingEngine{}
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, loc)}
	s := newTestScheduler(t, engine, clock)
	ctx := context.Background()

	s.Tick(ctx)
	if engine.sweepCount() != 1 {
		t.Fatalf("sweeps = %d, want initial sweep", engine.sweepCount())
	}

	clock.Set(clock.Now().Add(30 * time.Minute))
	s.Tick(ctx)
	if engine.sweepCount() != 1 {
		t.Fatalf("sweeps = %d before interval elapsed, want 1", engine.sweepCount())
	}

	clock.Set(clock.Now().Add(31 * time.Minute))
	s.Tick(ctx)
	if engine.sweepCount() != 2 {
		t.Fatalf("sweeps = %d after interval, want 2", engine.sweepCount())
	}
}

func TestNewRejectsBadSchedule(t *testing.T) {
	engine := &countingEngine{}
	if _, err := New(engine, "24:00", "Africa/Abidjan", time.Hour, 0, zap.NewNop()); err == nil {
		t.Fatal("hour 24 must be rejected")
	}
	if _, err := New(engine, "00:01", "Not/AZone", time.Hour, 0, zap.NewNop()); err == nil {
		t.Fatal("unknown timezone must be rejected")
	}
	if _, err := New(engine, "0001", "Africa/Abidjan", time.Hour, 0, zap.NewNop()); err == nil {
		t.Fatal("missing colon must be rejected")
	}
}
