// Package scheduler drives the daily settlement and the hourly expiry
// sweep on wall-clock schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

// Engine is the settlement surface the scheduler drives.
type Engine interface {
	Run(ctx context.Context, asOf time.Time, trigger string) (*domain.Run, error)
	SweepExpired(ctx context.Context, asOf time.Time) (int, error)
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Scheduler ticks every minute and fires the daily settlement once per
// local day at the configured time. The expiry sweep runs on its own
// interval.
type Scheduler struct {
	engine      Engine
	logger      *zap.Logger
	clock       Clock
	location    *time.Location
	dailyHour   int
	dailyMinute int
	sweepEvery  time.Duration
	runDeadline time.Duration

	lastRunDay   string
	lastSweepAt  time.Time
	tickInterval time.Duration
}

// Option customizes the scheduler.
type Option func(*Scheduler)

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithTickInterval overrides the poll interval.
func WithTickInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// New constructs a scheduler. dailyAt is "HH:MM" in the given timezone.
func New(engine Engine, dailyAt, timezone string, sweepEvery, runDeadline time.Duration, logger *zap.Logger, opts ...Option) (*Scheduler, error) {
	if engine == nil {
		return nil, errors.New("scheduler: nil engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	hour, minute, err := parseDailyAt(dailyAt)
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler: load timezone %q: %w", timezone, err)
	}
	if sweepEvery <= 0 {
		sweepEvery = time.Hour
	}

	s := &Scheduler{
		engine:       engine,
		logger:       logger,
		clock:        systemClock{},
		location:     location,
		dailyHour:    hour,
		dailyMinute:  minute,
		sweepEvery:   sweepEvery,
		runDeadline:  runDeadline,
		tickInterval: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start blocks, ticking until the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started",
		zap.String("daily_at", fmt.Sprintf("%02d:%02d", s.dailyHour, s.dailyMinute)),
		zap.String("timezone", s.location.String()),
		zap.Duration("sweep_every", s.sweepEvery),
	)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs due work once. Exported for tests.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.clock.Now().In(s.location)

	if s.dailyDue(now) {
		s.lastRunDay = now.Format("2006-01-02")
		s.fireDaily(ctx, now)
	}

	if s.sweepDue(now) {
		s.lastSweepAt = now
		s.fireSweep(ctx, now)
	}
}

// dayKey pins the gain day to the scheduler's civil date. East of UTC a
// 00:01 local firing is still the previous UTC day, so the local date is
// rebuilt as a UTC midnight before it reaches the engine.
func dayKey(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// dailyDue reports whether the daily settlement should fire: the local
// time has reached the scheduled slot and the run has not fired today.
// Firing on any minute at or past the slot lets a restarted process
// catch up on a missed slot the same day.
func (s *Scheduler) dailyDue(now time.Time) bool {
	if s.lastRunDay == now.Format("2006-01-02") {
		return false
	}
	slot := time.Date(now.Year(), now.Month(), now.Day(), s.dailyHour, s.dailyMinute, 0, 0, s.location)
	return !now.Before(slot)
}

func (s *Scheduler) sweepDue(now time.Time) bool {
	return s.lastSweepAt.IsZero() || now.Sub(s.lastSweepAt) >= s.sweepEvery
}

func (s *Scheduler) fireDaily(ctx context.Context, now time.Time) {
	runCtx := ctx
	if s.runDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runDeadline)
		defer cancel()
	}

	run, err := s.engine.Run(runCtx, dayKey(now), domain.TriggerScheduled)
	if err != nil {
		s.logger.Error("scheduled settlement run failed", zap.Error(err))
		return
	}
	s.logger.Info("scheduled settlement run done",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("credited", run.PassesCredited),
	)
}

func (s *Scheduler) fireSweep(ctx context.Context, now time.Time) {
	expired, err := s.engine.SweepExpired(ctx, dayKey(now))
	if err != nil {
		s.logger.Error("expiry sweep failed", zap.Error(err))
		return
	}
	if expired > 0 {
		s.logger.Info("expiry sweep done", zap.Int("expired", expired))
	}
}

func parseDailyAt(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("scheduler: daily_at %q must be HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("scheduler: daily_at %q has invalid hour", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("scheduler: daily_at %q has invalid minute", value)
	}
	return hour, minute, nil
}
