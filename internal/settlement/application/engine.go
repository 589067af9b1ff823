package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xhris2006/moninvest/internal/observability/metrics"
	"github.com/xhris2006/moninvest/internal/settlement/domain"
)

// Publisher delivers settlement events; delivery failures never affect
// the settlement outcome.
type Publisher interface {
	Publish(ctx context.Context, event any) error
}

const (
	defaultRunDeadline = 10 * time.Minute
	maxErrorSummary    = 2000
)

// Engine executes the daily settlement: one gain per active pass per
// day, idempotent on (pass, day), with per-pass error isolation.
type Engine struct {
	passes    domain.PassRepository
	runs      domain.RunRepository
	publisher Publisher
	clock     Clock
	logger    *zap.Logger
	deadline  time.Duration
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithClock overrides the clock.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithRunDeadline sets the soft wall-time budget for one run.
func WithRunDeadline(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.deadline = d
		}
	}
}

// WithPublisher attaches an event publisher.
func WithPublisher(p Publisher) EngineOption {
	return func(e *Engine) { e.publisher = p }
}

// NewEngine constructs a settlement engine.
func NewEngine(passes domain.PassRepository, runs domain.RunRepository, logger *zap.Logger, opts ...EngineOption) (*Engine, error) {
	if passes == nil {
		return nil, errors.New("settlement: nil pass repository")
	}
	if runs == nil {
		return nil, errors.New("settlement: nil run repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := &Engine{
		passes:   passes,
		runs:     runs,
		clock:    SystemClock{},
		logger:   logger,
		deadline: defaultRunDeadline,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Run settles all eligible passes for the given day. A zero asOf means
// the current day. The returned run is recorded even on partial or
// failed outcomes; only listing failures abort before any crediting.
func (e *Engine) Run(ctx context.Context, asOf time.Time, trigger string) (*domain.Run, error) {
	startedAt := e.clock.Now().UTC()
	if asOf.IsZero() {
		asOf = startedAt
	}
	day := domain.DayStart(asOf)
	if trigger == "" {
		trigger = domain.TriggerScheduled
	}

	run := domain.Run{
		ID:        domain.BuildRunID(trigger, day, startedAt),
		AsOf:      day,
		Trigger:   trigger,
		StartedAt: startedAt,
	}

	e.logger.Info("settlement run starting",
		zap.String("run_id", run.ID),
		zap.String("as_of", domain.DateKey(day)),
		zap.String("trigger", trigger),
	)

	passes, err := e.passes.ListEligible(ctx, day)
	if err != nil {
		run.Status = domain.RunStatusFailed
		run.FinishedAt = e.clock.Now().UTC()
		run.ErrorSummary = truncateSummary("list eligible passes: " + err.Error())
		e.record(ctx, run)
		return &run, fmt.Errorf("list eligible passes: %w", err)
	}

	var summary []string
	userTotals := make(map[int64]int64)
	userPasses := make(map[int64]int)
	deadlineHit := false
	for _, pass := range passes {
		if e.clock.Now().UTC().Sub(startedAt) > e.deadline {
			deadlineHit = true
			remaining := len(passes) - run.PassesCredited - run.PassesSkipped - run.PassesFailed
			summary = append(summary, fmt.Sprintf("deadline exceeded with %d passes unprocessed", remaining))
			e.logger.Warn("settlement run deadline exceeded",
				zap.String("run_id", run.ID),
				zap.Int("unprocessed", remaining),
			)
			break
		}

		amount, outcome, err := e.settlePass(ctx, pass, day)
		switch outcome {
		case metrics.PassCredited:
			run.PassesCredited++
			run.TotalCredited += amount
			userTotals[pass.UserID] += amount
			userPasses[pass.UserID]++
		case metrics.PassSkipped:
			run.PassesSkipped++
		case metrics.PassFailed:
			run.PassesFailed++
			kind := domain.Classify(err)
			summary = append(summary, fmt.Sprintf("pass %d: %s: %v", pass.UserPassID, kind, err))
			e.logger.Error("pass settlement failed",
				zap.String("run_id", run.ID),
				zap.Int64("user_pass_id", pass.UserPassID),
				zap.Int64("user_id", pass.UserID),
				zap.String("kind", string(kind)),
				zap.Error(err),
			)
		}
		metrics.AddSettlementPasses(outcome, 1)
	}

	run.FinishedAt = e.clock.Now().UTC()
	switch {
	case deadlineHit:
		run.Status = domain.RunStatusPartial
	case run.PassesFailed > 0:
		run.Status = domain.RunStatusPartial
	default:
		run.Status = domain.RunStatusCompleted
	}
	run.ErrorSummary = truncateSummary(strings.Join(summary, "; "))

	// One event per user with the day's total, not one per pass.
	for userID, total := range userTotals {
		if total <= 0 {
			continue
		}
		e.publish(ctx, GainCredited{
			UserID:     userID,
			Amount:     total,
			Passes:     userPasses[userID],
			GainDate:   domain.DateKey(day),
			OccurredAt: e.clock.Now().UTC(),
		})
	}

	e.record(ctx, run)
	result := metrics.ResultSuccess
	if run.Status != domain.RunStatusCompleted {
		result = metrics.ResultError
	}
	metrics.ObserveSettlementRun(result, run.Duration())
	metrics.AddSettlementCredited(run.TotalCredited)

	e.logger.Info("settlement run finished",
		zap.String("run_id", run.ID),
		zap.String("status", run.Status),
		zap.Int("credited", run.PassesCredited),
		zap.Int("skipped", run.PassesSkipped),
		zap.Int("failed", run.PassesFailed),
		zap.Int64("total_credited", run.TotalCredited),
		zap.Duration("took", run.Duration()),
	)
	return &run, nil
}

// settlePass accrues and credits one pass. The credited amount is only
// meaningful when outcome is PassCredited.
func (e *Engine) settlePass(ctx context.Context, pass domain.EligiblePass, day time.Time) (int64, string, error) {
	if err := pass.Validate(); err != nil {
		e.logger.Warn("skipping malformed pass",
			zap.Int64("user_pass_id", pass.UserPassID),
			zap.Error(err),
		)
		return 0, metrics.PassSkipped, nil
	}
	if !pass.ActiveOn(day) {
		return 0, metrics.PassSkipped, nil
	}

	amount, err := domain.DailyAccrual(pass.Principal, pass.DailyRateBp)
	if err != nil {
		return 0, metrics.PassSkipped, nil
	}

	credited, err := e.passes.CreditGain(ctx, pass, day, amount)
	if err != nil {
		return 0, metrics.PassFailed, err
	}
	if !credited {
		// gain for this (pass, day) already exists
		return 0, metrics.PassSkipped, nil
	}
	return amount, metrics.PassCredited, nil
}

// SweepExpired transitions passes past their end date to expired.
func (e *Engine) SweepExpired(ctx context.Context, asOf time.Time) (int, error) {
	if asOf.IsZero() {
		asOf = e.clock.Now()
	}
	day := domain.DayStart(asOf)

	expired, err := e.passes.SweepExpired(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("sweep expired passes: %w", err)
	}
	if len(expired) > 0 {
		metrics.AddSweepExpired(len(expired))
		e.logger.Info("expired passes swept",
			zap.String("as_of", domain.DateKey(day)),
			zap.Int("expired", len(expired)),
		)
		occurredAt := e.clock.Now()
		for _, pass := range expired {
			e.publish(ctx, PassExpired{
				UserID:     pass.UserID,
				UserPassID: pass.UserPassID,
				PassName:   pass.PassName,
				OccurredAt: occurredAt,
			})
		}
	}
	return len(expired), nil
}

// ListRuns returns recent settlement runs, newest first.
func (e *Engine) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	return e.runs.ListRuns(ctx, limit)
}

func (e *Engine) record(ctx context.Context, run domain.Run) {
	if err := e.runs.RecordRun(ctx, run); err != nil {
		e.logger.Error("recording settlement run failed",
			zap.String("run_id", run.ID),
			zap.Error(err),
		)
	}
}

func (e *Engine) publish(ctx context.Context, event any) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("publishing settlement event failed", zap.Error(err))
	}
}

func truncateSummary(s string) string {
	if len(s) <= maxErrorSummary {
		return s
	}
	return s[:maxErrorSummary]
}
