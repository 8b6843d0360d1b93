// Package executor guards the trade backend: every candidate passes a
// fingerprint dedup and the hourly trade cap before it is handed on.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
)

// tradeLimitKey is the rate limiter bucket shared by every bot process.
const tradeLimitKey = "trades"

// Config controls the guards in front of the backend.
type Config struct {
	// MaxTradesPerHour caps sends in any sliding hour. Zero disables the cap.
	MaxTradesPerHour int
	// DedupTTL is how long an identical trade is suppressed.
	DedupTTL time.Duration
}

// Executor implements domain.TradeExecutor by wrapping another one.
type Executor struct {
	backend    domain.TradeExecutor
	limiter    domain.RateLimiter
	candidates domain.CandidateStore
	audit      domain.AuditStore
	dedup      *Dedup
	cfg        Config
	logger     *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Executor)

// WithRateLimiter enables the hourly cap.
func WithRateLimiter(l domain.RateLimiter) Option {
	return func(e *Executor) { e.limiter = l }
}

// WithCandidateStore marks candidates executed after a successful send.
func WithCandidateStore(s domain.CandidateStore) Option {
	return func(e *Executor) { e.candidates = s }
}

// WithAuditStore records every executed trade.
func WithAuditStore(s domain.AuditStore) Option {
	return func(e *Executor) { e.audit = s }
}

func New(backend domain.TradeExecutor, cfg Config, logger *slog.Logger, opts ...Option) *Executor {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	e := &Executor{
		backend: backend,
		dedup:   NewDedup(cfg.DedupTTL),
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "executor")),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Executor) Name() string {
	return e.backend.Name()
}

// Execute sends c unless it is a duplicate (domain.ErrDuplicate) or the
// hourly cap is exhausted (domain.ErrRateLimited). A trade that was not sent
// is forgotten by the dedup so a later scan may try it again.
func (e *Executor) Execute(ctx context.Context, c domain.TradeCandidate) error {
	e.dedup.Cleanup()

	log := e.logger.With(
		slog.String("candidate_id", c.ID),
		slog.Int64("counterparty", c.Counterparty),
		slog.String("mode", string(c.Mode)),
	)

	key := c.Fingerprint()
	if e.dedup.IsDuplicate(key) {
		metrics.TradesExecutedTotal.WithLabelValues("duplicate").Inc()
		log.InfoContext(ctx, "duplicate trade suppressed")
		return fmt.Errorf("executor: %s: %w", c.ID, domain.ErrDuplicate)
	}

	if e.limiter != nil && e.cfg.MaxTradesPerHour > 0 {
		ok, err := e.limiter.Allow(ctx, tradeLimitKey, e.cfg.MaxTradesPerHour, time.Hour)
		if err != nil {
			e.dedup.Forget(key)
			metrics.TradesExecutedTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("executor: rate limit: %w", err)
		}
		if !ok {
			e.dedup.Forget(key)
			metrics.TradesExecutedTotal.WithLabelValues("rate_limited").Inc()
			log.WarnContext(ctx, "hourly trade cap reached",
				slog.Int("max_trades_per_hour", e.cfg.MaxTradesPerHour),
			)
			return fmt.Errorf("executor: %s: %w", c.ID, domain.ErrRateLimited)
		}
	}

	if err := e.backend.Execute(ctx, c); err != nil {
		e.dedup.Forget(key)
		metrics.TradesExecutedTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("executor: %s via %s: %w", c.ID, e.backend.Name(), err)
	}
	metrics.TradesExecutedTotal.WithLabelValues("ok").Inc()

	executedAt := time.Now().UTC()
	if e.candidates != nil && c.ID != "" {
		if err := e.candidates.MarkExecuted(ctx, c.ID, executedAt); err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.WarnContext(ctx, "mark executed failed", slog.String("error", err.Error()))
		}
	}
	if e.audit != nil {
		detail := map[string]any{
			"candidate_id": c.ID,
			"counterparty": c.Counterparty,
			"mode":         string(c.Mode),
			"offer_ids":    c.OfferIDs(),
			"ask_ids":      c.AskIDs(),
			"gain":         c.Gain,
			"executor":     e.backend.Name(),
		}
		if err := e.audit.Log(ctx, "trade_executed", detail); err != nil {
			log.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}

	log.InfoContext(ctx, "trade executed",
		slog.String("executor", e.backend.Name()),
		slog.Int64("gain", c.Gain),
	)
	return nil
}

var _ domain.TradeExecutor = (*Executor)(nil)
