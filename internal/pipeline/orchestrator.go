// Package pipeline runs the long-lived loops of scan mode: counterparty
// discovery, the scan worker and snapshot archive pruning.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
)

// Scanner scans one counterparty.
type Scanner interface {
	Scan(ctx context.Context, counterparty int64) (domain.ScanResult, error)
}

// Config tunes the discovery loop.
type Config struct {
	PollInterval time.Duration
	// SeenTTL suppresses rediscovered ids for this long.
	SeenTTL   time.Duration
	SeenSize  int
	QueueSize int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Minute
	}
	if c.SeenTTL <= 0 {
		c.SeenTTL = 6 * time.Hour
	}
	if c.SeenSize <= 0 {
		c.SeenSize = 50_000
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	return c
}

// Orchestrator feeds discovered counterparties to a single scan worker. Scans
// run one at a time; the value cache and search are not meant to be driven
// concurrently.
type Orchestrator struct {
	source  domain.CounterpartySource
	scanner Scanner
	pruner  *Pruner
	cfg     Config
	seen    *expirable.LRU[int64, struct{}]
	logger  *slog.Logger
}

// NewOrchestrator creates an Orchestrator. pruner may be nil.
func NewOrchestrator(source domain.CounterpartySource, scanner Scanner, pruner *Pruner, cfg Config, logger *slog.Logger) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		source:  source,
		scanner: scanner,
		pruner:  pruner,
		cfg:     cfg,
		seen:    expirable.NewLRU[int64, struct{}](cfg.SeenSize, nil, cfg.SeenTTL),
		logger:  logger.With(slog.String("component", "orchestrator")),
	}
}

// Run blocks until ctx is cancelled or a loop fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "orchestrator starting",
		slog.Duration("poll_interval", o.cfg.PollInterval),
		slog.Duration("seen_ttl", o.cfg.SeenTTL),
	)

	queue := make(chan int64, o.cfg.QueueSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(queue)
		err := o.discover(ctx, queue)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("discovery: %w", err)
	})

	g.Go(func() error {
		o.work(ctx, queue)
		return nil
	})

	if o.pruner != nil {
		g.Go(func() error {
			err := o.pruner.RunLoop(ctx)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("pruner: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("orchestrator stopped")
	return nil
}

func (o *Orchestrator) discover(ctx context.Context, queue chan<- int64) error {
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := o.poll(ctx, queue); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// poll enqueues ids not seen within the TTL. Upstream errors are logged and
// the next tick tries again.
func (o *Orchestrator) poll(ctx context.Context, queue chan<- int64) error {
	ids, err := o.source.RecentTraders(ctx)
	if err != nil {
		o.logger.WarnContext(ctx, "discover counterparties failed", slog.String("error", err.Error()))
		return nil
	}

	queued := 0
	for _, id := range ids {
		if o.seen.Contains(id) {
			continue
		}
		o.seen.Add(id, struct{}{})
		select {
		case queue <- id:
			queued++
			metrics.CounterpartyQueueSize.Set(float64(len(queue)))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o.logger.DebugContext(ctx, "discovery poll",
		slog.Int("found", len(ids)),
		slog.Int("queued", queued),
	)
	return nil
}

func (o *Orchestrator) work(ctx context.Context, queue <-chan int64) {
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-queue:
			if !ok {
				return
			}
			metrics.CounterpartyQueueSize.Set(float64(len(queue)))
			o.scan(ctx, id)
		}
	}
}

func (o *Orchestrator) scan(ctx context.Context, id int64) {
	result, err := o.scanner.Scan(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Let the next poll rediscover it.
		o.seen.Remove(id)
		metrics.ScansTotal.WithLabelValues("error").Inc()
		o.logger.WarnContext(ctx, "scan failed",
			slog.Int64("counterparty", id),
			slog.String("error", err.Error()),
		)
		return
	}
	o.logger.InfoContext(ctx, "scanned",
		slog.Int64("counterparty", id),
		slog.String("outcome", string(result.Outcome)),
	)
}
