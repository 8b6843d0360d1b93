package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// SnapshotPruner deletes archived snapshots older than a retention.
type SnapshotPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int, error)
}

// Pruner applies the archive retention on a fixed interval.
type Pruner struct {
	archive   SnapshotPruner
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewPruner(archive SnapshotPruner, retention, interval time.Duration, logger *slog.Logger) *Pruner {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Pruner{
		archive:   archive,
		retention: retention,
		interval:  interval,
		logger:    logger.With(slog.String("component", "archive_pruner")),
	}
}

// RunOnce prunes and logs the outcome.
func (p *Pruner) RunOnce(ctx context.Context) {
	removed, err := p.archive.Prune(ctx, p.retention)
	if err != nil {
		p.logger.WarnContext(ctx, "prune failed",
			slog.Int("removed", removed),
			slog.String("error", err.Error()),
		)
		return
	}
	if removed > 0 {
		p.logger.InfoContext(ctx, "pruned archived snapshots",
			slog.Int("removed", removed),
			slog.Duration("retention", p.retention),
		)
	}
}

// RunLoop prunes immediately and then every interval until ctx is done.
func (p *Pruner) RunLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
