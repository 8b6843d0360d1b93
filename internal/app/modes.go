package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/limitedbot/internal/executor"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/pipeline"
	"github.com/alanyoungcy/limitedbot/internal/platform/roblox"
	"github.com/alanyoungcy/limitedbot/internal/server"
	"github.com/alanyoungcy/limitedbot/internal/server/handler"
	"github.com/alanyoungcy/limitedbot/internal/server/ws"
	"github.com/alanyoungcy/limitedbot/internal/service"
)

// inventoryCacheSize bounds the inventory cache. Only our own inventory is
// read through it.
const inventoryCacheSize = 16

// ScanMode discovers counterparties and scans them until ctx is done.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startScanner(ctx, g, deps)
	a.announceStartup(ctx, deps)
	return g.Wait()
}

// ServerMode serves the API and the WebSocket hub without scanning.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the scanner and the API in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	g, ctx := errgroup.WithContext(ctx)
	a.startScanner(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	a.announceStartup(ctx, deps)
	return g.Wait()
}

func (a *App) startScanner(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	var execOpts []executor.Option
	execOpts = append(execOpts, executor.WithRateLimiter(deps.RateLimiter))
	if deps.CandidateStore != nil {
		execOpts = append(execOpts, executor.WithCandidateStore(deps.CandidateStore))
	}
	if deps.AuditStore != nil {
		execOpts = append(execOpts, executor.WithAuditStore(deps.AuditStore))
	}
	exec := executor.New(
		executor.NewLogExecutor(roblox.TradeLink, a.logger),
		executor.Config{
			MaxTradesPerHour: a.cfg.Limits.MaxTradesPerHour,
			DedupTTL:         a.cfg.Limits.DedupTTL.Duration,
		},
		a.logger,
		execOpts...,
	)

	scanner := service.NewScanService(
		service.ScanConfig{
			MyUserID: a.cfg.Roblox.UserID,
			Modes:    deps.Modes,
		},
		service.ScanDeps{
			Trades:     deps.Roblox,
			Inventory:  service.NewInventoryService(deps.Roblox, inventoryCacheSize, a.cfg.Scanner.InventoryCacheTTL.Duration),
			Fetcher:    deps.Roblox,
			Cache:      deps.Cache,
			Search:     deps.Engine,
			Executor:   exec,
			Processed:  deps.ProcessedSet,
			Candidates: deps.CandidateStore,
			Scans:      deps.ScanStore,
			Bus:        deps.SignalBus,
			Notifier:   deps.Notifier,
			TradeLink:  roblox.TradeLink,
		},
		a.logger,
	)

	var pruner *pipeline.Pruner
	if deps.Archive != nil && a.cfg.S3.Retention.Duration > 0 {
		pruner = pipeline.NewPruner(deps.Archive, a.cfg.S3.Retention.Duration, a.cfg.S3.PruneInterval.Duration, a.logger)
	}

	orch := pipeline.NewOrchestrator(deps.Rolimons, scanner, pruner, pipeline.Config{
		PollInterval: a.cfg.Scanner.PollInterval.Duration,
		SeenTTL:      a.cfg.Scanner.SeenTTL.Duration,
		SeenSize:     a.cfg.Scanner.SeenSize,
		QueueSize:    a.cfg.Scanner.QueueSize,
	}, a.logger)

	g.Go(func() error {
		return orch.Run(ctx)
	})
}

// startHTTPServer adds the HTTP server and the WebSocket hub to g. The server
// is shut down gracefully when ctx is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	status := handler.NewStatusHandler(a.cfg.Mode, a.startedAt, deps.Modes, deps.Cache, deps.ProcessedSet, a.logger)
	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(),
		Status:   status,
		Snapshot: handler.NewSnapshotHandler(deps.Cache, deps.AuditStore, a.logger),
		Search:   handler.NewSearchHandler(deps.Engine, deps.Cache, deps.Modes, a.logger),
	}
	if deps.CandidateStore != nil {
		handlers.Candidates = handler.NewCandidateHandler(deps.CandidateStore)
	}
	if deps.ScanStore != nil {
		handlers.Scans = handler.NewScanHandler(deps.ScanStore, deps.AuditStore)
	}

	hub := ws.NewHub(deps.SignalBus, status.Status, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

func (a *App) announceStartup(ctx context.Context, deps *Dependencies) {
	if !deps.Notifier.Enabled(notify.EventStartup) {
		return
	}
	if err := deps.Notifier.Notify(ctx, notify.EventStartup, notify.Startup(a.cfg.Mode, deps.Modes)); err != nil {
		a.logger.WarnContext(ctx, "startup notification failed", slog.String("error", err.Error()))
	}
}
