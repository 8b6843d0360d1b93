// Package service holds the per-counterparty scan and the inventory cache it
// reads through.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
	"github.com/alanyoungcy/limitedbot/internal/notify"
	"github.com/alanyoungcy/limitedbot/internal/valuation"
)

// SnapshotProvider is the price cache as seen by the scanner.
type SnapshotProvider interface {
	GetSnapshot(ctx context.Context, ensureIDs []string, forceRefresh bool) domain.ValueSnapshot
}

// Searcher picks a trade in mode preference order.
type Searcher interface {
	Best(modes []domain.SearchMode, mine, theirs []domain.InventoryItem, snap domain.ValueSnapshot) ([]domain.TradeCandidate, error)
}

// ScanConfig identifies the operator and the modes to try.
type ScanConfig struct {
	MyUserID int64
	Modes    []domain.SearchMode
}

// ScanDeps are the scanner's collaborators. Everything after Search may be
// nil.
type ScanDeps struct {
	Trades    domain.TradeChecker
	Inventory *InventoryService
	Fetcher   domain.InventoryFetcher
	Cache     SnapshotProvider
	Search    Searcher

	Executor   domain.TradeExecutor
	Processed  domain.ProcessedSet
	Candidates domain.CandidateStore
	Scans      domain.ScanStore
	Bus        domain.SignalBus
	Notifier   *notify.Notifier
	TradeLink  func(userID int64, ownedIDs []int64) string
}

// ScanService scans one counterparty end to end.
type ScanService struct {
	cfg    ScanConfig
	deps   ScanDeps
	logger *slog.Logger
	now    func() time.Time
}

func NewScanService(cfg ScanConfig, deps ScanDeps, logger *slog.Logger) *ScanService {
	return &ScanService{
		cfg:    cfg,
		deps:   deps,
		logger: logger.With(slog.String("component", "scan_service")),
		now:    time.Now,
	}
}

// Scan checks the counterparty, searches for a trade and hands any find to
// the executor. Errors are returned only for transient upstream failures, in
// which case the counterparty is not marked processed and may be retried.
// Store, bus and notifier failures are logged and do not fail the scan.
func (s *ScanService) Scan(ctx context.Context, counterparty int64) (domain.ScanResult, error) {
	log := s.logger.With(slog.Int64("counterparty", counterparty))

	if counterparty == s.cfg.MyUserID {
		return s.skip(ctx, counterparty, "self"), nil
	}
	if s.deps.Processed != nil {
		done, err := s.deps.Processed.IsProcessed(ctx, counterparty)
		if err != nil {
			log.WarnContext(ctx, "processed check failed", slog.String("error", err.Error()))
		} else if done {
			return s.skip(ctx, counterparty, "already processed"), nil
		}
	}

	ok, err := s.deps.Trades.CanTradeWith(ctx, counterparty)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("service: can trade %d: %w", counterparty, err)
	}
	if !ok {
		return s.finish(ctx, domain.ScanResult{Counterparty: counterparty, Outcome: domain.ScanCannotTrade}), nil
	}

	theirs, err := s.deps.Fetcher.FetchInventory(ctx, counterparty)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("service: their inventory %d: %w", counterparty, err)
	}
	if len(theirs) == 0 {
		return s.finish(ctx, domain.ScanResult{Counterparty: counterparty, Outcome: domain.ScanEmptyInventory}), nil
	}

	mine, err := s.deps.Inventory.Get(ctx, s.cfg.MyUserID)
	if err != nil {
		return domain.ScanResult{}, err
	}

	snap := s.deps.Cache.GetSnapshot(ctx, valuation.AssetKeys(mine, theirs), false)
	found, err := s.deps.Search.Best(s.cfg.Modes, mine, theirs, snap)
	if err != nil {
		return domain.ScanResult{}, fmt.Errorf("service: search %d: %w", counterparty, err)
	}
	if len(found) == 0 {
		return s.finish(ctx, domain.ScanResult{Counterparty: counterparty, Outcome: domain.ScanNoTrade}), nil
	}

	c := found[0]
	c.ID = uuid.NewString()
	c.Counterparty = counterparty
	c.SnapshotAge = snap.AgeSeconds(s.now())

	log.InfoContext(ctx, "trade candidate",
		slog.String("candidate_id", c.ID),
		slog.String("mode", string(c.Mode)),
		slog.Int64("offer_total", c.OfferTotal),
		slog.Int64("ask_total", c.AskTotal),
		slog.Float64("win_percent", c.WinPercent()),
	)
	s.announce(ctx, c)

	result := domain.ScanResult{
		Counterparty: counterparty,
		Outcome:      domain.ScanCandidateFound,
		CandidateID:  c.ID,
		Mode:         c.Mode,
	}
	if s.deps.Executor != nil {
		result = s.execute(ctx, c, result)
	}
	return s.finish(ctx, result), nil
}

func (s *ScanService) announce(ctx context.Context, c domain.TradeCandidate) {
	if s.deps.Candidates != nil {
		if err := s.deps.Candidates.Insert(ctx, c); err != nil {
			s.logger.WarnContext(ctx, "store candidate failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx, domain.ChannelCandidates, "candidate_found", c)
	if s.deps.Notifier != nil {
		_ = s.deps.Notifier.Notify(ctx, notify.EventTradeFound, notify.TradeFound(c, s.link(c)))
	}
}

func (s *ScanService) execute(ctx context.Context, c domain.TradeCandidate, result domain.ScanResult) domain.ScanResult {
	err := s.deps.Executor.Execute(ctx, c)
	switch {
	case err == nil:
		result.Outcome = domain.ScanExecuted
		if s.deps.Inventory != nil {
			s.deps.Inventory.Invalidate(s.cfg.MyUserID)
		}
		if s.deps.Notifier != nil {
			_ = s.deps.Notifier.Notify(ctx, notify.EventTradeExecuted,
				notify.TradeExecuted(c, s.deps.Executor.Name(), s.link(c)))
		}
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrRateLimited):
		result.Detail = err.Error()
	default:
		result.Outcome = domain.ScanExecuteFailed
		result.Detail = err.Error()
		s.logger.WarnContext(ctx, "execute failed",
			slog.String("candidate_id", c.ID),
			slog.String("error", err.Error()),
		)
		if s.deps.Notifier != nil {
			_ = s.deps.Notifier.Notify(ctx, notify.EventTradeFailed, notify.TradeFailed(c, err))
		}
	}
	return result
}

// finish stamps, records, publishes and counts a terminal result and marks
// the counterparty processed.
func (s *ScanService) finish(ctx context.Context, r domain.ScanResult) domain.ScanResult {
	r.ScannedAt = s.now().UTC()
	metrics.ScansTotal.WithLabelValues(string(r.Outcome)).Inc()

	if s.deps.Scans != nil {
		if err := s.deps.Scans.Record(ctx, r); err != nil {
			s.logger.WarnContext(ctx, "record scan failed", slog.String("error", err.Error()))
		}
	}
	s.publish(ctx, domain.ChannelScans, "scan", r)
	if s.deps.Processed != nil {
		if err := s.deps.Processed.MarkProcessed(ctx, r.Counterparty); err != nil {
			s.logger.WarnContext(ctx, "mark processed failed", slog.String("error", err.Error()))
		}
	}

	s.logger.DebugContext(ctx, "scan finished",
		slog.Int64("counterparty", r.Counterparty),
		slog.String("outcome", string(r.Outcome)),
	)
	return r
}

func (s *ScanService) skip(ctx context.Context, counterparty int64, why string) domain.ScanResult {
	metrics.ScansTotal.WithLabelValues(string(domain.ScanSkipped)).Inc()
	s.logger.DebugContext(ctx, "scan skipped",
		slog.Int64("counterparty", counterparty),
		slog.String("reason", why),
	)
	return domain.ScanResult{
		Counterparty: counterparty,
		Outcome:      domain.ScanSkipped,
		Detail:       why,
		ScannedAt:    s.now().UTC(),
	}
}

func (s *ScanService) publish(ctx context.Context, channel, typ string, payload any) {
	if s.deps.Bus == nil {
		return
	}
	event, err := domain.NewEvent(typ, payload)
	if err != nil {
		s.logger.WarnContext(ctx, "encode event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.deps.Bus.Publish(ctx, channel, event); err != nil {
		s.logger.WarnContext(ctx, "publish failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ScanService) link(c domain.TradeCandidate) string {
	if s.deps.TradeLink == nil {
		return ""
	}
	return s.deps.TradeLink(c.Counterparty, c.AskIDs())
}
