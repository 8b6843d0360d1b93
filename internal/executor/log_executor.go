package executor

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// LinkBuilder renders the trade window URL for a counterparty.
type LinkBuilder func(userID int64, ownedIDs []int64) string

// LogExecutor "executes" by logging the trade link. It is the default
// backend; sending the trade is left to whoever follows the link.
type LogExecutor struct {
	link   LinkBuilder
	logger *slog.Logger
}

func NewLogExecutor(link LinkBuilder, logger *slog.Logger) *LogExecutor {
	return &LogExecutor{link: link, logger: logger.With(slog.String("component", "log_executor"))}
}

func (l *LogExecutor) Name() string {
	return "log"
}

func (l *LogExecutor) Execute(ctx context.Context, c domain.TradeCandidate) error {
	attrs := []any{
		slog.Int64("counterparty", c.Counterparty),
		slog.String("mode", string(c.Mode)),
		slog.Int64("offer_total", c.OfferTotal),
		slog.Int64("ask_total", c.AskTotal),
		slog.Float64("win_percent", c.WinPercent()),
	}
	if l.link != nil {
		attrs = append(attrs, slog.String("trade_link", l.link(c.Counterparty, c.AskIDs())))
	}
	l.logger.InfoContext(ctx, "trade ready", attrs...)
	return nil
}
