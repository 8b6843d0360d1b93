package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// TradeFound renders a candidate announcement. link is the trade window URL
// and may be empty.
func TradeFound(c domain.TradeCandidate, link string) Message {
	return Message{
		Title:  fmt.Sprintf("Trade found (%s) with %d", c.Mode, c.Counterparty),
		Body:   sides(c),
		URL:    link,
		Fields: tradeFields(c),
	}
}

// TradeExecuted renders the confirmation sent once an executor accepted c.
func TradeExecuted(c domain.TradeCandidate, executor, link string) Message {
	fields := append(tradeFields(c), Field{Name: "Executor", Value: executor})
	return Message{
		Title:  fmt.Sprintf("Trade sent (%s) to %d", c.Mode, c.Counterparty),
		Body:   sides(c),
		URL:    link,
		Fields: fields,
	}
}

// TradeFailed renders an executor failure.
func TradeFailed(c domain.TradeCandidate, err error) Message {
	return Message{
		Title: fmt.Sprintf("Trade to %d failed", c.Counterparty),
		Body:  sides(c) + "\n" + err.Error(),
	}
}

// Robux formats an amount with thousands separators, e.g. "R$ 12,500".
func Robux(n int64) string {
	return "R$ " + humanize.Comma(n)
}

func sides(c domain.TradeCandidate) string {
	return "Offer: " + itemList(c.Offer) + " (" + Robux(c.OfferTotal) + ")\n" +
		"Ask: " + itemList(c.Ask) + " (" + Robux(c.AskTotal) + ")"
}

func tradeFields(c domain.TradeCandidate) []Field {
	age := "unknown"
	if c.SnapshotAge >= 0 {
		age = strconv.Itoa(c.SnapshotAge) + "s"
	}
	sign := ""
	if c.Gain >= 0 {
		sign = "+"
	}
	return []Field{
		{Name: "Gain", Value: fmt.Sprintf("%s%s (%s%%)", sign, humanize.Comma(c.Gain), humanize.FtoaWithDigits(c.WinPercent(), 1))},
		{Name: "Values age", Value: age},
	}
}

func itemList(items []domain.InventoryItem) string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = it.Name
		if names[i] == "" {
			names[i] = strconv.FormatInt(it.AssetID, 10)
		}
	}
	return strings.Join(names, ", ")
}

// Startup announces a started process and the modes it will trade in.
func Startup(mode string, modes []domain.SearchMode) Message {
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = string(m)
	}
	return Message{
		Title: "limitedbot started",
		Body:  fmt.Sprintf("Mode %s, searching %s", mode, strings.Join(names, ", ")),
	}
}
