package domain

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// SearchMode names a trade search strategy. The string values are the names
// used in configuration.
type SearchMode string

const (
	ModeOneForOne       SearchMode = "1v1"
	ModeUpgrade         SearchMode = "upgrade"
	ModeDowngrade       SearchMode = "downgrade"
	ModeUpgradeToValued SearchMode = "valued"
)

// AllModes lists every search mode in the default preference order.
var AllModes = []SearchMode{ModeUpgradeToValued, ModeUpgrade, ModeDowngrade, ModeOneForOne}

// ParseSearchMode maps a config or API name onto a SearchMode. A few aliases
// used by older configs are accepted.
func ParseSearchMode(s string) (SearchMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1v1", "one_for_one", "oneforone":
		return ModeOneForOne, true
	case "upgrade":
		return ModeUpgrade, true
	case "downgrade":
		return ModeDowngrade, true
	case "valued", "upgrade_to_valued", "upgradetovalued":
		return ModeUpgradeToValued, true
	default:
		return "", false
	}
}

// TradeCandidate is an accepted offer/ask pair. Gain is AskTotal-OfferTotal.
type TradeCandidate struct {
	ID           string          `json:"id"`
	Counterparty int64           `json:"counterparty"`
	Mode         SearchMode      `json:"mode"`
	Offer        []InventoryItem `json:"offer"`
	Ask          []InventoryItem `json:"ask"`
	OfferTotal   int64           `json:"offer_total"`
	AskTotal     int64           `json:"ask_total"`
	Gain         int64           `json:"gain"`
	SnapshotAge  int             `json:"snapshot_age_seconds"`
	FoundAt      time.Time       `json:"found_at"`
	ExecutedAt   *time.Time      `json:"executed_at,omitempty"`
}

// WinPercent is the gain relative to what is offered, in percent.
func (c TradeCandidate) WinPercent() float64 {
	if c.OfferTotal == 0 {
		return 0
	}
	return float64(c.Gain) / float64(c.OfferTotal) * 100
}

// OfferIDs returns the owned instance ids on the offer side.
func (c TradeCandidate) OfferIDs() []int64 {
	return OwnedIDs(c.Offer)
}

// AskIDs returns the owned instance ids on the ask side.
func (c TradeCandidate) AskIDs() []int64 {
	return OwnedIDs(c.Ask)
}

// Fingerprint identifies the trade independently of ID and timing. It is used
// to avoid sending the same trade twice.
func (c TradeCandidate) Fingerprint() string {
	return strconv.FormatInt(c.Counterparty, 10) + "|" + IDSetKey(c.OfferIDs()) + "|" + IDSetKey(c.AskIDs())
}

// IDSetKey renders a set of ids as an order-independent key.
func IDSetKey(ids []int64) string {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var b strings.Builder
	for i, id := range sorted {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(id, 10))
	}
	return b.String()
}

// ScanOutcome is the terminal state of scanning one counterparty.
type ScanOutcome string

const (
	ScanCannotTrade    ScanOutcome = "cannot_trade"
	ScanEmptyInventory ScanOutcome = "empty_inventory"
	ScanNoTrade        ScanOutcome = "no_trade"
	ScanCandidateFound ScanOutcome = "candidate_found"
	ScanExecuted       ScanOutcome = "executed"
	ScanExecuteFailed  ScanOutcome = "execute_failed"
	ScanSkipped        ScanOutcome = "skipped"
)

// ScanResult records what happened when a counterparty was scanned.
type ScanResult struct {
	Counterparty int64       `json:"counterparty"`
	Outcome      ScanOutcome `json:"outcome"`
	CandidateID  string      `json:"candidate_id,omitempty"`
	Mode         SearchMode  `json:"mode,omitempty"`
	Detail       string      `json:"detail,omitempty"`
	ScannedAt    time.Time   `json:"scanned_at"`
}
