package domain

import (
	"encoding/json"
	"time"
)

// Bus channels used for live events.
const (
	ChannelCandidates = "candidates"
	ChannelScans      = "scans"
	ChannelSnapshot   = "snapshot"
)

// Event is the envelope published on the signal bus and forwarded to
// WebSocket clients.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent marshals payload into an Event envelope.
func NewEvent(typ string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: typ, Payload: raw, CreatedAt: time.Now().UTC()})
}

// SnapshotInfo summarizes the value snapshot currently in use.
type SnapshotInfo struct {
	Items      int       `json:"items"`
	AgeSeconds int       `json:"age_seconds"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
}

// BotStatus is a summary of the bot's current operational state.
type BotStatus struct {
	Mode          string       `json:"mode"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Snapshot      SnapshotInfo `json:"snapshot"`
	TradingModes  []SearchMode `json:"trading_modes"`
	Processed     int64        `json:"processed_counterparties"`
}
