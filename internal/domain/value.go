package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Positions inside a Rolimons itemdetails row.
const (
	rowName = iota
	rowAcronym
	rowRAP
	rowValue
	rowDefaultValue
	rowDemand
	rowTrend
	rowProjected
	rowHyped
	rowRare
	rowLen
)

// minRowLen is the shortest row that still carries an assigned value.
const minRowLen = rowValue + 1

// NoValue marks a numeric row field that the upstream feed left unset.
const NoValue int64 = -1

// ValueRow is the named form of one itemdetails row. The positional array
// only exists on the wire; see UnmarshalJSON and MarshalJSON.
type ValueRow struct {
	Name         string
	Acronym      string
	RAP          int64
	Value        int64
	DefaultValue int64
	Demand       int64
	Trend        int64
	Projected    bool
	Hyped        bool
	Rare         bool
}

// HasValue reports whether the item has an assigned value distinct from its RAP.
func (r ValueRow) HasValue() bool {
	return r.Value != NoValue
}

// UnmarshalJSON decodes the positional array
// [name, acronym, rap, value, defaultValue, demand, trend, projected, hyped, rare].
// Missing or null numeric fields decode to NoValue; flags are true only for 1.
func (r *ValueRow) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: value row is not an array: %v", ErrBadPayload, err)
	}
	if len(raw) < minRowLen {
		return fmt.Errorf("%w: value row has %d fields, want at least %d", ErrBadPayload, len(raw), minRowLen)
	}

	var row ValueRow
	var err error
	if row.Name, err = rowString(raw, rowName); err != nil {
		return err
	}
	if row.Acronym, err = rowString(raw, rowAcronym); err != nil {
		return err
	}
	ints := []struct {
		idx int
		dst *int64
	}{
		{rowRAP, &row.RAP},
		{rowValue, &row.Value},
		{rowDefaultValue, &row.DefaultValue},
		{rowDemand, &row.Demand},
		{rowTrend, &row.Trend},
	}
	for _, f := range ints {
		if *f.dst, err = rowInt(raw, f.idx); err != nil {
			return err
		}
	}
	row.Projected = rowFlag(raw, rowProjected)
	row.Hyped = rowFlag(raw, rowHyped)
	row.Rare = rowFlag(raw, rowRare)

	*r = row
	return nil
}

// MarshalJSON encodes the row back into the positional array the feed and the
// on-disk cache use.
func (r ValueRow) MarshalJSON() ([]byte, error) {
	arr := [rowLen]any{
		r.Name,
		r.Acronym,
		r.RAP,
		r.Value,
		r.DefaultValue,
		r.Demand,
		r.Trend,
		flagInt(r.Projected),
		flagInt(r.Hyped),
		flagInt(r.Rare),
	}
	return json.Marshal(arr)
}

func rowString(raw []json.RawMessage, idx int) (string, error) {
	if idx >= len(raw) || isNull(raw[idx]) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw[idx], &s); err != nil {
		return "", fmt.Errorf("%w: value row field %d: %v", ErrBadPayload, idx, err)
	}
	return s, nil
}

func rowInt(raw []json.RawMessage, idx int) (int64, error) {
	if idx >= len(raw) || isNull(raw[idx]) {
		return NoValue, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw[idx], &n); err != nil {
		return 0, fmt.Errorf("%w: value row field %d: %v", ErrBadPayload, idx, err)
	}
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: value row field %d: %v", ErrBadPayload, idx, err)
	}
	return int64(f), nil
}

// rowFlag never fails: anything other than true or the number 1 counts as
// false.
func rowFlag(raw []json.RawMessage, idx int) bool {
	if idx >= len(raw) || isNull(raw[idx]) {
		return false
	}
	v := bytes.TrimSpace(raw[idx])
	if bytes.Equal(v, []byte("true")) {
		return true
	}
	var n json.Number
	if err := json.Unmarshal(v, &n); err != nil {
		return false
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	return err == nil && f == 1
}

func isNull(m json.RawMessage) bool {
	return len(bytes.TrimSpace(m)) == 0 || bytes.Equal(bytes.TrimSpace(m), []byte("null"))
}

func flagInt(b bool) int {
	if b {
		return 1
	}
	return -1
}

// ValueSnapshot is one complete itemdetails fetch. It is either empty or
// populated from a single fetch; Items is never modified once built.
type ValueSnapshot struct {
	Items     map[string]ValueRow
	FetchedAt time.Time
}

// IsEmpty reports whether the snapshot has never been populated.
func (s ValueSnapshot) IsEmpty() bool {
	return len(s.Items) == 0
}

// Len returns the number of rows.
func (s ValueSnapshot) Len() int {
	return len(s.Items)
}

// Row looks up the row for an asset id.
func (s ValueSnapshot) Row(assetID int64) (ValueRow, bool) {
	if s.Items == nil {
		return ValueRow{}, false
	}
	row, ok := s.Items[AssetKey(assetID)]
	return row, ok
}

// Has reports whether the snapshot carries a row for the given key.
func (s ValueSnapshot) Has(key string) bool {
	_, ok := s.Items[key]
	return ok
}

// AgeSeconds returns whole seconds since FetchedAt, or -1 when the snapshot
// has never been populated.
func (s ValueSnapshot) AgeSeconds(now time.Time) int {
	if s.FetchedAt.IsZero() {
		return -1
	}
	age := now.Sub(s.FetchedAt)
	if age < 0 {
		return 0
	}
	return int(age / time.Second)
}

// AssetKey renders an asset id the way snapshot keys are stored.
func AssetKey(assetID int64) string {
	return strconv.FormatInt(assetID, 10)
}

// SnapshotDocument is the persisted form of a ValueSnapshot:
// {"items": {...}, "fetched_at": <float epoch seconds>}.
type SnapshotDocument struct {
	Items     map[string]ValueRow `json:"items"`
	FetchedAt *float64            `json:"fetched_at"`
}

// NewSnapshotDocument converts a snapshot into its persisted form. The
// timestamp is kept to the microsecond, rounded up so a reload never reports
// an earlier fetch.
func NewSnapshotDocument(s ValueSnapshot) SnapshotDocument {
	us := s.FetchedAt.UnixMicro()
	if s.FetchedAt.Nanosecond()%int(time.Microsecond) != 0 {
		us++
	}
	ts := float64(us) / 1e6
	items := s.Items
	if items == nil {
		items = map[string]ValueRow{}
	}
	return SnapshotDocument{Items: items, FetchedAt: &ts}
}

// Snapshot converts the document back. ok is false when either field is
// missing, in which case the document must be treated as no cache at all.
func (d SnapshotDocument) Snapshot() (ValueSnapshot, bool) {
	if d.Items == nil || d.FetchedAt == nil {
		return ValueSnapshot{}, false
	}
	return ValueSnapshot{
		Items:     d.Items,
		FetchedAt: time.UnixMicro(int64(math.Round(*d.FetchedAt * 1e6))),
	}, true
}
