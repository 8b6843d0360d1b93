package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestValueRowDecode(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantValue int64
		wantRAP   int64
		projected bool
	}{
		{"full row", `["Dominus","DE",5000,9000,9000,3,2,-1,-1,1]`, 9000, 5000, false},
		{"projected", `["X","",100,-1,-1,0,0,1,0,0]`, -1, 100, true},
		{"short row", `["X","",100,250]`, 250, 100, false},
		{"nulls", `["X",null,null,null,null,null,null,null,null,null]`, -1, -1, false},
		{"float numbers", `["X","",100.0,250.0]`, 250, 100, false},
		{"boolean projected", `["A","A",100,500,500,0,0,true,0,0]`, 500, 100, true},
		{"boolean not projected", `["A","A",100,500,500,0,0,false,0,0]`, 500, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row ValueRow
			if err := json.Unmarshal([]byte(tt.raw), &row); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if row.Value != tt.wantValue || row.RAP != tt.wantRAP {
				t.Errorf("rap=%d value=%d, want rap=%d value=%d", row.RAP, row.Value, tt.wantRAP, tt.wantValue)
			}
			if row.Projected != tt.projected {
				t.Errorf("Projected = %v, want %v", row.Projected, tt.projected)
			}
		})
	}
}

func TestValueRowDecodeRejectsBadShape(t *testing.T) {
	for _, raw := range []string{`{"name":"x"}`, `["X","",100]`, `"row"`, `["X","",true,5]`} {
		var row ValueRow
		err := json.Unmarshal([]byte(raw), &row)
		if !errors.Is(err, ErrBadPayload) {
			t.Errorf("Unmarshal(%s) err = %v, want ErrBadPayload", raw, err)
		}
	}
}

func TestSnapshotDocument(t *testing.T) {
	fetched := time.Unix(1700000123, 500_000_000)
	snap := ValueSnapshot{
		Items: map[string]ValueRow{
			"10": {Name: "A", Acronym: "A", RAP: 100, Value: 500, DefaultValue: 500, Demand: 0, Trend: 0, Rare: true},
		},
		FetchedAt: fetched,
	}

	data, err := json.Marshal(NewSnapshotDocument(snap))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var doc SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, ok := doc.Snapshot()
	if !ok {
		t.Fatal("document reported incomplete")
	}
	if got.Items["10"] != snap.Items["10"] {
		t.Errorf("row = %+v, want %+v", got.Items["10"], snap.Items["10"])
	}
	if d := got.FetchedAt.Sub(fetched); d > time.Millisecond || d < -time.Millisecond {
		t.Errorf("FetchedAt drifted by %v", d)
	}

	if _, ok := (SnapshotDocument{Items: map[string]ValueRow{}}).Snapshot(); ok {
		t.Error("document without fetched_at accepted")
	}
}

func TestSnapshotDocumentNeverLoadsEarlier(t *testing.T) {
	for i := int64(0); i < 1000; i++ {
		saved := time.Unix(1_760_000_000, i*987_654+123)
		data, err := json.Marshal(NewSnapshotDocument(ValueSnapshot{Items: map[string]ValueRow{}, FetchedAt: saved}))
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var doc SnapshotDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		got, ok := doc.Snapshot()
		if !ok {
			t.Fatal("document reported incomplete")
		}
		if got.FetchedAt.Before(saved) {
			t.Fatalf("saved %v, loaded earlier %v", saved, got.FetchedAt)
		}
		if d := got.FetchedAt.Sub(saved); d >= time.Microsecond {
			t.Fatalf("saved %v, loaded %v (off by %v)", saved, got.FetchedAt, d)
		}
	}

	exact := time.UnixMicro(1_760_000_000_123_456)
	data, _ := json.Marshal(NewSnapshotDocument(ValueSnapshot{Items: map[string]ValueRow{}, FetchedAt: exact}))
	var doc SnapshotDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got, _ := doc.Snapshot(); !got.FetchedAt.Equal(exact) {
		t.Errorf("microsecond time %v loaded as %v", exact, got.FetchedAt)
	}
}

func TestAgeSeconds(t *testing.T) {
	now := time.Unix(2000, 0)
	if got := (ValueSnapshot{}).AgeSeconds(now); got != -1 {
		t.Errorf("empty AgeSeconds = %d, want -1", got)
	}
	s := ValueSnapshot{Items: map[string]ValueRow{"1": {}}, FetchedAt: time.Unix(1900, 0)}
	if got := s.AgeSeconds(now); got != 100 {
		t.Errorf("AgeSeconds = %d, want 100", got)
	}
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a := TradeCandidate{Counterparty: 9, Offer: []InventoryItem{{OwnedInstanceID: 2}, {OwnedInstanceID: 1}}, Ask: []InventoryItem{{OwnedInstanceID: 5}}}
	b := TradeCandidate{Counterparty: 9, Offer: []InventoryItem{{OwnedInstanceID: 1}, {OwnedInstanceID: 2}}, Ask: []InventoryItem{{OwnedInstanceID: 5}}}
	if a.Fingerprint() != b.Fingerprint() {
		t.Errorf("%q != %q", a.Fingerprint(), b.Fingerprint())
	}
	if got := a.Fingerprint(); got != "9|1,2|5" {
		t.Errorf("Fingerprint = %q", got)
	}
}
