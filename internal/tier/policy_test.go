package tier

import (
	"strings"
	"testing"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

func TestAccepts(t *testing.T) {
	tests := []struct {
		name  string
		band  domain.TierBand
		offer int64
		ask   int64
		want  bool
	}{
		{"inside window", domain.TierBand{MinValue: 0, MaxValue: 1000, MinGainPercent: 0.2, MaxGainPercent: 1.5}, 100, 180, true},
		{"below window", domain.TierBand{MinValue: 0, MaxValue: 1000, MinGainPercent: 1.0, MaxGainPercent: 1.5}, 100, 180, false},
		{"above window", domain.TierBand{MinValue: 0, MaxValue: 1000, MinGainPercent: 0.1, MaxGainPercent: 0.5}, 100, 180, false},
		{"lower edge inclusive", domain.TierBand{MinValue: 0, MaxValue: 1000, MinGainPercent: 0.5, MaxGainPercent: 1.0}, 100, 150, true},
		{"negative gain allowed", domain.TierBand{MinValue: 0, MaxValue: 1000, MinGainPercent: -0.3, MaxGainPercent: 0.1}, 100, 80, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPolicy([]domain.TierBand{tt.band})
			if got := p.Accepts(tt.offer, tt.ask); got != tt.want {
				t.Errorf("Accepts(%d, %d) = %v, want %v", tt.offer, tt.ask, got, tt.want)
			}
		})
	}
}

func TestLookupSortsAndFallsBack(t *testing.T) {
	high := domain.TierBand{MinValue: 10001, MaxValue: 100000, MinGainPercent: 0.05, MaxGainPercent: 0.5}
	low := domain.TierBand{MinValue: 0, MaxValue: 10000, MinGainPercent: 0.1, MaxGainPercent: 1}
	p := NewPolicy([]domain.TierBand{high, low})

	if b, _ := p.Lookup(500); b != low {
		t.Errorf("Lookup(500) = %+v, want low band", b)
	}
	if b, _ := p.Lookup(50000); b != high {
		t.Errorf("Lookup(50000) = %+v, want high band", b)
	}
	if b, ok := p.Lookup(5_000_000); !ok || b != high {
		t.Errorf("Lookup above all bands = %+v, %v; want highest band", b, ok)
	}

	lo, hi, ok := p.AcceptableGainRange(1000)
	if !ok || lo != 100 || hi != 1000 {
		t.Errorf("AcceptableGainRange(1000) = %v, %v, %v", lo, hi, ok)
	}
}

func TestEmptyPolicyRejects(t *testing.T) {
	p := NewPolicy(nil)
	if _, ok := p.Lookup(10); ok {
		t.Error("Lookup on empty policy reported ok")
	}
	if p.Accepts(100, 200) {
		t.Error("empty policy accepted a trade")
	}
	if w := p.Validate(); len(w) != 1 {
		t.Errorf("Validate = %v, want one warning", w)
	}
}

func TestValidate(t *testing.T) {
	p := NewPolicy([]domain.TierBand{
		{MinValue: 100, MaxValue: 500, MinGainPercent: 0.1, MaxGainPercent: 0.5},
		{MinValue: 400, MaxValue: 900, MinGainPercent: 0.1, MaxGainPercent: 0.5},
		{MinValue: 2000, MaxValue: 1500, MinGainPercent: 0.6, MaxGainPercent: 0.5},
	})
	joined := strings.Join(p.Validate(), "\n")
	for _, want := range []string{"band 0 starts at 100", "overlaps", "gap between band 1 and band 2", "max_value", "max_gain_percent"} {
		if !strings.Contains(joined, want) {
			t.Errorf("Validate output missing %q:\n%s", want, joined)
		}
	}

	ok := NewPolicy([]domain.TierBand{
		{MinValue: 0, MaxValue: 1000, MinGainPercent: 0.1, MaxGainPercent: 1},
		{MinValue: 1001, MaxValue: Unbounded, MinGainPercent: 0.05, MaxGainPercent: 0.5},
	})
	if w := ok.Validate(); len(w) != 0 {
		t.Errorf("contiguous bands reported %v", w)
	}
}
