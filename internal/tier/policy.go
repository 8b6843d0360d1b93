// Package tier maps a holdings value onto the gain window a trade must land in.
package tier

import (
	"fmt"
	"math"
	"sort"

	"github.com/alanyoungcy/limitedbot/internal/domain"
)

// Policy is an immutable, ascending list of tier bands.
type Policy struct {
	bands []domain.TierBand
}

// NewPolicy copies bands and sorts them ascending by MinValue.
func NewPolicy(bands []domain.TierBand) *Policy {
	sorted := make([]domain.TierBand, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinValue < sorted[j].MinValue
	})
	return &Policy{bands: sorted}
}

// Bands returns a copy of the sorted bands.
func (p *Policy) Bands() []domain.TierBand {
	out := make([]domain.TierBand, len(p.bands))
	copy(out, p.bands)
	return out
}

// Lookup returns the first band whose inclusive range contains total. When no
// band matches, the highest band is used. ok is false only for an empty policy.
func (p *Policy) Lookup(total float64) (domain.TierBand, bool) {
	if len(p.bands) == 0 {
		return domain.TierBand{}, false
	}
	for _, b := range p.bands {
		if b.Contains(total) {
			return b, true
		}
	}
	return p.bands[len(p.bands)-1], true
}

// AcceptableGainRange returns the absolute gain window for a holdings value.
func (p *Policy) AcceptableGainRange(total float64) (lo, hi float64, ok bool) {
	b, ok := p.Lookup(total)
	if !ok {
		return 0, 0, false
	}
	return total * b.MinGainPercent, total * b.MaxGainPercent, true
}

// Accepts reports whether moving from offerTotal to askTotal lands inside the
// gain window of the offer's band. The gain may be negative if the band allows it.
func (p *Policy) Accepts(offerTotal, askTotal int64) bool {
	lo, hi, ok := p.AcceptableGainRange(float64(offerTotal))
	if !ok {
		return false
	}
	gain := float64(askTotal - offerTotal)
	return lo <= gain && gain <= hi
}

// Validate describes configuration problems: inverted ranges, overlaps, gaps
// between neighbours and a first band that does not start at zero. Lookup
// still works on such a policy, so callers log these rather than refuse to start.
func (p *Policy) Validate() []string {
	if len(p.bands) == 0 {
		return []string{"no tier bands configured; every trade will be rejected"}
	}

	var warnings []string
	for i, b := range p.bands {
		if b.MaxValue < b.MinValue {
			warnings = append(warnings, fmt.Sprintf("band %d: max_value %.0f below min_value %.0f", i, b.MaxValue, b.MinValue))
		}
		if b.MaxGainPercent < b.MinGainPercent {
			warnings = append(warnings, fmt.Sprintf("band %d: max_gain_percent %.3f below min_gain_percent %.3f", i, b.MaxGainPercent, b.MinGainPercent))
		}
		if i == 0 {
			if b.MinValue > 0 {
				warnings = append(warnings, fmt.Sprintf("band 0 starts at %.0f; lower totals fall back to the highest band", b.MinValue))
			}
			continue
		}
		prev := p.bands[i-1]
		switch {
		case b.MinValue <= prev.MaxValue:
			warnings = append(warnings, fmt.Sprintf("band %d overlaps band %d at %.0f", i, i-1, b.MinValue))
		case b.MinValue-prev.MaxValue > 1:
			warnings = append(warnings, fmt.Sprintf("gap between band %d and band %d: (%.0f, %.0f)", i-1, i, prev.MaxValue, b.MinValue))
		}
	}
	return warnings
}

// Unbounded is used for a top band with no configured maximum.
var Unbounded = math.Inf(1)
