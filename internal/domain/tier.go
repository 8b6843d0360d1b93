package domain

// TierBand maps a holdings-value range to the permitted gain window.
// Percent fields are fractions: 0.2 means 20%.
type TierBand struct {
	MinValue       float64 `json:"min_value"`
	MaxValue       float64 `json:"max_value"`
	MinGainPercent float64 `json:"min_gain_percent"`
	MaxGainPercent float64 `json:"max_gain_percent"`
}

// Contains reports whether v lies inside the inclusive band range.
func (b TierBand) Contains(v float64) bool {
	return b.MinValue <= v && v <= b.MaxValue
}
