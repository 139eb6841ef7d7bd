package tier

import "fmt"

// Config holds the cutoffs used to bucket an estimate.
type Config struct {
	// LowConfidence forces Easy while confidence is below it.
	LowConfidence float64 `json:"low_confidence"`
	// LowCut separates Easy from Moderate.
	LowCut float64 `json:"low_cut"`
	// HighCut separates Moderate from Hard.
	HighCut float64 `json:"high_cut"`
	// Hysteresis is the extra margin a one-step move must clear.
	Hysteresis float64 `json:"hysteresis"`
}

// DefaultConfig returns the production cutoffs.
func DefaultConfig() Config {
	return Config{
		LowConfidence: 0.75,
		LowCut:        0.65,
		HighCut:       0.85,
		Hysteresis:    0.03,
	}
}

// Validate checks that the cutoffs are ordered and inside [0, 1].
func (c Config) Validate() error {
	if c.LowConfidence < 0 || c.LowConfidence >= 1 {
		return fmt.Errorf("low_confidence must be in [0, 1), got %v", c.LowConfidence)
	}
	if !(0 < c.LowCut && c.LowCut < c.HighCut && c.HighCut < 1) {
		return fmt.Errorf("cutoffs must satisfy 0 < low_cut < high_cut < 1, got %v, %v", c.LowCut, c.HighCut)
	}
	if c.Hysteresis < 0 || c.Hysteresis >= (c.HighCut-c.LowCut) {
		return fmt.Errorf("hysteresis must be in [0, high_cut-low_cut), got %v", c.Hysteresis)
	}
	return nil
}

// Center returns the midpoint of the ability band a tier covers.
func (c Config) Center(t Tier) float64 {
	switch t {
	case Hard:
		return (c.HighCut + 1) / 2
	case Moderate:
		return (c.LowCut + c.HighCut) / 2
	default:
		return c.LowCut / 2
	}
}

// boundary returns the cutoff between two adjacent tiers.
func (c Config) boundary(a, b Tier) float64 {
	if a == Hard || b == Hard {
		return c.HighCut
	}
	return c.LowCut
}
