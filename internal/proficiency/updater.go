package proficiency

import (
	"math"
	"time"
)

// UpdaterConfig controls how evidence is folded into a record.
type UpdaterConfig struct {
	Prior Prior

	// DecayFactor pulls existing mass toward the prior before each update.
	// 1 keeps all history. Must be in (0, 1].
	DecayFactor float64

	// ForgettingRate is an additional per-day exponential decay toward the
	// prior, applied for whole days elapsed since the last update.
	ForgettingRate float64
}

// DefaultUpdaterConfig returns the uniform prior, no per-update decay and a
// 5% per-day forgetting rate.
func DefaultUpdaterConfig() UpdaterConfig {
	return UpdaterConfig{
		Prior:          DefaultPrior(),
		DecayFactor:    1.0,
		ForgettingRate: 0.05,
	}
}

// Validate checks the configuration bounds.
func (c UpdaterConfig) Validate() error {
	if err := c.Prior.Validate(); err != nil {
		return err
	}
	if !(c.DecayFactor > 0 && c.DecayFactor <= 1) {
		return &ValidationError{Field: "decay_factor", Value: c.DecayFactor, Reason: "must be in (0, 1]"}
	}
	if math.IsNaN(c.ForgettingRate) || c.ForgettingRate < 0 {
		return &ValidationError{Field: "forgetting_rate", Value: c.ForgettingRate, Reason: "must not be negative"}
	}
	return nil
}

// Updater applies Beta-Bernoulli conjugate updates to records.
type Updater struct {
	cfg UpdaterConfig
}

// NewUpdater validates cfg and returns an Updater.
func NewUpdater(cfg UpdaterConfig) (*Updater, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Updater{cfg: cfg}, nil
}

// Prior returns the prior records are created with.
func (u *Updater) Prior() Prior {
	return u.cfg.Prior
}

// Apply folds one observation into rec and returns the updated copy. Invalid
// evidence returns a *ValidationError and rec is left as it was.
func (u *Updater) Apply(rec Record, ev Evidence) (Record, error) {
	if err := ev.Validate(); err != nil {
		return rec, err
	}
	if err := rec.Validate(); err != nil {
		return rec, err
	}

	p := u.cfg.Prior
	gamma := u.decay(rec.LastUpdated, ev.At)
	if gamma < 1 {
		rec.Alpha = p.Alpha + gamma*(rec.Alpha-p.Alpha)
		rec.Beta = p.Beta + gamma*(rec.Beta-p.Beta)
	}

	w := ev.EffectiveWeight()
	rec.Alpha += ev.Score * w
	rec.Beta += (1 - ev.Score) * w
	rec.SampleCount++
	rec.LastUpdated = ev.At
	rec.refresh(p)
	return rec, nil
}

// decay returns the combined decay factor for an update at now of a record
// last touched at last.
func (u *Updater) decay(last, now time.Time) float64 {
	gamma := u.cfg.DecayFactor
	if u.cfg.ForgettingRate == 0 || last.IsZero() || !now.After(last) {
		return gamma
	}
	days := math.Floor(now.Sub(last).Hours() / 24)
	if days <= 0 {
		return gamma
	}
	return gamma * math.Exp(-u.cfg.ForgettingRate*days)
}
