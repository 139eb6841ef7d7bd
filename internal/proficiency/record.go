package proficiency

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat/distuv"
)

// Prior holds the Beta shape parameters every record starts from.
type Prior struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// DefaultPrior returns the uniform Beta(1, 1) prior.
func DefaultPrior() Prior {
	return Prior{Alpha: 1, Beta: 1}
}

// Total returns the prior's evidence mass.
func (p Prior) Total() float64 {
	return p.Alpha + p.Beta
}

// Validate checks that both shape parameters are positive and finite.
func (p Prior) Validate() error {
	if !(p.Alpha > 0) || math.IsInf(p.Alpha, 0) {
		return &ValidationError{Field: "prior.alpha", Value: p.Alpha, Reason: "must be positive"}
	}
	if !(p.Beta > 0) || math.IsInf(p.Beta, 0) {
		return &ValidationError{Field: "prior.beta", Value: p.Beta, Reason: "must be positive"}
	}
	return nil
}

// Record is the Beta-distribution estimate of a student's mastery at one key.
type Record struct {
	Key
	Alpha       float64   `json:"alpha"`
	Beta        float64   `json:"beta"`
	MeanAbility float64   `json:"mean_ability"`
	Confidence  float64   `json:"confidence"`
	SampleCount int       `json:"sample_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewRecord returns a record at the prior. Reading a key that was never
// written yields this record.
func NewRecord(key Key, prior Prior) Record {
	r := Record{Key: key}
	r.Reset(prior)
	return r
}

// Reset reinitializes the estimate to the prior. The key is kept.
func (r *Record) Reset(prior Prior) {
	r.Alpha = prior.Alpha
	r.Beta = prior.Beta
	r.SampleCount = 0
	r.LastUpdated = time.Time{}
	r.refresh(prior)
}

// refresh recomputes the cached mean and confidence from alpha and beta.
func (r *Record) refresh(prior Prior) {
	r.MeanAbility = r.Alpha / (r.Alpha + r.Beta)
	r.Confidence = Confidence(r.Alpha, r.Beta, prior)
}

// Mass returns the evidence accumulated above the prior.
func (r Record) Mass(prior Prior) float64 {
	return math.Max(0, r.Alpha+r.Beta-prior.Total())
}

// IsPrior reports whether the record carries no evidence.
func (r Record) IsPrior(prior Prior) bool {
	return r.SampleCount == 0 && r.Alpha == prior.Alpha && r.Beta == prior.Beta
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if !(r.Alpha > 0) || math.IsInf(r.Alpha, 0) {
		return &ValidationError{Field: "alpha", Value: r.Alpha, Reason: "must be positive"}
	}
	if !(r.Beta > 0) || math.IsInf(r.Beta, 0) {
		return &ValidationError{Field: "beta", Value: r.Beta, Reason: "must be positive"}
	}
	if r.SampleCount < 0 {
		return &ValidationError{Field: "sample_count", Value: r.SampleCount, Reason: "must not be negative"}
	}
	return nil
}

// CredibleInterval returns the central interval holding the given probability
// mass of the Beta(alpha, beta) posterior, e.g. 0.9 for a 90% interval.
func (r Record) CredibleInterval(mass float64) (lo, hi float64) {
	if mass <= 0 || mass >= 1 {
		return 0, 1
	}
	dist := distuv.Beta{Alpha: r.Alpha, Beta: r.Beta}
	tail := (1 - mass) / 2
	return dist.Quantile(tail), dist.Quantile(1 - tail)
}

// Confidence maps evidence mass above the prior onto [0, 1). It is zero at
// the prior and grows toward one as evidence accumulates.
func Confidence(alpha, beta float64, prior Prior) float64 {
	mass := math.Max(0, alpha+beta-prior.Total())
	return 1 - 1/(1+mass)
}
