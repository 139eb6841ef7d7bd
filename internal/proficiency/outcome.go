package proficiency

import (
	"math"
	"time"
)

// Outcome is a single graded attempt. It is folded into the estimates and
// then discarded.
type Outcome struct {
	StudentID string    `json:"student_id"`
	ItemID    string    `json:"item_id,omitempty"`
	ModuleID  string    `json:"module_id,omitempty"`
	DomainID  string    `json:"domain_id,omitempty"`
	Score     float64   `json:"score"`
	Weight    *float64  `json:"weight,omitempty"` // nil means 1
	Timestamp time.Time `json:"timestamp"`
}

// Correct converts binary correctness into a score.
func Correct(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// Validate checks the outcome without touching any state.
func (o Outcome) Validate() error {
	if o.StudentID == "" {
		return &ValidationError{Field: "student_id", Reason: "must not be empty"}
	}
	if o.ItemID == "" && o.ModuleID == "" {
		return &ValidationError{Field: "identifiers", Reason: "outcome must name an item or a module"}
	}
	return o.Evidence().Validate()
}

// Evidence extracts the part of the outcome the updater consumes.
func (o Outcome) Evidence() Evidence {
	return Evidence{Score: o.Score, Weight: o.Weight, At: o.Timestamp}
}

// Weight returns a pointer to w for the optional weight fields.
func Weight(w float64) *float64 {
	return &w
}

// Evidence is a weighted fractional-credit observation.
type Evidence struct {
	Score  float64
	Weight *float64 // nil means 1
	At     time.Time
}

// EffectiveWeight returns the weight with the default applied.
func (e Evidence) EffectiveWeight() float64 {
	if e.Weight == nil {
		return 1
	}
	return *e.Weight
}

// Validate checks score and weight ranges.
func (e Evidence) Validate() error {
	if math.IsNaN(e.Score) || e.Score < 0 || e.Score > 1 {
		return &ValidationError{Field: "score", Value: e.Score, Reason: "must be within [0, 1]"}
	}
	w := e.EffectiveWeight()
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return &ValidationError{Field: "weight", Value: w, Reason: "must be positive"}
	}
	return nil
}
