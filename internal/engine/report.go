package engine

import (
	"context"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// IntervalMass is the probability mass of the credible interval reported
// with every estimate.
const IntervalMass = 0.9

// EstimateView is the read-only view of one record for reporting.
type EstimateView struct {
	proficiency.Record
	Tier    tier.Tier `json:"tier"`
	HasTier bool      `json:"has_tier"`
	Lower   float64   `json:"lower"`
	Upper   float64   `json:"upper"`
}

func view(e store.Entry) EstimateView {
	v := EstimateView{Record: e.Record, Tier: e.PreviousTier(), HasTier: e.HasTier}
	v.Lower, v.Upper = e.CredibleInterval(IntervalMass)
	return v
}

// Estimate returns the record at key, or the prior when it was never
// written. Nothing is modified.
func (s *Service) Estimate(ctx context.Context, key proficiency.Key) (EstimateView, error) {
	if err := key.Validate(); err != nil {
		return EstimateView{}, err
	}
	e, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return EstimateView{}, err
	}
	if !ok {
		e = store.Entry{Record: proficiency.NewRecord(key, s.prior())}
	}
	return view(e), nil
}

// Report returns every stored record of a student ordered by level then
// identifier.
func (s *Service) Report(ctx context.Context, studentID string) ([]EstimateView, error) {
	if studentID == "" {
		return nil, &proficiency.ValidationError{Field: "student_id", Reason: "must not be empty"}
	}
	entries, err := s.store.List(ctx, studentID)
	if err != nil {
		return nil, err
	}
	out := make([]EstimateView, 0, len(entries))
	for _, e := range entries {
		out = append(out, view(e))
	}
	return out, nil
}

// TierHistory returns a student's tier changes, newest first. It is empty
// when no event log is configured.
func (s *Service) TierHistory(ctx context.Context, studentID string, limit int) ([]store.TierChange, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.TierChanges(ctx, studentID, limit)
}

// Students returns every student with at least one stored record.
func (s *Service) Students(ctx context.Context) ([]string, error) {
	return s.store.Students(ctx)
}
