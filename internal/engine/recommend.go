package engine

import (
	"context"
	"slices"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/progression"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

// Thresholds used when recommending the next step within a module.
const (
	focusBelow     = 0.70
	maxFocusItems  = 5
	masteryMean    = 0.85
	masterySamples = 10
	skipMean       = 0.90
)

// RecommendRequest asks what a student should do next in a module. An
// empty Activity lets the progression pick one.
type RecommendRequest struct {
	StudentID string              `json:"student_id"`
	ModuleID  string              `json:"module_id"`
	Activity  tuning.ActivityType `json:"activity_type,omitempty"`
}

// FocusItem is an observed item the student is weakest on.
type FocusItem struct {
	ItemID      string  `json:"item_id"`
	MeanAbility float64 `json:"mean_ability"`
	SampleCount int     `json:"sample_count"`
}

// Recommendation bundles the settings for the next activity with the
// module's progression state.
type Recommendation struct {
	Result
	Activity      tuning.ActivityType   `json:"activity_type"`
	FocusItems    []FocusItem           `json:"focus_items"`
	NumQuestions  int                   `json:"num_questions"` // 0 when skipping is suggested
	Mastered      bool                  `json:"mastered"`
	SkipSuggested bool                  `json:"skip_suggested"`
	Unlocked      []tuning.ActivityType `json:"unlocked"`
	Next          tuning.ActivityType   `json:"next"`
	Progress      float64               `json:"progress"`
	Complete      bool                  `json:"complete"`
}

// Recommend selects the module tier, generates settings and reports the
// items to focus on and where the student stands in the activity sequence.
func (s *Service) Recommend(ctx context.Context, r RecommendRequest) (*Recommendation, error) {
	if r.StudentID == "" {
		return nil, &proficiency.ValidationError{Field: "student_id", Reason: "must not be empty"}
	}
	if r.ModuleID == "" {
		return nil, &proficiency.ValidationError{Field: "module_id", Reason: "must not be empty"}
	}

	activity := r.Activity
	if activity == "" {
		e, err := s.Estimate(ctx, proficiency.ModuleKey(r.StudentID, r.ModuleID))
		if err != nil {
			return nil, err
		}
		activity = progression.Next(e.MeanAbility, "")
	}

	// The module tier drives recommendations regardless of the configured
	// tuning level.
	res, err := s.startAt(ctx, proficiency.ModuleKey(r.StudentID, r.ModuleID), activity)
	if err != nil {
		return nil, err
	}

	focus, err := s.focusItems(ctx, r.StudentID, r.ModuleID)
	if err != nil {
		return nil, err
	}

	mean := res.Estimate.MeanAbility
	rec := &Recommendation{
		Result:     *res,
		Activity:   activity,
		FocusItems: focus,
		Mastered:   res.Estimate.SampleCount >= masterySamples && mean >= masteryMean,
		SkipSuggested: s.graph.IsOptional(r.ModuleID, string(activity)) &&
			mean >= skipMean,
		Unlocked: progression.Unlocked(mean),
		Next:     progression.Next(mean, activity),
		Progress: progression.Progress(mean),
		Complete: progression.Complete(mean),
	}
	if !rec.SkipSuggested {
		rec.NumQuestions = tuning.QuestionCount(mean, res.Estimate.Confidence)
	}
	return rec, nil
}

// focusItems returns up to maxFocusItems observed items of moduleID below
// focusBelow, weakest first. Items come from the links stored on the
// module and from the curriculum.
func (s *Service) focusItems(ctx context.Context, studentID, moduleID string) ([]FocusItem, error) {
	mod, _, err := s.store.Get(ctx, proficiency.ModuleKey(studentID, moduleID))
	if err != nil {
		return nil, err
	}
	ids := append(slices.Clone(mod.Children), s.graph.ItemsOf(moduleID)...)
	slices.Sort(ids)

	var out []FocusItem
	for _, id := range slices.Compact(ids) {
		if curriculum.IsDirect(id) {
			continue
		}
		e, ok, err := s.store.Get(ctx, proficiency.ItemKey(studentID, id))
		if err != nil {
			return nil, err
		}
		if !ok || e.SampleCount == 0 || e.MeanAbility >= focusBelow {
			continue
		}
		out = append(out, FocusItem{ItemID: id, MeanAbility: e.MeanAbility, SampleCount: e.SampleCount})
	}
	slices.SortStableFunc(out, func(a, b FocusItem) int {
		switch {
		case a.MeanAbility < b.MeanAbility:
			return -1
		case a.MeanAbility > b.MeanAbility:
			return 1
		}
		return 0
	})
	if len(out) > maxFocusItems {
		out = out[:maxFocusItems]
	}
	return out, nil
}
