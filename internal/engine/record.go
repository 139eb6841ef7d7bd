package engine

import (
	"context"
	"time"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

// Attempt is one graded exercise as reported by the attempt-recording
// subsystem.
type Attempt struct {
	proficiency.Outcome
	// Activity, when set, requests fresh tuning for that activity.
	Activity tuning.ActivityType `json:"activity_type,omitempty"`
	// Correct, when set, overrides Score with binary correctness.
	Correct *bool `json:"correct,omitempty"`
}

func (a Attempt) outcome(now time.Time) proficiency.Outcome {
	o := a.Outcome
	if a.Correct != nil {
		o.Score = proficiency.Correct(*a.Correct)
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = now
	}
	return o
}

// Result is what the chain hands back for one attempt or activity start.
type Result struct {
	// Updated holds the records written, finest level first.
	Updated []proficiency.Record `json:"updated,omitempty"`
	Skipped []SkippedLevel       `json:"skipped,omitempty"`
	// TuningKey is the record the tier was selected from.
	TuningKey proficiency.Key    `json:"tuning_key"`
	Estimate  proficiency.Record `json:"estimate"`
	Decision  tier.Decision      `json:"decision"`
	Settings  *tuning.Settings   `json:"settings,omitempty"`
}

// RecordAttempt folds one attempt into the item estimate, re-pools the
// module and domain, selects the tier at the tuning level and commits all
// of it as one unit. When the attempt names an activity, fresh settings are
// generated from the committed state. Invalid attempts are rejected before
// anything is read or written.
func (s *Service) RecordAttempt(ctx context.Context, a Attempt) (*Result, error) {
	o := a.outcome(s.now().UTC())
	if err := o.Validate(); err != nil {
		return nil, err
	}

	itemID := s.learn(o)
	ev := o.Evidence()

	var res Result
	err := s.retry(ctx, "record attempt", func() error {
		p, err := s.resolve(ctx, o, itemID)
		if err != nil {
			return err
		}
		tuneKey := p.tuningKey(s.tuningLevel)
		res = Result{Skipped: p.skipped, TuningKey: tuneKey}

		return s.store.Update(ctx, p.keys, func(tx *store.Txn) error {
			item := s.entryOrPrior(tx, p.item)
			rec, err := s.updater.Apply(item.Record, ev)
			if err != nil {
				return err
			}
			item.Record = rec
			if p.hasModule {
				if item, err = link(item, p.module.ID); err != nil {
					return err
				}
			}
			if err := tx.Put(item); err != nil {
				return err
			}
			res.Updated = append(res.Updated, rec)

			if p.hasModule {
				var domainID string
				if p.hasDomain {
					domainID = p.domain.ID
				}
				mod, err := s.pool(tx, p.module, p.item.ID, domainID)
				if err != nil {
					return err
				}
				res.Updated = append(res.Updated, mod)
			}
			if p.hasDomain {
				dom, err := s.pool(tx, p.domain, p.module.ID, "")
				if err != nil {
					return err
				}
				res.Updated = append(res.Updated, dom)
			}

			e, d, err := s.selectTier(tx, tuneKey)
			if err != nil {
				return err
			}
			res.Estimate, res.Decision = e.Record, d
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	for _, sk := range res.Skipped {
		s.log.Warn("aggregation level skipped", "student", o.StudentID, "level", string(sk.Level), "reason", sk.Reason)
	}
	s.log.Debug("attempt recorded",
		"student", o.StudentID,
		"item", itemID,
		"score", o.Score,
		"mean", res.Estimate.MeanAbility,
		"confidence", res.Estimate.Confidence,
		"tier", res.Decision.Tier.String(),
	)
	s.recordTierChange(ctx, res.TuningKey, res.Estimate, res.Decision)

	if a.Activity != "" {
		st, err := s.settings(a.Activity, res.Decision.Tier, res.Estimate)
		if err != nil {
			return nil, err
		}
		res.Settings = &st
	}
	return &res, nil
}

// ActivityRequest asks for settings at the start of an activity. At least
// one identifier must be given; missing ones are resolved through the
// curriculum.
type ActivityRequest struct {
	StudentID string              `json:"student_id"`
	Activity  tuning.ActivityType `json:"activity_type"`
	ItemID    string              `json:"item_id,omitempty"`
	ModuleID  string              `json:"module_id,omitempty"`
	DomainID  string              `json:"domain_id,omitempty"`
}

func (r ActivityRequest) validate() error {
	if r.StudentID == "" {
		return &proficiency.ValidationError{Field: "student_id", Reason: "must not be empty"}
	}
	if r.ItemID == "" && r.ModuleID == "" && r.DomainID == "" {
		return &proficiency.ValidationError{Field: "identifiers", Reason: "request must name an item, module or domain"}
	}
	if r.Activity == "" {
		return &proficiency.ValidationError{Field: "activity_type", Reason: "must not be empty"}
	}
	return nil
}

// key resolves the record the request is tuned from, following stored
// links before the curriculum.
func (s *Service) key(ctx context.Context, r ActivityRequest) (proficiency.Key, error) {
	moduleID := r.ModuleID
	if moduleID == "" && r.ItemID != "" {
		k := proficiency.ItemKey(r.StudentID, r.ItemID)
		e, _, err := s.store.Get(ctx, k)
		if err != nil {
			return proficiency.Key{}, err
		}
		moduleID, _ = s.parentID(k, e)
	}
	domainID := r.DomainID
	if domainID == "" && moduleID != "" {
		k := proficiency.ModuleKey(r.StudentID, moduleID)
		e, _, err := s.store.Get(ctx, k)
		if err != nil {
			return proficiency.Key{}, err
		}
		domainID, _ = s.parentID(k, e)
	}

	switch {
	case s.tuningLevel == proficiency.LevelDomain && domainID != "":
		return proficiency.DomainKey(r.StudentID, domainID), nil
	case s.tuningLevel != proficiency.LevelItem && moduleID != "":
		return proficiency.ModuleKey(r.StudentID, moduleID), nil
	case r.ItemID != "":
		return proficiency.ItemKey(r.StudentID, r.ItemID), nil
	case moduleID != "":
		return proficiency.ModuleKey(r.StudentID, moduleID), nil
	}
	return proficiency.DomainKey(r.StudentID, domainID), nil
}

// StartActivity recomputes the tier from the latest record and the tier
// served last time, persists it, and generates settings. A record that
// does not exist yet is read as the prior.
func (s *Service) StartActivity(ctx context.Context, r ActivityRequest) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}
	key, err := s.key(ctx, r)
	if err != nil {
		return nil, err
	}
	return s.startAt(ctx, key, r.Activity)
}

func (s *Service) startAt(ctx context.Context, key proficiency.Key, activity tuning.ActivityType) (*Result, error) {
	var res Result
	err := s.retry(ctx, "start activity", func() error {
		res = Result{TuningKey: key}
		return s.store.Update(ctx, []proficiency.Key{key}, func(tx *store.Txn) error {
			e, d, err := s.selectTier(tx, key)
			if err != nil {
				return err
			}
			res.Estimate, res.Decision = e.Record, d
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.recordTierChange(ctx, key, res.Estimate, res.Decision)

	st, err := s.settings(activity, res.Decision.Tier, res.Estimate)
	if err != nil {
		return nil, err
	}
	res.Settings = &st
	return &res, nil
}
