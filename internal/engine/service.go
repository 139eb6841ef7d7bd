// Package engine ties the estimator, the hierarchy, the tier selector and
// the tuning generator into the synchronous per-attempt chain: validate,
// update the item, re-pool its module and domain, select a tier, commit as
// one unit, and generate settings.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

// Options configures a Service. Store is required; every other field has a
// default.
type Options struct {
	Store      store.Store
	Curriculum *curriculum.Graph
	Updater    *proficiency.Updater
	Selector   *tier.Selector
	Generator  *tuning.Generator
	// Events receives tier changes. Nil disables the log.
	Events store.EventLog
	Retry  RetryConfig
	// TuningLevel is the level whose tier drives activity settings.
	TuningLevel proficiency.Level
	// BatchConcurrency caps the students processed in parallel by
	// RecordBatch.
	BatchConcurrency int
	Logger           *slog.Logger
	Now              func() time.Time
}

// Service is the proficiency engine. It is safe for concurrent use.
type Service struct {
	store       store.Store
	graph       *curriculum.Graph
	updater     *proficiency.Updater
	selector    *tier.Selector
	gen         *tuning.Generator
	events      store.EventLog
	retryCfg    RetryConfig
	tuningLevel proficiency.Level
	batchLimit  int
	log         *slog.Logger
	now         func() time.Time
}

// New validates opts and fills in defaults.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	s := &Service{
		store:       opts.Store,
		graph:       opts.Curriculum,
		updater:     opts.Updater,
		selector:    opts.Selector,
		gen:         opts.Generator,
		events:      opts.Events,
		retryCfg:    opts.Retry,
		tuningLevel: opts.TuningLevel,
		batchLimit:  opts.BatchConcurrency,
		log:         opts.Logger,
		now:         opts.Now,
	}

	if s.graph == nil {
		s.graph = curriculum.New()
	}
	if s.updater == nil {
		u, err := proficiency.NewUpdater(proficiency.DefaultUpdaterConfig())
		if err != nil {
			return nil, err
		}
		s.updater = u
	}
	if s.selector == nil {
		sel, err := tier.NewSelector(tier.DefaultConfig())
		if err != nil {
			return nil, err
		}
		s.selector = sel
	}
	if s.gen == nil {
		g, err := tuning.NewGenerator(s.selector.Config())
		if err != nil {
			return nil, err
		}
		s.gen = g
	}
	if s.retryCfg == (RetryConfig{}) {
		s.retryCfg = DefaultRetryConfig()
	}
	if s.retryCfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("engine: retry max attempts must be >= 1, got %d", s.retryCfg.MaxAttempts)
	}
	if s.tuningLevel == "" {
		s.tuningLevel = proficiency.LevelModule
	}
	if _, err := proficiency.ParseLevel(string(s.tuningLevel)); err != nil {
		return nil, fmt.Errorf("engine: tuning level: %w", err)
	}
	if s.batchLimit <= 0 {
		s.batchLimit = 4
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// Curriculum returns the hierarchy the service resolves outcomes against.
func (s *Service) Curriculum() *curriculum.Graph {
	return s.graph
}

// Generator returns the tuning generator.
func (s *Service) Generator() *tuning.Generator {
	return s.gen
}

// prior is the prior every record starts from and resets to.
func (s *Service) prior() proficiency.Prior {
	return s.updater.Prior()
}

func (s *Service) entryOrPrior(tx *store.Txn, key proficiency.Key) store.Entry {
	if e, ok := tx.Get(key); ok {
		return e
	}
	return store.Entry{Record: proficiency.NewRecord(key, s.prior())}
}

// selectTier runs the selector over the entry at key and stages the chosen
// tier.
func (s *Service) selectTier(tx *store.Txn, key proficiency.Key) (store.Entry, tier.Decision, error) {
	e := s.entryOrPrior(tx, key)
	d := s.selector.Select(tier.Estimate{Mean: e.MeanAbility, Confidence: e.Confidence}, e.PreviousTier())
	if !e.HasTier || d.Changed() {
		e.Tier, e.HasTier = d.Tier, true
		if err := tx.Put(e); err != nil {
			return store.Entry{}, tier.Decision{}, err
		}
	}
	return e, d, nil
}

// recordTierChange appends a tier change to the event log. Failures are
// logged; the unit has already been committed.
func (s *Service) recordTierChange(ctx context.Context, key proficiency.Key, rec proficiency.Record, d tier.Decision) {
	if s.events == nil || !d.Changed() {
		return
	}
	err := s.events.AppendTierChange(ctx, store.TierChange{
		Key:        key,
		From:       d.Previous,
		To:         d.Tier,
		Rule:       d.Rule,
		Mean:       rec.MeanAbility,
		Confidence: rec.Confidence,
		At:         s.now().UTC(),
	})
	if err != nil {
		s.log.Warn("tier change not logged", "key", key.String(), "error", err)
	}
}

// settings generates tuning for activity, substituting the default-easy
// settings when the activity is unknown.
func (s *Service) settings(activity tuning.ActivityType, t tier.Tier, rec proficiency.Record) (tuning.Settings, error) {
	st, err := s.gen.Generate(activity, t, rec.MeanAbility, rec.Confidence)
	var unknown *tuning.UnknownActivityError
	if errors.As(err, &unknown) {
		s.log.Warn("unknown activity, using fallback settings", "activity", string(activity))
		return s.gen.Fallback(activity), nil
	}
	return st, err
}
