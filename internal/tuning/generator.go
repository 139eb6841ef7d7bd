package tuning

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"

	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// UnknownActivityError is returned when no tuning table exists for an
// activity. Callers substitute Fallback instead of blocking the activity.
type UnknownActivityError struct {
	Activity ActivityType
}

func (e *UnknownActivityError) Error() string {
	return fmt.Sprintf("unknown activity type %q", e.Activity)
}

// Settings is the tuning produced for one activity start.
type Settings struct {
	Activity ActivityType   `json:"activity_type"`
	Tier     tier.Tier      `json:"tier"`
	Values   map[string]any `json:"settings"`
	// Fallback marks the default-easy settings used for unknown activities.
	Fallback bool `json:"fallback,omitempty"`
}

// Int returns an integer field. int_choice fields set to null report false.
func (s Settings) Int(name string) (int, bool) {
	v, ok := s.Values[name].(int)
	return v, ok
}

// Float returns a float field.
func (s Settings) Float(name string) (float64, bool) {
	v, ok := s.Values[name].(float64)
	return v, ok
}

// String returns an enum field.
func (s Settings) String(name string) (string, bool) {
	v, ok := s.Values[name].(string)
	return v, ok
}

// Generator maps a tier and an ability estimate to activity settings.
type Generator struct {
	cfg   tier.Config
	specs map[ActivityType]ActivitySpec
}

// NewGenerator builds a generator from the default tables with overrides
// replacing whole activities by type.
func NewGenerator(cfg tier.Config, overrides ...ActivitySpec) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tier config: %w", err)
	}
	g := &Generator{cfg: cfg, specs: make(map[ActivityType]ActivitySpec)}
	for _, s := range DefaultSpecs() {
		g.specs[s.Type] = s
	}
	for _, s := range overrides {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		g.specs[s.Type] = s.clone()
	}
	return g, nil
}

// Activities returns the known activity types in sorted order.
func (g *Generator) Activities() []ActivityType {
	out := make([]ActivityType, 0, len(g.specs))
	for a := range g.specs {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Spec returns the table for an activity.
func (g *Generator) Spec(activity ActivityType) (ActivitySpec, bool) {
	s, ok := g.specs[activity]
	if !ok {
		return ActivitySpec{}, false
	}
	return s.clone(), true
}

// Generate derives settings for activity at tier t. Numeric fields start at
// the tier's base value and move with how far mean sits from the tier's
// center, weighted by confidence; every field is clamped to its valid range.
func (g *Generator) Generate(activity ActivityType, t tier.Tier, mean, confidence float64) (Settings, error) {
	spec, ok := g.specs[activity]
	if !ok {
		return Settings{}, &UnknownActivityError{Activity: activity}
	}
	if !t.Valid() {
		t = tier.Easy
	}
	mean = clamp(mean, 0, 1)
	confidence = clamp(confidence, 0, 1)
	offset := mean - g.cfg.Center(t)

	values := make(map[string]any, len(spec.Fields))
	for _, f := range spec.Fields {
		values[f.Name] = fieldValue(f, t, confidence*offset)
	}
	return Settings{Activity: activity, Tier: t, Values: values}, nil
}

// Fallback returns the default-easy settings for activity: difficulty easy
// plus the easy column of the activity's table when one exists.
func (g *Generator) Fallback(activity ActivityType) Settings {
	s := Settings{
		Activity: activity,
		Tier:     tier.Easy,
		Values:   map[string]any{"difficulty": "easy"},
		Fallback: true,
	}
	if spec, ok := g.specs[activity]; ok {
		for _, f := range spec.Fields {
			s.Values[f.Name] = fieldValue(f, tier.Easy, 0)
		}
	}
	return s
}

func fieldValue(f FieldSpec, t tier.Tier, adjust float64) any {
	switch f.Kind {
	case KindInt:
		v := f.Base[t] * (1 + f.Slope*adjust)
		return int(clamp(math.Round(v), f.Min, f.Max))
	case KindFloat:
		v := f.Base[t] * (1 + f.Slope*adjust)
		return clamp(v, f.Min, f.Max)
	case KindIntChoice:
		c := choose(f, t)
		if c == nullOption {
			return nil
		}
		n, _ := strconv.Atoi(c)
		return n
	default:
		return choose(f, t)
	}
}

// choose returns the tier's choice when it is an allowed option and the first
// option otherwise.
func choose(f FieldSpec, t tier.Tier) string {
	c := f.Choices[t]
	if slices.Contains(f.Options, c) {
		return c
	}
	return f.Options[0]
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
