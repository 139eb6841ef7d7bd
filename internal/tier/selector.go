package tier

// tolerance absorbs float rounding when comparing a margin against the
// hysteresis band, so a crossing of exactly δ counts.
const tolerance = 1e-9

// Estimate is the part of a proficiency record the selector reads.
type Estimate struct {
	Mean       float64
	Confidence float64
}

// Rule maps a predicate on an estimate to a tier. Rules are evaluated in
// order and the first match wins.
type Rule struct {
	Name  string
	Match func(Estimate) bool
	Tier  Tier
	// Override skips hysteresis when the rule fires.
	Override bool
}

// Rule names reported in decisions.
const (
	RuleLowConfidence = "low-confidence"
	RuleBelowLowCut   = "below-low-cut"
	RuleAboveHighCut  = "above-high-cut"
	RuleBetweenCuts   = "between-cuts"
)

// Rules builds the ordered rule table for cfg.
func Rules(cfg Config) []Rule {
	return []Rule{
		{
			Name:     RuleLowConfidence,
			Match:    func(e Estimate) bool { return e.Confidence < cfg.LowConfidence },
			Tier:     Easy,
			Override: true,
		},
		{
			Name:  RuleBelowLowCut,
			Match: func(e Estimate) bool { return e.Mean < cfg.LowCut },
			Tier:  Easy,
		},
		{
			Name:  RuleAboveHighCut,
			Match: func(e Estimate) bool { return e.Mean > cfg.HighCut },
			Tier:  Hard,
		},
		{
			Name:  RuleBetweenCuts,
			Match: func(Estimate) bool { return true },
			Tier:  Moderate,
		},
	}
}

// Decision is the outcome of a tier selection.
type Decision struct {
	Tier     Tier   `json:"tier"`
	Previous Tier   `json:"previous"`
	Target   Tier   `json:"target"`
	Rule     string `json:"rule"`
	// Held is true when hysteresis kept the previous tier.
	Held bool `json:"held"`
}

// Changed reports whether the selected tier differs from the previous one.
func (d Decision) Changed() bool {
	return d.Tier != d.Previous
}

// Selector turns estimates into tiers.
type Selector struct {
	cfg   Config
	rules []Rule
}

// NewSelector validates cfg and builds its rule table.
func NewSelector(cfg Config) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Selector{cfg: cfg, rules: Rules(cfg)}, nil
}

// Config returns the selector's cutoffs.
func (s *Selector) Config() Config {
	return s.cfg
}

// Target returns the tier the rule table assigns to est, ignoring history.
func (s *Selector) Target(est Estimate) (Tier, Rule) {
	for _, r := range s.rules {
		if r.Match(est) {
			return r.Tier, r
		}
	}
	return Easy, Rule{Name: "default", Tier: Easy}
}

// Select picks the tier for est given the previously selected tier. A move
// to an adjacent tier must clear the boundary by the hysteresis margin; a
// two-step jump is taken immediately.
func (s *Selector) Select(est Estimate, previous Tier) Decision {
	if !previous.Valid() {
		previous = Easy
	}
	target, rule := s.Target(est)
	d := Decision{Tier: target, Previous: previous, Target: target, Rule: rule.Name}

	if rule.Override || target == previous || steps(target, previous) > 1 {
		return d
	}

	cut := s.cfg.boundary(target, previous)
	var margin float64
	if target > previous {
		margin = est.Mean - cut
	} else {
		margin = cut - est.Mean
	}
	if margin+tolerance < s.cfg.Hysteresis {
		d.Tier = previous
		d.Held = true
	}
	return d
}
