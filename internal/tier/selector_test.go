package tier

import (
	"encoding/json"
	"math"
	"testing"
)

func newTestSelector(t *testing.T, cfg Config) *Selector {
	t.Helper()
	s, err := NewSelector(cfg)
	if err != nil {
		t.Fatalf("NewSelector: %v", err)
	}
	return s
}

func TestSelect_KnownEstimates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LowCut, cfg.HighCut = 0.65, 0.85
	s := newTestSelector(t, cfg)

	d := s.Select(Estimate{Mean: 0.9, Confidence: 0.9}, Easy)
	if d.Tier != Hard {
		t.Errorf("tier(0.9, 0.9) = %s, want hard", d.Tier)
	}

	for _, prev := range All() {
		d := s.Select(Estimate{Mean: 0.5, Confidence: 0.05}, prev)
		if d.Tier != Easy {
			t.Errorf("tier(0.5, 0.05) from %s = %s, want easy", prev, d.Tier)
		}
		if d.Rule != RuleLowConfidence {
			t.Errorf("Rule = %q, want %q", d.Rule, RuleLowConfidence)
		}
	}

	d = s.Select(Estimate{Mean: 0.99, Confidence: 0.05}, Hard)
	if d.Tier != Easy {
		t.Errorf("low confidence must override high mean, got %s", d.Tier)
	}
}

func TestTarget_RuleTable(t *testing.T) {
	s := newTestSelector(t, DefaultConfig())
	tests := []struct {
		name string
		est  Estimate
		want Tier
		rule string
	}{
		{"below low cut", Estimate{Mean: 0.3, Confidence: 0.9}, Easy, RuleBelowLowCut},
		{"at low cut", Estimate{Mean: 0.65, Confidence: 0.9}, Moderate, RuleBetweenCuts},
		{"between", Estimate{Mean: 0.75, Confidence: 0.9}, Moderate, RuleBetweenCuts},
		{"at high cut", Estimate{Mean: 0.85, Confidence: 0.9}, Moderate, RuleBetweenCuts},
		{"above high cut", Estimate{Mean: 0.86, Confidence: 0.9}, Hard, RuleAboveHighCut},
		{"low confidence", Estimate{Mean: 0.95, Confidence: 0.5}, Easy, RuleLowConfidence},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rule := s.Target(tt.est)
			if got != tt.want {
				t.Errorf("Target = %s, want %s", got, tt.want)
			}
			if rule.Name != tt.rule {
				t.Errorf("rule = %q, want %q", rule.Name, tt.rule)
			}
		})
	}
}

func TestSelect_Hysteresis(t *testing.T) {
	s := newTestSelector(t, DefaultConfig()) // cuts 0.65 / 0.85, δ = 0.03
	const conf = 0.9

	tests := []struct {
		name     string
		mean     float64
		previous Tier
		want     Tier
		held     bool
	}{
		{"easy to moderate below margin", 0.66, Easy, Easy, true},
		{"easy to moderate at margin", 0.68, Easy, Moderate, false},
		{"moderate to hard below margin", 0.87, Moderate, Moderate, true},
		{"moderate to hard at margin", 0.88, Moderate, Hard, false},
		{"hard to moderate below margin", 0.83, Hard, Hard, true},
		{"hard to moderate at margin", 0.82, Hard, Moderate, false},
		{"moderate to easy below margin", 0.63, Moderate, Moderate, true},
		{"moderate to easy at margin", 0.62, Moderate, Easy, false},
		{"easy to hard jumps immediately", 0.86, Easy, Hard, false},
		{"hard to easy jumps immediately", 0.64, Hard, Easy, false},
		{"stays put", 0.75, Moderate, Moderate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := s.Select(Estimate{Mean: tt.mean, Confidence: conf}, tt.previous)
			if d.Tier != tt.want {
				t.Errorf("Select(%v, %s) = %s, want %s", tt.mean, tt.previous, d.Tier, tt.want)
			}
			if d.Held != tt.held {
				t.Errorf("Held = %v, want %v", d.Held, tt.held)
			}
			if d.Changed() != (tt.want != tt.previous) {
				t.Errorf("Changed() = %v", d.Changed())
			}
		})
	}
}

func TestSelect_HeldTierMovesOnNextClearEvaluation(t *testing.T) {
	s := newTestSelector(t, DefaultConfig())
	prev := Easy
	for _, mean := range []float64{0.66, 0.67, 0.70} {
		prev = s.Select(Estimate{Mean: mean, Confidence: 0.9}, prev).Tier
	}
	if prev != Moderate {
		t.Errorf("tier after clearing margin = %s, want moderate", prev)
	}
}

func TestSelect_InvalidPreviousDefaultsToEasy(t *testing.T) {
	s := newTestSelector(t, DefaultConfig())
	d := s.Select(Estimate{Mean: 0.66, Confidence: 0.9}, Tier(9))
	if d.Previous != Easy || d.Tier != Easy {
		t.Errorf("decision = %+v, want previous and tier easy", d)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"inverted cuts", Config{LowConfidence: 0.5, LowCut: 0.9, HighCut: 0.6, Hysteresis: 0.01}, true},
		{"hysteresis too wide", Config{LowConfidence: 0.5, LowCut: 0.6, HighCut: 0.7, Hysteresis: 0.2}, true},
		{"confidence out of range", Config{LowConfidence: 1, LowCut: 0.6, HighCut: 0.8}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Center(t *testing.T) {
	cfg := DefaultConfig()
	want := map[Tier]float64{Easy: 0.325, Moderate: 0.75, Hard: 0.925}
	for tr, w := range want {
		if got := cfg.Center(tr); math.Abs(got-w) > 1e-12 {
			t.Errorf("Center(%s) = %v, want %v", tr, got, w)
		}
	}
}

func TestTier_TextRoundTrip(t *testing.T) {
	b, err := json.Marshal(map[string]Tier{"t": Moderate})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != `{"t":"moderate"}` {
		t.Errorf("json = %s", b)
	}
	var out map[string]Tier
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out["t"] != Moderate {
		t.Errorf("round trip = %s, want moderate", out["t"])
	}
	if _, err := Parse("extreme"); err == nil {
		t.Error("Parse(extreme) should fail")
	}
}
