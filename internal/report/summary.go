// Package report summarizes and renders a student's proficiency records.
package report

import (
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// LevelSummary describes the spread of observed estimates at one level.
type LevelSummary struct {
	Level    proficiency.Level `json:"level"`
	Records  int               `json:"records"`
	Observed int               `json:"observed"`
	Samples  int               `json:"samples"`

	// The fields below cover observed records only.
	Mean           float64           `json:"mean"`
	Median         float64           `json:"median"`
	StdDev         float64           `json:"std_dev"`
	Q25            float64           `json:"q25"`
	Q75            float64           `json:"q75"`
	MeanConfidence float64           `json:"mean_confidence"`
	Tiers          map[tier.Tier]int `json:"tiers"`
}

// Summarize groups views by level, finest first. Levels without records
// are omitted.
func Summarize(views []engine.EstimateView) ([]LevelSummary, error) {
	var out []LevelSummary
	for _, level := range proficiency.AllLevels() {
		s := LevelSummary{Level: level, Tiers: make(map[tier.Tier]int)}
		var means, confs []float64
		for _, v := range views {
			if v.Level != level {
				continue
			}
			s.Records++
			if v.HasTier {
				s.Tiers[v.Tier]++
			}
			if v.SampleCount == 0 {
				continue
			}
			s.Observed++
			s.Samples += v.SampleCount
			means = append(means, v.MeanAbility)
			confs = append(confs, v.Confidence)
		}
		if s.Records == 0 {
			continue
		}
		if err := s.describe(means, confs); err != nil {
			return nil, fmt.Errorf("summarize %s: %w", level, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (s *LevelSummary) describe(means, confs []float64) error {
	if len(means) == 0 {
		return nil
	}
	var err error
	if s.Mean, err = stats.Mean(means); err != nil {
		return err
	}
	if s.Median, err = stats.Median(means); err != nil {
		return err
	}
	if s.StdDev, err = stats.StandardDeviation(means); err != nil {
		return err
	}
	if s.Q25, err = stats.PercentileNearestRank(means, 25); err != nil {
		return err
	}
	if s.Q75, err = stats.PercentileNearestRank(means, 75); err != nil {
		return err
	}
	if s.MeanConfidence, err = stats.Mean(confs); err != nil {
		return err
	}
	return nil
}
