package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/engine"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

func view(key proficiency.Key, alpha, beta float64, n int, t tier.Tier) engine.EstimateView {
	rec := proficiency.NewRecord(key, proficiency.DefaultPrior())
	rec.Alpha, rec.Beta, rec.SampleCount = alpha, beta, n
	rec.MeanAbility = alpha / (alpha + beta)
	rec.Confidence = proficiency.Confidence(alpha, beta, proficiency.DefaultPrior())
	return engine.EstimateView{Record: rec, Tier: t, HasTier: true}
}

func TestSummarize(t *testing.T) {
	views := []engine.EstimateView{
		view(proficiency.ItemKey("s1", "cat"), 3, 1, 2, tier.Easy),
		view(proficiency.ItemKey("s1", "dog"), 1, 3, 2, tier.Easy),
		view(proficiency.ItemKey("s1", "horse"), 1, 1, 0, tier.Easy),
		view(proficiency.ModuleKey("s1", "r1_vocab"), 3, 3, 4, tier.Moderate),
	}

	got, err := Summarize(views)
	require.NoError(t, err)
	require.Len(t, got, 2)

	items := got[0]
	assert.Equal(t, proficiency.LevelItem, items.Level)
	assert.Equal(t, 3, items.Records)
	assert.Equal(t, 2, items.Observed)
	assert.Equal(t, 4, items.Samples)
	assert.InDelta(t, 0.5, items.Mean, 1e-9)
	assert.InDelta(t, 0.5, items.Median, 1e-9)
	assert.InDelta(t, 0.25, items.StdDev, 1e-9)
	assert.InDelta(t, 0.25, items.Q25, 1e-9)
	assert.InDelta(t, 0.75, items.Q75, 1e-9)
	assert.Equal(t, 3, items.Tiers[tier.Easy])

	modules := got[1]
	assert.Equal(t, proficiency.LevelModule, modules.Level)
	assert.Equal(t, 1, modules.Tiers[tier.Moderate])
}

func TestSummarizeUnobserved(t *testing.T) {
	got, err := Summarize([]engine.EstimateView{
		{Record: proficiency.NewRecord(proficiency.DomainKey("s1", "reading"), proficiency.DefaultPrior())},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Observed)
	assert.Zero(t, got[0].Mean)
}

func TestRender(t *testing.T) {
	g := curriculum.New()
	require.NoError(t, g.Link("cat", "r1_vocab", "reading"))

	views := []engine.EstimateView{
		view(proficiency.ItemKey("s1", "cat"), 3, 1, 2, tier.Moderate),
	}
	summaries, err := Summarize(views)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "s1", g, views, summaries))
	out := buf.String()
	assert.Contains(t, out, "s1")
	assert.Contains(t, out, "ITEM")
	assert.Contains(t, out, "cat")
	assert.True(t, strings.Contains(out, "75%"), "output should show the mean as a percentage:\n%s", out)
}

func TestRenderEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "nobody", curriculum.New(), nil, nil))
	assert.Contains(t, buf.String(), "No records yet.")
}
