package engine

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/progression"
	"github.com/brfoley76/PromptingHumanAgent/internal/tuning"
)

func record(t *testing.T, svc *Service, attempts ...Attempt) {
	t.Helper()
	for _, a := range attempts {
		if _, err := svc.RecordAttempt(context.Background(), a); err != nil {
			t.Fatalf("RecordAttempt(%+v): %v", a.Outcome, err)
		}
	}
}

func TestRecordBatch(t *testing.T) {
	svc := newTestService(t, nil)

	attempts := []Attempt{
		correct("a", "cat", true),
		correct("b", "3x4", false),
		correct("a", "cat", true),
		{Outcome: proficiency.Outcome{StudentID: "b", ItemID: "6x7", Score: 2}},
		correct("a", "cat", false),
	}
	results, err := svc.RecordBatch(context.Background(), attempts)
	if err != nil {
		t.Fatalf("RecordBatch: %v", err)
	}
	if len(results) != len(attempts) {
		t.Fatalf("got %d results, want %d", len(results), len(attempts))
	}

	for i, r := range results {
		if i == 3 {
			var verr *proficiency.ValidationError
			if !errors.As(r.Err, &verr) {
				t.Errorf("results[3].Err = %v, want *ValidationError", r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v", i, r.Err)
		}
	}

	// Attempts of one student apply in input order.
	for i, want := range map[int]int{0: 1, 2: 2, 4: 3} {
		if n := results[i].Result.Updated[0].SampleCount; n != want {
			t.Errorf("results[%d] SampleCount = %d, want %d", i, n, want)
		}
	}
	if got := results[4].Result.Updated[0]; got.Alpha != 3 || got.Beta != 2 {
		t.Errorf("cat = (%v, %v), want (3, 2)", got.Alpha, got.Beta)
	}
}

func TestRecordBatchCanceled(t *testing.T) {
	svc := newTestService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.RecordBatch(ctx, []Attempt{correct("a", "cat", true)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestReset(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	record(t, svc, correct("s1", "cat", true), correct("s1", "dog", false), correct("s1", "passage_1", true))

	if err := svc.Reset(ctx, proficiency.ItemKey("s1", "cat")); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	cat, err := svc.Estimate(ctx, proficiency.ItemKey("s1", "cat"))
	if err != nil {
		t.Fatal(err)
	}
	if !cat.IsPrior(svc.prior()) {
		t.Errorf("cat = %+v, want the prior", cat.Record)
	}

	// The module now pools dog alone.
	mod, err := svc.Estimate(ctx, proficiency.ModuleKey("s1", "r1_vocab"))
	if err != nil {
		t.Fatal(err)
	}
	if mod.Alpha != 1 || mod.Beta != 2 || mod.SampleCount != 1 {
		t.Errorf("module = (%v, %v, n=%d), want (1, 2, n=1)", mod.Alpha, mod.Beta, mod.SampleCount)
	}

	// The domain pools r1_vocab (1, 2) and r1_fluency (2, 1).
	dom, err := svc.Estimate(ctx, proficiency.DomainKey("s1", "reading"))
	if err != nil {
		t.Fatal(err)
	}
	if dom.Alpha != 2 || dom.Beta != 2 || dom.SampleCount != 2 {
		t.Errorf("domain = (%v, %v, n=%d), want (2, 2, n=2)", dom.Alpha, dom.Beta, dom.SampleCount)
	}
}

func TestResetModuleResetsDescendants(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	record(t, svc, correct("s1", "cat", true), correct("s1", "dog", true))

	if err := svc.Reset(ctx, proficiency.ModuleKey("s1", "r1_vocab")); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	report, err := svc.Report(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range report {
		if e.SampleCount != 0 {
			t.Errorf("%v SampleCount = %d, want 0", e.Key, e.SampleCount)
		}
	}
	// Unobserved items are not created.
	if _, ok, _ := svc.store.Get(ctx, proficiency.ItemKey("s1", "horse")); ok {
		t.Error("horse should not have been written")
	}
}

func TestResetIdempotent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	record(t, svc, correct("s1", "cat", true), correct("s1", "dog", false), correct("s1", "cat", true))

	key := proficiency.ItemKey("s1", "cat")
	if err := svc.Reset(ctx, key); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	once, err := svc.Report(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Reset(ctx, key); err != nil {
		t.Fatalf("second Reset: %v", err)
	}
	twice, err := svc.Report(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second reset changed state:\n once: %+v\ntwice: %+v", once, twice)
	}
}

func TestResetUnknownKey(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	if err := svc.Reset(ctx, proficiency.ItemKey("s9", "never")); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	e, ok, err := svc.store.Get(ctx, proficiency.ItemKey("s9", "never"))
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if e.MeanAbility != 0.5 || e.HasTier {
		t.Errorf("entry = %+v, want a prior without tier", e)
	}

	if err := svc.Reset(ctx, proficiency.Key{StudentID: "s9", Level: "course", ID: "x"}); err == nil {
		t.Error("Reset with unknown level should fail")
	}
}

func TestResetStudent(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	record(t, svc, correct("s1", "cat", true), correct("s1", "3x4", true), correct("s2", "cat", true))

	for range 2 {
		if err := svc.ResetStudent(ctx, "s1"); err != nil {
			t.Fatalf("ResetStudent: %v", err)
		}
	}
	report, err := svc.Report(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(report) == 0 {
		t.Fatal("report is empty")
	}
	for _, e := range report {
		if !e.IsPrior(svc.prior()) || e.HasTier {
			t.Errorf("%v = %+v, want the prior without tier", e.Key, e)
		}
	}

	other, err := svc.Estimate(ctx, proficiency.ItemKey("s2", "cat"))
	if err != nil {
		t.Fatal(err)
	}
	if other.SampleCount != 1 {
		t.Errorf("s2 was reset too: %+v", other.Record)
	}
}

func TestEstimatePrior(t *testing.T) {
	svc := newTestService(t, nil)

	e, err := svc.Estimate(context.Background(), proficiency.ModuleKey("nobody", "r1_vocab"))
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if e.MeanAbility != 0.5 || e.Confidence != 0 {
		t.Errorf("Estimate = %+v, want the prior", e.Record)
	}
	if math.Abs(e.Lower-0.05) > 1e-6 || math.Abs(e.Upper-0.95) > 1e-6 {
		t.Errorf("interval = [%v, %v], want [0.05, 0.95]", e.Lower, e.Upper)
	}
	if _, ok, _ := svc.store.Get(context.Background(), e.Key); ok {
		t.Error("Estimate must not write")
	}
}

func TestRecommend(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()
	record(t, svc,
		correct("s1", "dog", false), correct("s1", "dog", false),
		correct("s1", "cat", true),
		correct("s1", "horse", false),
		correct("s1", "rabbit", true), correct("s1", "rabbit", true),
	)

	rec, err := svc.Recommend(ctx, RecommendRequest{StudentID: "s1", ModuleID: "r1_vocab"})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	var focus []string
	for _, f := range rec.FocusItems {
		focus = append(focus, f.ItemID)
	}
	if want := []string{"dog", "horse", "cat"}; !reflect.DeepEqual(focus, want) {
		t.Errorf("FocusItems = %v, want %v", focus, want)
	}
	if rec.Activity != tuning.MultipleChoice {
		t.Errorf("Activity = %q, want %q", rec.Activity, tuning.MultipleChoice)
	}
	if rec.Mastered || rec.SkipSuggested || rec.Complete {
		t.Errorf("flags = mastered %v skip %v complete %v, want all false", rec.Mastered, rec.SkipSuggested, rec.Complete)
	}
	if !reflect.DeepEqual(rec.Unlocked, []tuning.ActivityType{tuning.MultipleChoice}) {
		t.Errorf("Unlocked = %v", rec.Unlocked)
	}
	if rec.Settings == nil || rec.Settings.Activity != tuning.MultipleChoice {
		t.Errorf("Settings = %+v", rec.Settings)
	}
	// Mean 0.5 is below every shortened session.
	if rec.NumQuestions != 10 {
		t.Errorf("NumQuestions = %d, want 10", rec.NumQuestions)
	}
}

func TestRecommendShortensSessionWhenConfident(t *testing.T) {
	svc := newTestService(t, nil)
	for range 10 {
		record(t, svc, correct("s1", "cat", true))
	}

	// Multiple choice is not optional in r1_vocab, so no skip is offered.
	rec, err := svc.Recommend(context.Background(), RecommendRequest{
		StudentID: "s1",
		ModuleID:  "r1_vocab",
		Activity:  tuning.MultipleChoice,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.SkipSuggested {
		t.Fatal("SkipSuggested = true for a required activity")
	}
	// (11, 1): mean 0.917, confidence 0.909.
	if rec.NumQuestions != 5 {
		t.Errorf("NumQuestions = %d, want 5 (mean %.3f, confidence %.3f)",
			rec.NumQuestions, rec.Estimate.MeanAbility, rec.Estimate.Confidence)
	}
}

func TestRecommendMastered(t *testing.T) {
	svc := newTestService(t, nil)
	for range 10 {
		record(t, svc, correct("s1", "cat", true))
	}

	rec, err := svc.Recommend(context.Background(), RecommendRequest{
		StudentID: "s1",
		ModuleID:  "r1_vocab",
		Activity:  tuning.BubblePop,
	})
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !rec.Mastered {
		t.Errorf("Mastered = false at mean %.3f", rec.Estimate.MeanAbility)
	}
	if !rec.SkipSuggested {
		t.Error("bubble_pop is optional in r1_vocab and should be skippable")
	}
	if len(rec.FocusItems) != 0 {
		t.Errorf("FocusItems = %+v, want none", rec.FocusItems)
	}
	if rec.NumQuestions != 0 {
		t.Errorf("NumQuestions = %d, want 0 when skipping", rec.NumQuestions)
	}
	if rec.Next != tuning.FluentReading {
		t.Errorf("Next = %q, want %q", rec.Next, tuning.FluentReading)
	}
	if rec.Progress != progression.Progress(rec.Estimate.MeanAbility) {
		t.Errorf("Progress = %v", rec.Progress)
	}
}

func TestRecommendValidates(t *testing.T) {
	svc := newTestService(t, nil)
	for _, r := range []RecommendRequest{
		{ModuleID: "r1_vocab"},
		{StudentID: "s1"},
	} {
		if _, err := svc.Recommend(context.Background(), r); err == nil {
			t.Errorf("Recommend(%+v) should fail", r)
		}
	}
}
