package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
)

// newBareService returns a service that knows no curriculum, the way a
// fresh process without a curriculum file starts.
func newBareService(t *testing.T, st store.Store) *Service {
	t.Helper()
	svc, err := New(Options{
		Store:      st,
		Curriculum: curriculum.New(),
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:        func() time.Time { return testNow },
		Retry: RetryConfig{
			MaxAttempts: 5,
			InitialWait: time.Microsecond,
			MaxWait:     time.Microsecond,
			Multiplier:  1,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func linked(student, item, module, domain string) Attempt {
	a := correct(student, item, true)
	a.ModuleID, a.DomainID = module, domain
	return a
}

func mustGet(t *testing.T, st store.Store, key proficiency.Key) store.Entry {
	t.Helper()
	e, ok, err := st.Get(context.Background(), key)
	if err != nil || !ok {
		t.Fatalf("Get %v: ok=%v err=%v", key, ok, err)
	}
	return e
}

func TestServicesSharingStorePoolTogether(t *testing.T) {
	st := store.NewMemory()
	first, second := newBareService(t, st), newBareService(t, st)

	record(t, first, linked("s1", "a", "m", "d"))
	record(t, second, linked("s1", "b", "m", "d"))

	mod := mustGet(t, st, proficiency.ModuleKey("s1", "m"))
	if mod.SampleCount != 2 || !approx(mod.Alpha+mod.Beta, 4) {
		t.Errorf("module = (%v, %v, n=%d), want mass 4 over 2 samples", mod.Alpha, mod.Beta, mod.SampleCount)
	}
	if mod.Parent != "d" || len(mod.Children) != 2 {
		t.Errorf("module links = parent %q children %v", mod.Parent, mod.Children)
	}

	// A third instance reaches the module through the stored item link.
	third := newBareService(t, st)
	res, err := third.RecordAttempt(context.Background(), correct("s1", "a", false))
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if len(res.Skipped) != 0 || len(res.Updated) != 3 {
		t.Fatalf("Updated = %d, Skipped = %+v; want item, module and domain", len(res.Updated), res.Skipped)
	}
	if dom := mustGet(t, st, proficiency.DomainKey("s1", "d")); dom.SampleCount != 3 {
		t.Errorf("domain SampleCount = %d, want 3", dom.SampleCount)
	}
}

func TestResetFromFreshService(t *testing.T) {
	st := store.NewMemory()
	record(t, newBareService(t, st),
		linked("s1", "a", "m", "d"),
		linked("s1", "b", "m", "d"),
		linked("s1", "x", "other", "d"),
	)

	fresh := newBareService(t, st)
	if err := fresh.Reset(context.Background(), proficiency.ModuleKey("s1", "m")); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		if e := mustGet(t, st, proficiency.ItemKey("s1", id)); e.SampleCount != 0 {
			t.Errorf("item %s SampleCount = %d, want 0", id, e.SampleCount)
		}
	}
	// The domain now pools the untouched module alone.
	dom := mustGet(t, st, proficiency.DomainKey("s1", "d"))
	if dom.SampleCount != 1 || dom.Alpha != 2 || dom.Beta != 1 {
		t.Errorf("domain = (%v, %v, n=%d), want (2, 1, n=1)", dom.Alpha, dom.Beta, dom.SampleCount)
	}

	if err := fresh.Reset(context.Background(), proficiency.ItemKey("s1", "x")); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if dom := mustGet(t, st, proficiency.DomainKey("s1", "d")); dom.SampleCount != 0 {
		t.Errorf("domain SampleCount = %d, want 0", dom.SampleCount)
	}
	// Links survive the reset.
	if a := mustGet(t, st, proficiency.ItemKey("s1", "a")); a.Parent != "m" {
		t.Errorf("item a parent = %q, want m", a.Parent)
	}
}

func TestSQLiteLinksSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.db")
	ctx := context.Background()

	st, err := store.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	record(t, newBareService(t, st),
		linked("s1", "a", "m", "d"),
		Attempt{Outcome: proficiency.Outcome{StudentID: "s1", ModuleID: "m", Score: 0.5}},
	)
	st.Close()

	st, err = store.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()

	// Only the module is named; the domain comes from the stored link.
	b := correct("s1", "b", true)
	b.ModuleID = "m"
	res, err := newBareService(t, st).RecordAttempt(ctx, b)
	if err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if len(res.Skipped) != 0 {
		t.Errorf("Skipped = %+v, want none", res.Skipped)
	}

	mod := mustGet(t, st, proficiency.ModuleKey("s1", "m"))
	want := []string{"a", "b", curriculum.DirectItemID("m")}
	if mod.SampleCount != 3 || len(mod.Children) != len(want) {
		t.Fatalf("module n=%d children %v, want n=3 children %v", mod.SampleCount, mod.Children, want)
	}
	for i := range want {
		if mod.Children[i] != want[i] {
			t.Errorf("children = %v, want %v", mod.Children, want)
			break
		}
	}
	if dom := mustGet(t, st, proficiency.DomainKey("s1", "d")); dom.SampleCount != 3 {
		t.Errorf("domain SampleCount = %d, want 3", dom.SampleCount)
	}
}

// interleavingStore runs before once, just ahead of the first Update.
type interleavingStore struct {
	store.Store
	once   sync.Once
	before func()
}

func (s *interleavingStore) Update(ctx context.Context, keys []proficiency.Key, fn func(*store.Txn) error) error {
	s.once.Do(s.before)
	return s.Store.Update(ctx, keys, fn)
}

func TestRecordAttemptSiblingLinkedMeanwhile(t *testing.T) {
	mem := store.NewMemory()
	other := newBareService(t, mem)
	wrapped := &interleavingStore{Store: mem}
	wrapped.before = func() {
		if _, err := other.RecordAttempt(context.Background(), linked("s1", "b", "m", "d")); err != nil {
			t.Errorf("sibling RecordAttempt: %v", err)
		}
	}
	svc := newBareService(t, wrapped)

	record(t, svc, linked("s1", "a", "m", "d"))

	mod := mustGet(t, mem, proficiency.ModuleKey("s1", "m"))
	if mod.SampleCount != 2 || !approx(mod.Alpha+mod.Beta, 4) {
		t.Errorf("module = (%v, %v, n=%d), want mass 4 over 2 samples", mod.Alpha, mod.Beta, mod.SampleCount)
	}
	if dom := mustGet(t, mem, proficiency.DomainKey("s1", "d")); dom.SampleCount != 2 {
		t.Errorf("domain SampleCount = %d, want 2", dom.SampleCount)
	}
}
