// Package storetest holds the behavior every store.Store implementation
// must share.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// Opener returns a fresh, empty store. Cleanup is the opener's job.
type Opener func(t *testing.T) store.Store

// Run exercises s against the Store contract.
func Run(t *testing.T, open Opener) {
	t.Run("MissingKey", func(t *testing.T) { testMissingKey(t, open(t)) })
	t.Run("CommitAll", func(t *testing.T) { testCommitAll(t, open(t)) })
	t.Run("ErrorDiscards", func(t *testing.T) { testErrorDiscards(t, open(t)) })
	t.Run("UndeclaredKey", func(t *testing.T) { testUndeclaredKey(t, open(t)) })
	t.Run("ListAndStudents", func(t *testing.T) { testListAndStudents(t, open(t)) })
	t.Run("Overwrite", func(t *testing.T) { testOverwrite(t, open(t)) })
	t.Run("Links", func(t *testing.T) { testLinks(t, open(t)) })
	t.Run("ConcurrentIncrements", func(t *testing.T) { testConcurrentIncrements(t, open(t)) })
	t.Run("AtomicVisibility", func(t *testing.T) { testAtomicVisibility(t, open(t)) })
}

func entry(key proficiency.Key, alpha, beta float64, n int) store.Entry {
	rec := proficiency.NewRecord(key, proficiency.DefaultPrior())
	rec.Alpha, rec.Beta, rec.SampleCount = alpha, beta, n
	rec.MeanAbility = alpha / (alpha + beta)
	rec.Confidence = proficiency.Confidence(alpha, beta, proficiency.DefaultPrior())
	rec.LastUpdated = time.Date(2025, 3, 14, 15, 9, 26, 535897000, time.UTC)
	return store.Entry{Record: rec}
}

func put(t *testing.T, s store.Store, entries ...store.Entry) {
	t.Helper()
	keys := make([]proficiency.Key, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	err := s.Update(context.Background(), keys, func(tx *store.Txn) error {
		for _, e := range entries {
			if err := tx.Put(e); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func testMissingKey(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, ok, err := s.Get(ctx, proficiency.ItemKey("nobody", "x"))
	require.NoError(t, err)
	assert.False(t, ok)

	err = s.Update(ctx, []proficiency.Key{proficiency.ItemKey("nobody", "x")}, func(tx *store.Txn) error {
		_, ok := tx.Get(proficiency.ItemKey("nobody", "x"))
		assert.False(t, ok, "unwritten key must read as absent")
		return nil
	})
	require.NoError(t, err)

	list, err := s.List(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func testCommitAll(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := entry(proficiency.ItemKey("s1", "cat"), 2, 1, 1)
	mod := entry(proficiency.ModuleKey("s1", "m1"), 2, 1, 1)
	mod.Tier, mod.HasTier = tier.Hard, true
	put(t, s, item, mod)

	got, ok, err := s.Get(ctx, item.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item.Key, got.Key)
	assert.InDelta(t, 2.0, got.Alpha, 1e-12)
	assert.InDelta(t, 1.0, got.Beta, 1e-12)
	assert.Equal(t, 1, got.SampleCount)
	assert.True(t, item.LastUpdated.Equal(got.LastUpdated), "LastUpdated %v != %v", got.LastUpdated, item.LastUpdated)
	assert.False(t, got.HasTier)
	assert.Equal(t, tier.Easy, got.PreviousTier())

	got, ok, err = s.Get(ctx, mod.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.HasTier)
	assert.Equal(t, tier.Hard, got.PreviousTier())
}

func testErrorDiscards(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")
	key := proficiency.ItemKey("s1", "cat")
	err := s.Update(ctx, []proficiency.Key{key}, func(tx *store.Txn) error {
		if err := tx.Put(entry(key, 5, 1, 4)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "failed unit must not be visible")
}

func testUndeclaredKey(t *testing.T, s store.Store) {
	ctx := context.Background()
	err := s.Update(ctx, []proficiency.Key{proficiency.ItemKey("s1", "a")}, func(tx *store.Txn) error {
		return tx.Put(entry(proficiency.ItemKey("s1", "b"), 2, 1, 1))
	})
	assert.ErrorIs(t, err, store.ErrKeyNotInTxn)
}

func testListAndStudents(t *testing.T, s store.Store) {
	ctx := context.Background()
	put(t, s,
		entry(proficiency.DomainKey("s2", "reading"), 2, 2, 2),
		entry(proficiency.ModuleKey("s2", "m1"), 2, 2, 2),
		entry(proficiency.ItemKey("s2", "dog"), 1, 2, 1),
		entry(proficiency.ItemKey("s2", "cat"), 2, 1, 1),
	)
	put(t, s, entry(proficiency.ItemKey("s1", "cat"), 2, 1, 1))

	list, err := s.List(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, list, 4)
	want := []proficiency.Key{
		proficiency.ItemKey("s2", "cat"),
		proficiency.ItemKey("s2", "dog"),
		proficiency.ModuleKey("s2", "m1"),
		proficiency.DomainKey("s2", "reading"),
	}
	for i, k := range want {
		assert.Equal(t, k, list[i].Key, "position %d", i)
	}

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 5)

	students, err := s.Students(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, students)
}

func testOverwrite(t *testing.T, s store.Store) {
	ctx := context.Background()
	key := proficiency.ItemKey("s1", "cat")
	put(t, s, entry(key, 2, 1, 1))
	put(t, s, entry(key, 3, 1, 2))
	e := entry(key, 1, 1, 0)
	e.LastUpdated = time.Time{}
	put(t, s, e)

	got, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, got.SampleCount)
	assert.True(t, got.LastUpdated.IsZero(), "zero time must survive a round trip")
}

func testLinks(t *testing.T, s store.Store) {
	ctx := context.Background()
	item := entry(proficiency.ItemKey("s1", "cat"), 2, 1, 1)
	item.Parent = "vocab"
	mod := entry(proficiency.ModuleKey("s1", "vocab"), 2, 1, 1)
	mod.Parent = "reading"
	mod = mod.WithChild("dog").WithChild("cat")
	put(t, s, item, mod)

	got, ok, err := s.Get(ctx, item.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "vocab", got.Parent)
	assert.Empty(t, got.Children)

	got, ok, err = s.Get(ctx, mod.Key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "reading", got.Parent)
	assert.Equal(t, []string{"cat", "dog"}, got.Children)

	// Links are read back inside a unit of work too.
	err = s.Update(ctx, []proficiency.Key{mod.Key}, func(tx *store.Txn) error {
		e, ok := tx.Get(mod.Key)
		require.True(t, ok)
		assert.Equal(t, []string{"cat", "dog"}, e.Children)
		return tx.Put(e.WithChild("horse"))
	})
	require.NoError(t, err)

	list, err := s.List(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"cat", "dog", "horse"}, list[1].Children)
}

// increment retries on conflict the way the engine does.
func increment(ctx context.Context, s store.Store, keys []proficiency.Key) error {
	for attempt := 0; attempt < 500; attempt++ {
		err := s.Update(ctx, keys, func(tx *store.Txn) error {
			for _, k := range keys {
				e, ok := tx.Get(k)
				if !ok {
					e = store.Entry{Record: proficiency.NewRecord(k, proficiency.DefaultPrior())}
				}
				e.SampleCount++
				e.Alpha++
				if err := tx.Put(e); err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, store.ErrConflict) {
			time.Sleep(time.Duration(attempt%5) * time.Millisecond)
			continue
		}
		return err
	}
	return fmt.Errorf("gave up after repeated conflicts")
}

func testConcurrentIncrements(t *testing.T, s store.Store) {
	ctx := context.Background()
	shared := proficiency.ModuleKey("s1", "m1")
	const workers, perWorker = 8, 10

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			own := proficiency.ItemKey("s1", fmt.Sprintf("item-%d", w))
			for range perWorker {
				if err := increment(ctx, s, []proficiency.Key{own, shared}); err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, ok, err := s.Get(ctx, shared)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, workers*perWorker, got.SampleCount, "no increment may be lost")
}

func testAtomicVisibility(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := proficiency.ItemKey("s1", "a")
	b := proficiency.ModuleKey("s1", "m")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range 50 {
			if err := increment(ctx, s, []proficiency.Key{a, b}); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		list, err := s.List(ctx, "s1")
		require.NoError(t, err)
		if len(list) == 0 {
			continue
		}
		require.Len(t, list, 2, "both keys appear together")
		assert.Equal(t, list[0].SampleCount, list[1].SampleCount, "reader saw a partial unit")
	}
}

// RunEventLog exercises an EventLog implementation.
func RunEventLog(t *testing.T, log store.EventLog) {
	ctx := context.Background()
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, to := range []tier.Tier{tier.Moderate, tier.Hard, tier.Moderate} {
		err := log.AppendTierChange(ctx, store.TierChange{
			Key:  proficiency.ModuleKey("s1", "m1"),
			From: tier.Easy, To: to,
			Rule: tier.RuleBetweenCuts,
			Mean: 0.7, Confidence: 0.8,
			At: at.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
	}
	require.NoError(t, log.AppendTierChange(ctx, store.TierChange{Key: proficiency.ModuleKey("s2", "m1"), To: tier.Hard, At: at}))

	got, err := log.TierChanges(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, tier.Moderate, got[0].To, "newest first")
	assert.Equal(t, tier.Hard, got[1].To)
	assert.Greater(t, got[0].Sequence, got[1].Sequence)
	assert.NotEqual(t, got[0].ID, got[1].ID)
	assert.True(t, got[2].At.Equal(at))

	limited, err := log.TierChanges(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
