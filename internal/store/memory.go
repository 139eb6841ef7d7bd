package store

import (
	"context"
	"hash/fnv"
	"slices"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
)

const memoryStripes = 64

// Memory is an in-process Store. Updates over disjoint keys run in
// parallel; each commit is applied under a single lock so readers never
// observe half of a unit.
type Memory struct {
	stripes [memoryStripes]sync.Mutex

	mu      sync.RWMutex
	entries map[proficiency.Key]Entry
	events  []TierChange
	seq     int64
}

var (
	_ Store    = (*Memory)(nil)
	_ EventLog = (*Memory)(nil)
)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[proficiency.Key]Entry)}
}

func stripeOf(k proficiency.Key) int {
	h := fnv.New32a()
	h.Write([]byte(k.String()))
	return int(h.Sum32() % memoryStripes)
}

func (m *Memory) Update(ctx context.Context, keys []proficiency.Key, fn func(*Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	keys = SortedKeys(keys)

	// Lock stripes in ascending order so overlapping units cannot deadlock.
	idx := make([]int, 0, len(keys))
	for _, k := range keys {
		idx = append(idx, stripeOf(k))
	}
	slices.Sort(idx)
	idx = slices.Compact(idx)
	for _, i := range idx {
		m.stripes[i].Lock()
	}
	defer func() {
		for _, i := range slices.Backward(idx) {
			m.stripes[i].Unlock()
		}
	}()

	m.mu.RLock()
	loaded := make(map[proficiency.Key]Entry, len(keys))
	for _, k := range keys {
		if e, ok := m.entries[k]; ok {
			loaded[k] = e
		}
	}
	m.mu.RUnlock()

	txn := NewTxn(keys, loaded)
	if err := fn(txn); err != nil {
		return err
	}

	m.mu.Lock()
	for _, e := range txn.Writes() {
		m.entries[e.Key] = e
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(ctx context.Context, key proficiency.Key) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory) List(ctx context.Context, studentID string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for k, e := range m.entries {
		if studentID == "" || k.StudentID == studentID {
			out = append(out, e)
		}
	}
	SortEntries(out)
	return out, nil
}

func (m *Memory) Students(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	for k := range m.entries {
		seen[k.StudentID] = true
	}
	out := make([]string, 0, len(seen))
	for s := range seen {
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) AppendTierChange(ctx context.Context, ev TierChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	ev.Sequence = m.seq
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *Memory) TierChanges(ctx context.Context, studentID string, limit int) ([]TierChange, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TierChange
	for _, ev := range slices.Backward(m.events) {
		if ev.Key.StudentID != studentID {
			continue
		}
		out = append(out, ev)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
