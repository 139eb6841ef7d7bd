package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/tier"
)

// ErrConflict is returned by Update when a concurrent writer changed one of
// the keys between read and commit. The caller may retry the whole unit.
var ErrConflict = errors.New("store: write conflict")

// ErrKeyNotInTxn is returned by Txn.Put for a key the transaction did not
// declare.
var ErrKeyNotInTxn = errors.New("store: key not declared in transaction")

// Entry is a persisted proficiency record plus the tier last served at its
// key and its links in the hierarchy.
type Entry struct {
	proficiency.Record
	Tier    tier.Tier `json:"tier"`
	HasTier bool      `json:"has_tier"`
	// Parent is the identifier one level up, empty when unlinked.
	Parent string `json:"parent,omitempty"`
	// Children holds the identifiers one level down that were ever linked
	// under this entry, sorted.
	Children []string `json:"children,omitempty"`
}

// ChildKeys returns the keys of the linked children.
func (e Entry) ChildKeys() []proficiency.Key {
	level, ok := e.Level.Child()
	if !ok {
		return nil
	}
	out := make([]proficiency.Key, 0, len(e.Children))
	for _, id := range e.Children {
		out = append(out, proficiency.Key{StudentID: e.StudentID, Level: level, ID: id})
	}
	return out
}

// WithChild returns a copy of e with id linked as a child. The stored
// slice is never modified in place.
func (e Entry) WithChild(id string) Entry {
	i, found := slices.BinarySearch(e.Children, id)
	if found {
		return e
	}
	e.Children = slices.Insert(slices.Clone(e.Children), i, id)
	return e
}

// ResetTo returns e with its record replaced by rec and its tier cleared.
// Links survive a reset.
func (e Entry) ResetTo(rec proficiency.Record) Entry {
	e.Record = rec
	e.Tier, e.HasTier = tier.Easy, false
	return e
}

// PreviousTier returns the stored tier, or easy when none was stored.
func (e Entry) PreviousTier() tier.Tier {
	if !e.HasTier || !e.Tier.Valid() {
		return tier.Easy
	}
	return e.Tier
}

// Store persists entries keyed by (student, level, identifier).
type Store interface {
	// Update runs fn over the entries of keys as one atomic read-modify-write
	// unit. Writes made through the Txn become visible together when fn
	// returns nil, and are discarded otherwise. A concurrent change to any
	// of the keys yields ErrConflict.
	Update(ctx context.Context, keys []proficiency.Key, fn func(*Txn) error) error

	// Get returns the entry at key. A missing entry is not an error.
	Get(ctx context.Context, key proficiency.Key) (Entry, bool, error)

	// List returns a student's entries ordered by level then identifier.
	// An empty studentID lists every student.
	List(ctx context.Context, studentID string) ([]Entry, error)

	// Students returns every student with at least one entry.
	Students(ctx context.Context) ([]string, error)

	Close() error
}

// TierChange records a served tier moving at one key.
type TierChange struct {
	ID         uuid.UUID       `json:"id"`
	Sequence   int64           `json:"sequence"`
	Key        proficiency.Key `json:"key"`
	From       tier.Tier       `json:"from"`
	To         tier.Tier       `json:"to"`
	Rule       string          `json:"rule"`
	Mean       float64         `json:"mean"`
	Confidence float64         `json:"confidence"`
	At         time.Time       `json:"at"`
}

// EventLog is implemented by stores that keep a tier-change history.
type EventLog interface {
	// AppendTierChange stores ev, assigning its sequence and, when unset,
	// its ID.
	AppendTierChange(ctx context.Context, ev TierChange) error

	// TierChanges returns a student's tier changes, newest first. Zero
	// limit means unlimited.
	TierChanges(ctx context.Context, studentID string, limit int) ([]TierChange, error)
}

// Txn is the view an Update callback works on. Reads of declared keys that
// have never been written report false.
type Txn struct {
	declared map[proficiency.Key]bool
	entries  map[proficiency.Key]Entry
	dirty    map[proficiency.Key]bool
}

// NewTxn builds the view an implementation hands to an Update callback:
// keys are the declared keys and loaded holds those that exist.
func NewTxn(keys []proficiency.Key, loaded map[proficiency.Key]Entry) *Txn {
	t := &Txn{
		declared: make(map[proficiency.Key]bool, len(keys)),
		entries:  make(map[proficiency.Key]Entry, len(loaded)),
		dirty:    make(map[proficiency.Key]bool),
	}
	for _, k := range keys {
		t.declared[k] = true
	}
	for k, e := range loaded {
		t.entries[k] = e
	}
	return t
}

// Get returns the entry at key as seen by this transaction.
func (t *Txn) Get(key proficiency.Key) (Entry, bool) {
	e, ok := t.entries[key]
	return e, ok
}

// Declares reports whether key was declared by this transaction.
func (t *Txn) Declares(key proficiency.Key) bool {
	return t.declared[key]
}

// Put stages e for commit.
func (t *Txn) Put(e Entry) error {
	if !t.declared[e.Key] {
		return fmt.Errorf("%w: %s", ErrKeyNotInTxn, e.Key)
	}
	t.entries[e.Key] = e
	t.dirty[e.Key] = true
	return nil
}

// Writes returns the staged entries in key order.
func (t *Txn) Writes() []Entry {
	out := make([]Entry, 0, len(t.dirty))
	for k := range t.dirty {
		out = append(out, t.entries[k])
	}
	slices.SortFunc(out, func(a, b Entry) int { return compareKeys(a.Key, b.Key) })
	return out
}

// SortedKeys deduplicates keys and orders them by level then identifier.
func SortedKeys(keys []proficiency.Key) []proficiency.Key {
	out := slices.Clone(keys)
	slices.SortFunc(out, compareKeys)
	return slices.Compact(out)
}

func compareKeys(a, b proficiency.Key) int {
	if c := strings.Compare(a.StudentID, b.StudentID); c != 0 {
		return c
	}
	if c := levelRank(a.Level) - levelRank(b.Level); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

func levelRank(l proficiency.Level) int {
	return slices.Index(proficiency.AllLevels(), l)
}

// SortEntries orders entries the way List returns them.
func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int { return compareKeys(a.Key, b.Key) })
}
