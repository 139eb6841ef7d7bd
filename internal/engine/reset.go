package engine

import (
	"context"
	"fmt"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
)

// Reset returns key and every stored record below it to the prior, clears
// their tiers, and re-pools the ancestors of key nearest first, all in one
// unit. Links between records survive. Resetting twice leaves the same
// state as resetting once.
func (s *Service) Reset(ctx context.Context, key proficiency.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	err := s.retry(ctx, "reset", func() error {
		keys, ancestors, err := s.resetScope(ctx, key)
		if err != nil {
			return err
		}

		return s.store.Update(ctx, keys, func(tx *store.Txn) error {
			e := s.entryOrPrior(tx, key)
			if err := tx.Put(e.ResetTo(proficiency.NewRecord(key, s.prior()))); err != nil {
				return err
			}
			if err := s.resetBelow(tx, e); err != nil {
				return err
			}
			for _, a := range ancestors {
				if _, ok := tx.Get(a); !ok {
					continue
				}
				if _, err := s.pool(tx, a, "", ""); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.log.Info("estimate reset", "key", key.String())
	return nil
}

// resetScope returns the keys a reset of key reads: key, its stored
// descendants, and each ancestor with the children it pools over. Ancestors
// are nearest first.
func (s *Service) resetScope(ctx context.Context, key proficiency.Key) ([]proficiency.Key, []proficiency.Key, error) {
	keys := []proficiency.Key{key}
	e, _, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}

	below := e.ChildKeys()
	for len(below) > 0 {
		k := below[0]
		below = below[1:]
		keys = append(keys, k)
		c, ok, err := s.store.Get(ctx, k)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			below = append(below, c.ChildKeys()...)
		}
	}

	var ancestors []proficiency.Key
	cur, curEntry := key, e
	for {
		level, ok := cur.Level.Parent()
		if !ok {
			break
		}
		id, ok := s.parentID(cur, curEntry)
		if !ok {
			break
		}
		a := proficiency.Key{StudentID: key.StudentID, Level: level, ID: id}
		ae, _, err := s.store.Get(ctx, a)
		if err != nil {
			return nil, nil, err
		}
		ancestors = append(ancestors, a)
		keys = append(keys, a)
		keys = append(keys, ae.ChildKeys()...)
		cur, curEntry = a, ae
	}
	return keys, ancestors, nil
}

// resetBelow resets every stored descendant of e. A child linked since the
// scope was read yields ErrConflict.
func (s *Service) resetBelow(tx *store.Txn, e store.Entry) error {
	for _, k := range e.ChildKeys() {
		if !tx.Declares(k) {
			return fmt.Errorf("%w: %s gained child %s", store.ErrConflict, e.Key, k.ID)
		}
		c, ok := tx.Get(k)
		if !ok {
			continue
		}
		if err := tx.Put(c.ResetTo(proficiency.NewRecord(k, s.prior()))); err != nil {
			return err
		}
		if err := s.resetBelow(tx, c); err != nil {
			return err
		}
	}
	return nil
}

// ResetStudent returns every stored record of a student to the prior.
func (s *Service) ResetStudent(ctx context.Context, studentID string) error {
	if studentID == "" {
		return &proficiency.ValidationError{Field: "student_id", Reason: "must not be empty"}
	}

	var n int
	err := s.retry(ctx, "reset student", func() error {
		entries, err := s.store.List(ctx, studentID)
		if err != nil {
			return err
		}
		keys := make([]proficiency.Key, 0, len(entries))
		for _, e := range entries {
			keys = append(keys, e.Key)
		}
		n = len(keys)
		if n == 0 {
			return nil
		}
		return s.store.Update(ctx, keys, func(tx *store.Txn) error {
			for _, k := range keys {
				e := s.entryOrPrior(tx, k)
				if err := tx.Put(e.ResetTo(proficiency.NewRecord(k, s.prior()))); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.log.Info("student reset", "student", studentID, "records", n)
	return nil
}
