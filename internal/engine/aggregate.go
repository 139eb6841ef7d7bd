package engine

import (
	"context"
	"fmt"

	"github.com/brfoley76/PromptingHumanAgent/internal/curriculum"
	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
	"github.com/brfoley76/PromptingHumanAgent/internal/store"
)

// SkippedLevel reports an aggregation level that could not be resolved for
// an outcome.
type SkippedLevel struct {
	Level  proficiency.Level `json:"level"`
	Reason string            `json:"reason"`
}

// path is the resolved chain of keys an outcome touches, plus every key
// the unit of work reads.
type path struct {
	item      proficiency.Key
	module    proficiency.Key
	domain    proficiency.Key
	hasModule bool
	hasDomain bool
	skipped   []SkippedLevel
	keys      []proficiency.Key
}

// learn adds the identifiers the outcome carries to the in-process
// curriculum. Conflicting links keep the existing parent.
func (s *Service) learn(o proficiency.Outcome) string {
	itemID := o.ItemID
	if itemID == "" {
		itemID = curriculum.DirectItemID(o.ModuleID)
	}
	if err := s.graph.Link(itemID, o.ModuleID, ""); err != nil {
		s.log.Warn("conflicting item linkage ignored", "student", o.StudentID, "error", err)
	}
	if err := s.graph.Link("", o.ModuleID, o.DomainID); err != nil {
		s.log.Warn("conflicting module linkage ignored", "student", o.StudentID, "error", err)
	}
	return itemID
}

// parentID returns the identifier above key. The link stored on the entry
// wins over the curriculum.
func (s *Service) parentID(key proficiency.Key, e store.Entry) (string, bool) {
	if e.Parent != "" {
		return e.Parent, true
	}
	return s.graph.Parent(key.Level, key.ID)
}

// resolve walks item → module → domain as far as the stored and curriculum
// links go, and collects the siblings each parent pools over from the
// children stored on it. A stored link keeps its parent when the outcome
// names another.
func (s *Service) resolve(ctx context.Context, o proficiency.Outcome, itemID string) (path, error) {
	studentID := o.StudentID
	p := path{item: proficiency.ItemKey(studentID, itemID)}
	p.keys = append(p.keys, p.item)

	item, _, err := s.store.Get(ctx, p.item)
	if err != nil {
		return p, err
	}
	moduleID, ok := s.parentID(p.item, item)
	if !ok {
		p.skip(proficiency.LevelModule, "item "+itemID+" has no module")
		p.skip(proficiency.LevelDomain, "item "+itemID+" has no module")
		return p, nil
	}
	if o.ModuleID != "" && o.ModuleID != moduleID {
		s.log.Warn("conflicting item linkage ignored", "student", studentID, "item", itemID, "module", moduleID, "proposed", o.ModuleID)
	}
	p.module, p.hasModule = proficiency.ModuleKey(studentID, moduleID), true

	mod, _, err := s.store.Get(ctx, p.module)
	if err != nil {
		return p, err
	}
	p.keys = append(p.keys, p.module)
	p.keys = append(p.keys, mod.ChildKeys()...)

	domainID, ok := s.parentID(p.module, mod)
	if !ok {
		p.skip(proficiency.LevelDomain, "module "+moduleID+" has no domain")
		return p, nil
	}
	if o.DomainID != "" && o.DomainID != domainID {
		s.log.Warn("conflicting module linkage ignored", "student", studentID, "module", moduleID, "domain", domainID, "proposed", o.DomainID)
	}
	p.domain, p.hasDomain = proficiency.DomainKey(studentID, domainID), true

	dom, _, err := s.store.Get(ctx, p.domain)
	if err != nil {
		return p, err
	}
	p.keys = append(p.keys, p.domain)
	p.keys = append(p.keys, dom.ChildKeys()...)
	return p, nil
}

func (p *path) skip(level proficiency.Level, reason string) {
	p.skipped = append(p.skipped, SkippedLevel{Level: level, Reason: reason})
}

// tuningKey returns the key at level, or the coarsest resolved key below it.
func (p path) tuningKey(level proficiency.Level) proficiency.Key {
	switch {
	case level == proficiency.LevelDomain && p.hasDomain:
		return p.domain
	case level != proficiency.LevelItem && p.hasModule:
		return p.module
	}
	return p.item
}

// link stages child's parent link. A child already linked elsewhere means
// another writer linked it after the path was resolved.
func link(child store.Entry, parentID string) (store.Entry, error) {
	switch child.Parent {
	case "":
		child.Parent = parentID
	case parentID:
	default:
		return child, fmt.Errorf("%w: %s moved under %s", store.ErrConflict, child.Key, child.Parent)
	}
	return child, nil
}

// pool links child under parent, recomputes parent from its observed
// children in the transaction and stages it. Every stored child must be
// declared; a child added since the path was resolved yields ErrConflict
// so the unit is retried with the larger set. Empty child re-pools without
// linking.
func (s *Service) pool(tx *store.Txn, parent proficiency.Key, child, grandparent string) (proficiency.Record, error) {
	e := s.entryOrPrior(tx, parent)
	if child != "" {
		e = e.WithChild(child)
	}
	if grandparent != "" {
		var err error
		if e, err = link(e, grandparent); err != nil {
			return proficiency.Record{}, err
		}
	}

	childKeys := e.ChildKeys()
	children := make([]proficiency.Record, 0, len(childKeys))
	for _, k := range childKeys {
		if !tx.Declares(k) {
			return proficiency.Record{}, fmt.Errorf("%w: %s gained child %s", store.ErrConflict, parent, k.ID)
		}
		c, ok := tx.Get(k)
		if ok && c.SampleCount > 0 {
			children = append(children, c.Record)
		}
	}
	e.Record = proficiency.Pool(parent, children, s.prior())
	if err := tx.Put(e); err != nil {
		return proficiency.Record{}, err
	}
	return e.Record, nil
}
