package curriculum

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/brfoley76/PromptingHumanAgent/internal/proficiency"
)

// LinkConflictError is returned when a link would give a child a second
// parent.
type LinkConflictError struct {
	Child    string
	Existing string
	Proposed string
}

func (e *LinkConflictError) Error() string {
	return fmt.Sprintf("%q already belongs to %q, cannot link to %q", e.Child, e.Existing, e.Proposed)
}

// Graph is the explicit parent/child lookup between items, modules and
// domains. It is safe for concurrent use; links learned at runtime are
// added with Link.
type Graph struct {
	mu            sync.RWMutex
	itemModule    map[string]string
	moduleDomain  map[string]string
	moduleItems   map[string][]string
	domainModules map[string][]string
	names         map[proficiency.Level]map[string]string
	optional      map[string][]string
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		itemModule:    make(map[string]string),
		moduleDomain:  make(map[string]string),
		moduleItems:   make(map[string][]string),
		domainModules: make(map[string][]string),
		names: map[proficiency.Level]map[string]string{
			proficiency.LevelItem:   {},
			proficiency.LevelModule: {},
			proficiency.LevelDomain: {},
		},
		optional: make(map[string][]string),
	}
}

// FromDocument validates doc and builds its graph.
func FromDocument(doc Document) (*Graph, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	g := New()
	for _, dom := range doc.Domains {
		g.addDomain(dom.ID)
		if dom.Name != "" {
			g.names[proficiency.LevelDomain][dom.ID] = dom.Name
		}
		for _, m := range dom.Modules {
			if err := g.Link("", m.ID, dom.ID); err != nil {
				return nil, err
			}
			if m.Name != "" {
				g.names[proficiency.LevelModule][m.ID] = m.Name
			}
			g.optional[m.ID] = slices.Clone(m.OptionalActivities)
			for _, it := range m.Items {
				if err := g.Link(it, m.ID, ""); err != nil {
					return nil, err
				}
			}
		}
	}
	return g, nil
}

func (g *Graph) addDomain(id string) {
	if _, ok := g.domainModules[id]; !ok {
		g.domainModules[id] = nil
	}
}

// Link records that itemID belongs to moduleID and moduleID belongs to
// domainID. Empty identifiers are ignored, so an outcome carrying only some
// of its linkage can be linked as far as it goes. Relinking to the same
// parent is a no-op; linking to a different parent fails.
func (g *Graph) Link(itemID, moduleID, domainID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if itemID != "" && moduleID != "" {
		if cur, ok := g.itemModule[itemID]; ok && cur != moduleID {
			return &LinkConflictError{Child: itemID, Existing: cur, Proposed: moduleID}
		}
	}
	if moduleID != "" && domainID != "" {
		if cur, ok := g.moduleDomain[moduleID]; ok && cur != domainID {
			return &LinkConflictError{Child: moduleID, Existing: cur, Proposed: domainID}
		}
	}

	if itemID != "" && moduleID != "" {
		if _, ok := g.itemModule[itemID]; !ok {
			g.itemModule[itemID] = moduleID
			g.moduleItems[moduleID] = insertSorted(g.moduleItems[moduleID], itemID)
		}
	}
	if moduleID != "" {
		if _, ok := g.moduleItems[moduleID]; !ok {
			g.moduleItems[moduleID] = nil
		}
	}
	if moduleID != "" && domainID != "" {
		if _, ok := g.moduleDomain[moduleID]; !ok {
			g.moduleDomain[moduleID] = domainID
			g.domainModules[domainID] = insertSorted(g.domainModules[domainID], moduleID)
		}
	}
	if domainID != "" {
		g.addDomain(domainID)
	}
	return nil
}

func insertSorted(s []string, v string) []string {
	i, found := slices.BinarySearch(s, v)
	if found {
		return s
	}
	return slices.Insert(s, i, v)
}

// ModuleOf returns the module an item belongs to.
func (g *Graph) ModuleOf(itemID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.itemModule[itemID]
	return m, ok
}

// DomainOf returns the domain a module belongs to.
func (g *Graph) DomainOf(moduleID string) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	d, ok := g.moduleDomain[moduleID]
	return d, ok
}

// ItemsOf returns the items of a module in sorted order, including the
// module's direct item once it has been linked.
func (g *Graph) ItemsOf(moduleID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.moduleItems[moduleID])
}

// ModulesOf returns the modules of a domain in sorted order.
func (g *Graph) ModulesOf(domainID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.domainModules[domainID])
}

// Domains returns every known domain in sorted order.
func (g *Graph) Domains() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.domainModules))
	for d := range g.domainModules {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Modules returns every known module in sorted order.
func (g *Graph) Modules() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]string, 0, len(g.moduleItems))
	for m := range g.moduleItems {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Parent returns the identifier one level above (level, id).
func (g *Graph) Parent(level proficiency.Level, id string) (string, bool) {
	switch level {
	case proficiency.LevelItem:
		return g.ModuleOf(id)
	case proficiency.LevelModule:
		return g.DomainOf(id)
	}
	return "", false
}

// Name returns the display name of a node, or its identifier when none was
// given.
func (g *Graph) Name(level proficiency.Level, id string) string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if n, ok := g.names[level][id]; ok {
		return n
	}
	return id
}

// IsOptional reports whether activity may be skipped in moduleID.
func (g *Graph) IsOptional(moduleID, activity string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Contains(g.optional[moduleID], activity)
}

// Optional returns the activities that may be skipped in moduleID.
func (g *Graph) Optional(moduleID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.optional[moduleID])
}
