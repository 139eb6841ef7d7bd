package curriculum

import (
	"fmt"
	"strings"
)

// directSuffix marks the synthetic item that holds a module's own outcomes.
const directSuffix = "#direct"

// DirectItemID returns the synthetic item that collects outcomes reported
// against a module without naming an item.
func DirectItemID(moduleID string) string {
	return moduleID + directSuffix
}

// IsDirect reports whether itemID is a synthetic direct item.
func IsDirect(itemID string) bool {
	return strings.HasSuffix(itemID, directSuffix)
}

// Document is the on-disk curriculum: domains containing modules
// containing items.
type Document struct {
	Domains []Domain `json:"domains"`
}

// Domain is a subject area, e.g. vocabulary or reading.
type Domain struct {
	ID      string   `json:"id"`
	Name    string   `json:"name,omitempty"`
	Modules []Module `json:"modules"`
}

// Module is a unit of study within a domain.
type Module struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Items []string `json:"items,omitempty"`
	// OptionalActivities may be skipped once the module is well mastered.
	OptionalActivities []string `json:"optional_activities,omitempty"`
}

// Validate performs structural checks on the document and returns every
// problem found.
func (d Document) Validate() error {
	var errs []string

	domains := make(map[string]bool)
	modules := make(map[string]string)
	items := make(map[string]string)

	for _, dom := range d.Domains {
		if dom.ID == "" {
			errs = append(errs, "domain with empty ID")
			continue
		}
		if domains[dom.ID] {
			errs = append(errs, fmt.Sprintf("duplicate domain ID: %q", dom.ID))
		}
		domains[dom.ID] = true

		for _, m := range dom.Modules {
			if m.ID == "" {
				errs = append(errs, fmt.Sprintf("domain %q has a module with empty ID", dom.ID))
				continue
			}
			if prev, ok := modules[m.ID]; ok {
				errs = append(errs, fmt.Sprintf("module %q listed under both %q and %q", m.ID, prev, dom.ID))
			}
			modules[m.ID] = dom.ID

			for _, it := range m.Items {
				switch {
				case it == "":
					errs = append(errs, fmt.Sprintf("module %q has an empty item ID", m.ID))
				case IsDirect(it):
					errs = append(errs, fmt.Sprintf("item %q uses the reserved suffix %q", it, directSuffix))
				default:
					if prev, ok := items[it]; ok {
						errs = append(errs, fmt.Sprintf("item %q listed under both %q and %q", it, prev, m.ID))
					}
					items[it] = m.ID
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("curriculum validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}
