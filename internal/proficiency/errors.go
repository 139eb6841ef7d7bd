package proficiency

import "fmt"

// ValidationError reports a malformed outcome, key or configuration value.
// Outcomes failing validation are rejected before any state is touched.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
