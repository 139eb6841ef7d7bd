package tuning

import (
	"fmt"
	"strconv"
)

// ActivityType names a kind of exercise that can be tuned.
type ActivityType string

const (
	MultipleChoice ActivityType = "multiple_choice"
	Spelling       ActivityType = "spelling"
	BubblePop      ActivityType = "bubble_pop"
	FillInTheBlank ActivityType = "fill_in_the_blank"
	FluentReading  ActivityType = "fluent_reading"
)

// Kind is the value type of a tuning field.
type Kind string

const (
	KindInt       Kind = "int"
	KindFloat     Kind = "float"
	KindEnum      Kind = "enum"
	KindIntChoice Kind = "int_choice"
)

// nullOption is the int_choice option that is emitted as nil.
const nullOption = "null"

// FieldSpec describes one output field of an activity and how it is derived
// from the tier and the ability estimate.
type FieldSpec struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Min and Max bound numeric fields.
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// Options lists the allowed values of enum and int_choice fields.
	Options []string `json:"options,omitempty"`

	// Base is the per-tier starting value of a numeric field, indexed by tier.
	Base [3]float64 `json:"base,omitempty"`
	// Choices is the per-tier value of an enum or int_choice field.
	Choices [3]string `json:"choices,omitempty"`
	// Slope scales the within-tier adjustment. Negative slopes make the
	// field shrink as ability grows.
	Slope float64 `json:"slope,omitempty"`
}

// Numeric reports whether the field is derived from Base.
func (f FieldSpec) Numeric() bool {
	return f.Kind == KindInt || f.Kind == KindFloat
}

// Validate checks the field definition for consistency.
func (f FieldSpec) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field name is required")
	}
	switch f.Kind {
	case KindInt, KindFloat:
		if f.Min > f.Max {
			return fmt.Errorf("field %q: min %v > max %v", f.Name, f.Min, f.Max)
		}
	case KindEnum:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %q: enum needs options", f.Name)
		}
	case KindIntChoice:
		if len(f.Options) == 0 {
			return fmt.Errorf("field %q: int_choice needs options", f.Name)
		}
		for _, o := range f.Options {
			if o == nullOption {
				continue
			}
			if _, err := strconv.Atoi(o); err != nil {
				return fmt.Errorf("field %q: option %q is not an integer", f.Name, o)
			}
		}
	default:
		return fmt.Errorf("field %q: unknown kind %q", f.Name, f.Kind)
	}
	return nil
}

// ActivitySpec is the full tuning table of one activity.
type ActivitySpec struct {
	Type   ActivityType `json:"type"`
	Fields []FieldSpec  `json:"fields"`
}

// Field returns the named field.
func (a ActivitySpec) Field(name string) (FieldSpec, bool) {
	for _, f := range a.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate checks every field and rejects duplicates.
func (a ActivitySpec) Validate() error {
	if a.Type == "" {
		return fmt.Errorf("activity type is required")
	}
	if len(a.Fields) == 0 {
		return fmt.Errorf("activity %q has no fields", a.Type)
	}
	seen := make(map[string]bool, len(a.Fields))
	for _, f := range a.Fields {
		if seen[f.Name] {
			return fmt.Errorf("activity %q: duplicate field %q", a.Type, f.Name)
		}
		seen[f.Name] = true
		if err := f.Validate(); err != nil {
			return fmt.Errorf("activity %q: %w", a.Type, err)
		}
	}
	return nil
}

func (a ActivitySpec) clone() ActivitySpec {
	out := ActivitySpec{Type: a.Type, Fields: make([]FieldSpec, len(a.Fields))}
	for i, f := range a.Fields {
		f.Options = append([]string(nil), f.Options...)
		out.Fields[i] = f
	}
	return out
}
