package tier

import "fmt"

// Tier is a discrete difficulty bucket derived from an ability estimate.
type Tier int

const (
	Easy Tier = iota
	Moderate
	Hard
)

// All returns every tier from easiest to hardest.
func All() []Tier {
	return []Tier{Easy, Moderate, Hard}
}

func (t Tier) String() string {
	switch t {
	case Easy:
		return "easy"
	case Moderate:
		return "moderate"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Valid reports whether t is one of the defined tiers.
func (t Tier) Valid() bool {
	return t >= Easy && t <= Hard
}

// Parse converts a tier name into a Tier.
func Parse(s string) (Tier, error) {
	switch s {
	case "easy":
		return Easy, nil
	case "moderate":
		return Moderate, nil
	case "hard":
		return Hard, nil
	}
	return Easy, fmt.Errorf("unknown tier %q", s)
}

func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", int(t))
	}
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// steps returns the number of tiers between a and b.
func steps(a, b Tier) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}
