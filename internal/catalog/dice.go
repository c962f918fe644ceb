package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/pixil98/go-errors"
)

// RollKind selects the roll algorithm for a die. Flavored dice keep the
// uniform distribution; only their announcement text differs.
type RollKind int

const (
	RollUniform RollKind = iota
	RollDouble
)

func (k *RollKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "uniform":
		*k = RollUniform
	case "double":
		*k = RollDouble
	default:
		return fmt.Errorf("unknown roll kind: %s", text)
	}
	return nil
}

func (k RollKind) MarshalText() ([]byte, error) {
	switch k {
	case RollUniform:
		return []byte("uniform"), nil
	case RollDouble:
		return []byte("double"), nil
	default:
		return nil, fmt.Errorf("unknown roll kind: %d", k)
	}
}

// Die is a dice variant definition.
type Die struct {
	// Name is the die's display name
	Name string `json:"name"`

	// Sides is the face count of a single draw
	Sides int `json:"sides"`

	// Kind selects the roll algorithm
	Kind RollKind `json:"kind,omitempty"`

	// Flavor is an optional announcement template broadcast with the roll.
	// It may reference {{ .User }} and {{ .Value }}.
	Flavor string `json:"flavor,omitempty"`
}

func (d *Die) Validate() error {
	el := errors.NewErrorList()

	if d.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if d.Sides < 1 {
		el.Add(fmt.Errorf("sides must be at least 1"))
	}

	return el.Err()
}

// DefaultDieID is stamped on every roster member at match creation.
const DefaultDieID = "fortune-core"

var defaultDie = &Die{Name: "Fortune Core", Sides: 6}

// Roll produces the die's numeric result. A nil die (unknown or missing id)
// falls back to the default single six-sided draw rather than erroring.
func Roll(d *Die) int {
	if d == nil {
		d = defaultDie
	}

	switch d.Kind {
	case RollDouble:
		return rand.IntN(d.Sides) + 1 + rand.IntN(d.Sides) + 1
	default:
		return rand.IntN(d.Sides) + 1
	}
}

// DefaultDice returns the built-in dice table, used when no dice asset
// directory is configured.
func DefaultDice() map[string]*Die {
	return map[string]*Die{
		"fortune-core": {Name: "Fortune Core", Sides: 6},
		"risk-roller":  {Name: "Risk Roller", Sides: 3},
		"blaze-cube":   {Name: "Blaze Cube", Sides: 6, Flavor: "{{ .User }}'s next attack is boosted!"},
		"frost-prism":  {Name: "Frost Prism", Sides: 6, Flavor: "{{ .User }} slows the next attack against them!"},
		"double-fortune": {
			Name:  "Double Fortune Core",
			Sides: 6,
			Kind:  RollDouble,
		},
	}
}
