package catalog

import (
	"encoding/json"
	"fmt"

	"github.com/pixil98/go-errors"
)

// Range is a closed attack-range interval in board (Manhattan) distance.
// It decodes from either a two-element array [min, max] or a bare scalar n,
// which is treated as [0, n].
type Range struct {
	Min int
	Max int
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

func (r *Range) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err == nil {
		r.Min = pair[0]
		r.Max = pair[1]
		return nil
	}

	var scalar int
	if err := json.Unmarshal(b, &scalar); err != nil {
		return fmt.Errorf("range must be [min, max] or a scalar: %w", err)
	}
	r.Min = 0
	r.Max = scalar
	return nil
}

// Contains reports whether d falls inside the interval, inclusive on both ends.
func (r Range) Contains(d int) bool {
	return r.Min <= d && d <= r.Max
}

// Character is a playable archetype's static stat block. Catalog entries are
// immutable at match time; per-match health and shield live in the snapshot.
type Character struct {
	// Name is the archetype's display name
	Name string `json:"name"`

	// Type is a flavor classification (Fighter, Sniper, Tank, ...)
	Type string `json:"type"`

	// Health is the starting (and maximum) health
	Health float64 `json:"health"`

	// Attack is the raw damage dealt per hit
	Attack float64 `json:"attack"`

	// Shield is the percentage of incoming damage absorbed, 0-100
	Shield float64 `json:"shield"`

	// Range is the legal attack distance interval
	Range Range `json:"range"`
}

func (c *Character) Validate() error {
	el := errors.NewErrorList()

	if c.Name == "" {
		el.Add(fmt.Errorf("name must be set"))
	}
	if c.Health <= 0 {
		el.Add(fmt.Errorf("health must be positive"))
	}
	if c.Attack < 0 {
		el.Add(fmt.Errorf("attack must not be negative"))
	}
	if c.Shield < 0 || c.Shield > 100 {
		el.Add(fmt.Errorf("shield must be between 0 and 100"))
	}
	if c.Range.Min < 0 || c.Range.Max < c.Range.Min {
		el.Add(fmt.Errorf("range interval [%d, %d] is invalid", c.Range.Min, c.Range.Max))
	}

	return el.Err()
}

// DefaultCharacterID is assigned when a roster member has no equipped
// character on record.
const DefaultCharacterID = "ditte"

// DefaultCharacters returns the built-in archetype table, used when no
// character asset directory is configured.
func DefaultCharacters() map[string]*Character {
	return map[string]*Character{
		"ditte":   {Name: "Ditte", Type: "Support", Health: 120, Attack: 15, Shield: 20, Range: Range{0, 100}},
		"tontar":  {Name: "Tontar", Type: "Fighter", Health: 110, Attack: 20, Shield: 0, Range: Range{0, 2}},
		"makdi":   {Name: "Makdi", Type: "Trapster", Health: 100, Attack: 12, Shield: 3, Range: Range{1, 100}},
		"mishu":   {Name: "Mishu", Type: "Speedster", Health: 90, Attack: 15, Shield: 0, Range: Range{0, 2}},
		"dholky":  {Name: "Dholky", Type: "Tank", Health: 250, Attack: 8, Shield: 0, Range: Range{0, 1}},
		"beaster": {Name: "Beaster", Type: "Berserker", Health: 130, Attack: 18, Shield: 10, Range: Range{0, 1}},
		"prepto":  {Name: "Prepto", Type: "Teleporter", Health: 100, Attack: 12, Shield: 0, Range: Range{0, 100}},
		"ishada":  {Name: "Ishada", Type: "Sniper", Health: 95, Attack: 25, Shield: 0, Range: Range{10, 20}},
		"padupie": {Name: "Padupie", Type: "Bomber", Health: 110, Attack: 22, Shield: 0, Range: Range{0, 20}},
	}
}
