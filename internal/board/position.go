package board

import (
	"encoding/json"
	"fmt"
)

// Position is a tile coordinate on the square board. It marshals as a
// two-element array [x, y], which is the shape clients and the match
// snapshot document use.
type Position struct {
	X int
	Y int
}

func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

func (p *Position) UnmarshalJSON(b []byte) error {
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("position must be [x, y]: %w", err)
	}
	p.X = pair[0]
	p.Y = pair[1]
	return nil
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// Manhattan returns the Manhattan distance between two positions, the
// metric used for attack-range legality.
func Manhattan(a, b Position) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
