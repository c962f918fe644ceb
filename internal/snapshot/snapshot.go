package snapshot

import (
	"time"

	"github.com/pixil98/go-arena/internal/board"
)

// PlayerState is one participant's entry in the match document.
type PlayerState struct {
	// User is the participant's display name
	User string `json:"user"`

	// CharacterID references the equipped catalog archetype
	CharacterID string `json:"character_id"`

	// CharacterName is denormalized for clients
	CharacterName string `json:"character_name"`

	// MaxHealth is the archetype's starting health
	MaxHealth float64 `json:"max_health"`

	// Health is the current health; it may go negative
	Health float64 `json:"health"`

	// Shield is the current absorption percentage
	Shield float64 `json:"shield"`

	// DiceID references the equipped dice variant
	DiceID string `json:"dice_id"`

	// Position is the participant's board tile
	Position board.Position `json:"position"`
}

// Snapshot is the complete durable representation of a match. It is always
// a self-consistent re-derivation of the in-memory board state; the whole
// document is replaced on every write.
type Snapshot struct {
	MatchID          string                  `json:"match_id"`
	StartedAt        time.Time               `json:"started_at"`
	Players          map[string]*PlayerState `json:"players"`
	PlayerCount      int                     `json:"player_count"`
	TurnOrder        []string                `json:"turn_order,omitempty"`
	CurrentTurnIndex int                     `json:"current_turn_index"`
	BoardLayout      [][]int                 `json:"board_layout,omitempty"`
}
