package match

import "github.com/pixil98/go-arena/internal/board"

// Event names broadcast to all participants of a match room.
const (
	EventMatchSnapshot       = "match_snapshot"
	EventTurnUpdate          = "turn_update"
	EventHealthUpdate        = "health_update"
	EventRollResult          = "roll_result"
	EventAttackablePositions = "attackable_positions"
	EventAttackResult        = "attack_result"
	EventAnnouncement        = "announcement"
)

// Publisher is the engine's outbound boundary. Implementations deliver the
// payload to every participant of the match room, at-least-once; clients
// resynchronize from the full snapshot on (re)join.
type Publisher interface {
	Publish(matchID, event string, payload any) error
}

type TurnUpdate struct {
	Turn string `json:"turn"`
	User string `json:"user"`
}

type HealthUpdate struct {
	CurrentHealth float64 `json:"current_health"`
	MaxHealth     float64 `json:"max_health"`
	UserID        string  `json:"user_id"`
}

type RollResult struct {
	User   string `json:"user"`
	Value  int    `json:"value"`
	UserID string `json:"user_id"`
}

type AttackablePositions struct {
	AttackerID string           `json:"attacker_id"`
	Positions  []board.Position `json:"positions"`
}

type AttackResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type Announcement struct {
	Message string `json:"message"`
}

// event pairs a name with its payload so handlers can collect broadcasts
// while holding the match lock and send them after releasing it.
type event struct {
	name    string
	payload any
}
