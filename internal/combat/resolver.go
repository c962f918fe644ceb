package combat

import (
	"github.com/pixil98/go-arena/internal/board"
	"github.com/pixil98/go-arena/internal/catalog"
)

// AttackablePositions filters target positions down to those inside the
// attacker's range interval, measured in Manhattan distance. Both interval
// ends are inclusive.
func AttackablePositions(attacker board.Position, rng catalog.Range, targets []board.Position) []board.Position {
	attackable := []board.Position{}
	for _, t := range targets {
		if rng.Contains(board.Manhattan(attacker, t)) {
			attackable = append(attackable, t)
		}
	}
	return attackable
}

// InRange reports whether the target position is attackable from the
// attacker position with the given range interval.
func InRange(attacker, target board.Position, rng catalog.Range) bool {
	return rng.Contains(board.Manhattan(attacker, target))
}

// ResolveAttack computes the target's health and shield after one hit.
// The shield absorbs its percentage of the raw attack, health drops by the
// remainder (it may go negative; termination is the caller's concern), and
// the shield erodes by a tenth of the raw attack value per hit.
func ResolveAttack(attack, targetHealth, targetShield float64) (newHealth, newShield float64) {
	effective := attack - (targetShield/100)*attack
	if effective < 0 {
		effective = 0
	}

	newHealth = targetHealth - effective
	newShield = targetShield - 0.1*attack
	if newShield < 0 {
		newShield = 0
	}

	return newHealth, newShield
}
