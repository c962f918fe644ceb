package match

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-arena/internal/board"
	"github.com/pixil98/go-arena/internal/catalog"
	"github.com/pixil98/go-arena/internal/combat"
	"github.com/pixil98/go-arena/internal/snapshot"
	"github.com/pixil98/go-arena/internal/storage"
)

// Engine validates inbound actions against the in-memory tracker and the
// durable document, applies both mutations under the match's action lock,
// and broadcasts the resulting deltas after releasing it. Failures are
// scoped to the single action that caused them.
type Engine struct {
	registry   *Registry
	store      *snapshot.Store
	characters storage.Storer[*catalog.Character]
	dice       storage.Storer[*catalog.Die]
	pub        Publisher
}

func NewEngine(registry *Registry, store *snapshot.Store, characters storage.Storer[*catalog.Character], dice storage.Storer[*catalog.Die], pub Publisher) *Engine {
	return &Engine{
		registry:   registry,
		store:      store,
		characters: characters,
		dice:       dice,
		pub:        pub,
	}
}

// CreateMatch registers a new match for the given lobby roster and returns
// its id.
func (e *Engine) CreateMatch(roster []snapshot.Member) (string, error) {
	m, err := e.registry.Create(roster)
	if err != nil {
		return "", err
	}
	return m.ID, nil
}

// Join spawns a roster member onto the board, or resynchronizes one that
// already spawned. Rejoin is idempotent: the full snapshot is re-broadcast
// and no state changes.
func (e *Engine) Join(matchID, participantID string) error {
	if participantID == "" {
		return fmt.Errorf("%w: participant id is required", ErrValidation)
	}
	m, err := e.registry.GetOrRestore(matchID)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
		}
		if errors.Is(err, ErrStorage) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	m.mu.Lock()
	events, err := e.join(m, participantID)
	m.mu.Unlock()

	e.broadcast(m.ID, events)
	return err
}

func (e *Engine) join(m *Match, pid string) ([]event, error) {
	snap, err := e.store.Read(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	p, ok := snap.Players[pid]
	if !ok {
		return nil, fmt.Errorf("%w: participant %q is not on the roster", ErrNotFound, pid)
	}

	if _, spawned := m.Tracker.PositionOf(pid); spawned {
		return resyncEvents(snap, pid), nil
	}

	if m.Tracker.Phase() == board.PhaseFinished {
		return nil, fmt.Errorf("%w: match is finished", ErrIllegalState)
	}

	pos, err := m.Tracker.Spawn(pid, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalState, err)
	}

	if err := e.store.WritePosition(m.ID, pid, pos); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	// The order is reshuffled on every spawn during the waiting phase and
	// freezes when the last roster member arrives.
	order, err := e.store.GenerateTurnOrder(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	m.Tracker.SetTurnOrder(order)

	if m.Tracker.Count() == snap.PlayerCount {
		m.Tracker.Activate()
	}

	updated, err := e.store.Read(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	current, err := m.Tracker.CurrentTurn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalState, err)
	}

	return []event{
		{EventMatchSnapshot, updated},
		{EventTurnUpdate, TurnUpdate{Turn: current, User: updated.Players[current].User}},
		{EventHealthUpdate, HealthUpdate{CurrentHealth: p.Health, MaxHealth: p.MaxHealth, UserID: pid}},
	}, nil
}

// resyncEvents rebuilds the join event set from the stored document without
// touching state, for a participant that already spawned.
func resyncEvents(snap *snapshot.Snapshot, pid string) []event {
	p := snap.Players[pid]
	events := []event{
		{EventMatchSnapshot, snap},
	}
	if len(snap.TurnOrder) > 0 {
		current := snap.TurnOrder[snap.CurrentTurnIndex]
		events = append(events, event{EventTurnUpdate, TurnUpdate{Turn: current, User: snap.Players[current].User}})
	}
	return append(events, event{EventHealthUpdate, HealthUpdate{CurrentHealth: p.Health, MaxHealth: p.MaxHealth, UserID: pid}})
}

// Move relocates the acting participant and consumes its turn.
func (e *Engine) Move(matchID, participantID string, target board.Position) error {
	if participantID == "" {
		return fmt.Errorf("%w: participant id is required", ErrValidation)
	}
	m, ok := e.registry.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}

	m.mu.Lock()
	events, err := e.move(m, participantID, target)
	m.mu.Unlock()

	e.broadcast(m.ID, events)
	return err
}

func (e *Engine) move(m *Match, pid string, target board.Position) ([]event, error) {
	if err := e.requireTurn(m, pid); err != nil {
		return nil, err
	}

	if err := m.Tracker.Move(pid, target); err != nil {
		return nil, mapBoardErr(err)
	}

	if err := e.store.WritePosition(m.ID, pid, target); err != nil {
		return nil, e.poison(m, err)
	}

	return e.advanceTurn(m)
}

// Roll draws the participant's equipped die and broadcasts the result.
// Rolling never mutates match state and does not consume the turn; unknown
// dice ids fall back to the default die.
func (e *Engine) Roll(matchID, participantID string) error {
	if participantID == "" {
		return fmt.Errorf("%w: participant id is required", ErrValidation)
	}
	m, ok := e.registry.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}

	snap, err := e.store.Read(m.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	p, ok := snap.Players[participantID]
	if !ok {
		return fmt.Errorf("%w: participant %q is not on the roster", ErrNotFound, participantID)
	}

	die := e.dice.Get(p.DiceID)
	value := catalog.Roll(die)

	events := []event{
		{EventRollResult, RollResult{User: p.User, Value: value, UserID: participantID}},
	}

	if die != nil && die.Flavor != "" {
		msg, err := ExpandTemplate(die.Flavor, struct {
			User  string
			Value int
		}{User: p.User, Value: value})
		if err != nil {
			slog.Warn("expanding dice flavor", "dice", p.DiceID, "error", err)
		} else {
			events = append(events, event{EventAnnouncement, Announcement{Message: msg}})
		}
	}

	e.broadcast(m.ID, events)
	return nil
}

// AttackQuery broadcasts the positions the participant can legally attack.
func (e *Engine) AttackQuery(matchID, participantID string) error {
	if participantID == "" {
		return fmt.Errorf("%w: participant id is required", ErrValidation)
	}
	m, ok := e.registry.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}

	snap, err := e.store.Read(m.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	attacker, ok := snap.Players[participantID]
	if !ok {
		return fmt.Errorf("%w: participant %q is not on the roster", ErrNotFound, participantID)
	}
	char := e.characters.Get(attacker.CharacterID)
	if char == nil {
		return fmt.Errorf("%w: character %q", ErrNotFound, attacker.CharacterID)
	}

	targets := make([]board.Position, 0, len(snap.Players)-1)
	for id, p := range snap.Players {
		if id == participantID {
			continue
		}
		targets = append(targets, p.Position)
	}

	e.broadcast(m.ID, []event{{
		EventAttackablePositions,
		AttackablePositions{
			AttackerID: participantID,
			Positions:  combat.AttackablePositions(attacker.Position, char.Range, targets),
		},
	}})
	return nil
}

// AttackExecute resolves an attack between two participants and consumes
// the attacker's turn.
func (e *Engine) AttackExecute(matchID, attackerID, targetID string) error {
	if attackerID == "" || targetID == "" {
		return fmt.Errorf("%w: attacker and target ids are required", ErrValidation)
	}
	if attackerID == targetID {
		return fmt.Errorf("%w: cannot attack yourself", ErrValidation)
	}
	m, ok := e.registry.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}

	m.mu.Lock()
	events, err := e.attack(m, attackerID, targetID)
	m.mu.Unlock()

	e.broadcast(m.ID, events)
	return err
}

func (e *Engine) attack(m *Match, attackerID, targetID string) ([]event, error) {
	if err := e.requireTurn(m, attackerID); err != nil {
		return nil, err
	}

	snap, err := e.store.Read(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	attacker, ok := snap.Players[attackerID]
	if !ok {
		return nil, fmt.Errorf("%w: participant %q is not on the roster", ErrNotFound, attackerID)
	}
	target, ok := snap.Players[targetID]
	if !ok {
		return nil, fmt.Errorf("%w: participant %q is not on the roster", ErrNotFound, targetID)
	}

	attackerChar := e.characters.Get(attacker.CharacterID)
	if attackerChar == nil {
		return nil, fmt.Errorf("%w: character %q", ErrNotFound, attacker.CharacterID)
	}

	if !combat.InRange(attacker.Position, target.Position, attackerChar.Range) {
		return nil, fmt.Errorf("%w: target out of range", ErrIllegalState)
	}

	newHealth, newShield := combat.ResolveAttack(attackerChar.Attack, target.Health, target.Shield)

	if err := e.store.SetField(m.ID, []string{"players", targetID, "health"}, newHealth); err != nil {
		return nil, e.poison(m, err)
	}
	if err := e.store.SetField(m.ID, []string{"players", targetID, "shield"}, newShield); err != nil {
		return nil, e.poison(m, err)
	}

	events, err := e.advanceTurn(m)
	if err != nil {
		return nil, err
	}

	return append([]event{
		{EventHealthUpdate, HealthUpdate{CurrentHealth: newHealth, MaxHealth: target.MaxHealth, UserID: targetID}},
	}, append(events, event{EventAttackResult, AttackResult{Success: true, Message: "Attack successful"}})...), nil
}

// Leave removes a participant from the in-memory board. The roster entry in
// the durable document is retained; only the turn pointer is re-persisted.
func (e *Engine) Leave(matchID, participantID string) error {
	m, ok := e.registry.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}

	m.mu.Lock()
	events, err := e.leave(m, participantID)
	m.mu.Unlock()

	e.broadcast(m.ID, events)
	return err
}

func (e *Engine) leave(m *Match, pid string) ([]event, error) {
	m.Tracker.Remove(pid)

	// The document order must mirror the in-memory order, or a later resync
	// would announce a departed turn holder.
	if err := e.store.SetField(m.ID, []string{"turn_order"}, m.Tracker.Participants()); err != nil {
		return nil, e.poison(m, err)
	}
	if err := e.store.SetField(m.ID, []string{"current_turn_index"}, m.Tracker.TurnIndex()); err != nil {
		return nil, e.poison(m, err)
	}

	current, err := m.Tracker.CurrentTurn()
	if err != nil {
		// Everyone left; the registry sweep reclaims the match.
		return nil, nil
	}

	snap, err := e.store.Read(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return []event{
		{EventTurnUpdate, TurnUpdate{Turn: current, User: snap.Players[current].User}},
		{EventMatchSnapshot, snap},
	}, nil
}

// WhoseTurn reports the participant whose turn it currently is.
func (e *Engine) WhoseTurn(matchID string) (TurnUpdate, error) {
	m, ok := e.registry.Get(matchID)
	if !ok {
		return TurnUpdate{}, fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}

	current, err := m.Tracker.CurrentTurn()
	if err != nil {
		return TurnUpdate{}, fmt.Errorf("%w: %v", ErrIllegalState, err)
	}

	snap, err := e.store.Read(m.ID)
	if err != nil {
		return TurnUpdate{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return TurnUpdate{Turn: current, User: snap.Players[current].User}, nil
}

// Finish marks a match terminal. The registry sweep removes it afterwards.
func (e *Engine) Finish(matchID string) error {
	m, ok := e.registry.Get(matchID)
	if !ok {
		return fmt.Errorf("%w: match %q", ErrNotFound, matchID)
	}
	m.Tracker.Finish()
	return nil
}

// requireTurn enforces that the match is active and pid holds the turn.
func (e *Engine) requireTurn(m *Match, pid string) error {
	if m.Tracker.Phase() != board.PhaseActive {
		return fmt.Errorf("%w: match not active", ErrIllegalState)
	}
	current, err := m.Tracker.CurrentTurn()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalState, err)
	}
	if current != pid {
		return fmt.Errorf("%w: not %q's turn", ErrIllegalState, pid)
	}
	return nil
}

// advanceTurn moves the pointer, persists it, and returns the turn_update
// plus refreshed snapshot events.
func (e *Engine) advanceTurn(m *Match) ([]event, error) {
	idx := m.Tracker.AdvanceTurn()

	if err := e.store.SetField(m.ID, []string{"current_turn_index"}, idx); err != nil {
		return nil, e.poison(m, err)
	}

	next, err := m.Tracker.CurrentTurn()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllegalState, err)
	}

	snap, err := e.store.Read(m.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return []event{
		{EventTurnUpdate, TurnUpdate{Turn: next, User: snap.Players[next].User}},
		{EventMatchSnapshot, snap},
	}, nil
}

// poison handles a snapshot write failure after an in-memory mutation: the
// document can no longer be trusted to match memory, so the match is marked
// terminal instead of continuing inconsistently.
func (e *Engine) poison(m *Match, err error) error {
	m.Tracker.Finish()
	slog.Error("snapshot write failed, finishing match", "match", m.ID, "error", err)
	return fmt.Errorf("%w: %v", ErrStorage, err)
}

func (e *Engine) broadcast(matchID string, events []event) {
	for _, ev := range events {
		if err := e.pub.Publish(matchID, ev.name, ev.payload); err != nil {
			slog.Warn("publishing event", "match", matchID, "event", ev.name, "error", err)
		}
	}
}

func mapBoardErr(err error) error {
	switch {
	case err == nil:
		return nil
	case err == board.ErrNotSpawned:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case err == board.ErrOutOfBounds:
		return fmt.Errorf("%w: %v", ErrValidation, err)
	default:
		return fmt.Errorf("%w: %v", ErrIllegalState, err)
	}
}
