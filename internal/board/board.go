package board

import (
	"errors"
	"math/rand/v2"
	"sync"
)

const DefaultSize = 10

var (
	ErrAlreadySpawned = errors.New("participant already spawned")
	ErrNotSpawned     = errors.New("participant not spawned")
	ErrBoardFull      = errors.New("board full")
	ErrOutOfBounds    = errors.New("position out of bounds")
	ErrTileOccupied   = errors.New("tile occupied")
	ErrNoTurn         = errors.New("no participant has the turn")
)

// Phase is the match lifecycle state. Waiting covers the spawn window,
// Active the move/roll/attack loop, Finished is terminal.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhaseActive
	PhaseFinished
)

// Tracker is the authoritative in-memory spatial and roster state for one
// match. Every mutating or compound-read operation takes the tracker's lock
// for its full duration; none of them do I/O under it.
type Tracker struct {
	mu sync.Mutex

	size             int
	allowSharedTiles bool

	positions map[string]Position
	occupancy map[Position]map[string]struct{}

	turnOrder   []string
	currentTurn int
	phase       Phase
}

type TrackerOpt func(*Tracker)

// WithSharedTiles controls whether multiple participants may stand on the
// same tile. Sharing is allowed by default.
func WithSharedTiles(allow bool) TrackerOpt {
	return func(t *Tracker) {
		t.allowSharedTiles = allow
	}
}

func NewTracker(size int, opts ...TrackerOpt) *Tracker {
	if size <= 0 {
		size = DefaultSize
	}

	t := &Tracker{
		size:             size,
		allowSharedTiles: true,
		positions:        map[string]Position{},
		occupancy:        map[Position]map[string]struct{}{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *Tracker) Size() int {
	return t.size
}

// InBounds reports whether p lies on the board.
func (t *Tracker) InBounds(p Position) bool {
	return 0 <= p.X && p.X < t.size && 0 <= p.Y && p.Y < t.size
}

// Spawn registers a participant and places it on the board. When no position
// is requested, or the requested one is out of bounds, a uniformly random
// in-bounds tile is chosen. With tile sharing disabled an occupied choice is
// replaced by a random unoccupied tile, or ErrBoardFull when none remains.
func (t *Tracker) Spawn(id string, requested *Position) (Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.positions[id]; ok {
		return Position{}, ErrAlreadySpawned
	}

	var pos Position
	if requested != nil && t.InBounds(*requested) {
		pos = *requested
	} else {
		pos = Position{X: rand.IntN(t.size), Y: rand.IntN(t.size)}
	}

	if !t.allowSharedTiles && len(t.occupancy[pos]) > 0 {
		free := t.unoccupiedTiles()
		if len(free) == 0 {
			return Position{}, ErrBoardFull
		}
		pos = free[rand.IntN(len(free))]
	}

	t.positions[id] = pos
	t.addOccupant(pos, id)
	t.turnOrder = append(t.turnOrder, id)

	return pos, nil
}

// Remove deregisters a participant. Unknown ids are a no-op. The turn
// pointer keeps referring to the same logical next participant: it is
// decremented when the removed slot came before it, then wrapped against
// the new order length.
func (t *Tracker) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return
	}

	t.removeOccupant(pos, id)
	delete(t.positions, id)

	for i, tid := range t.turnOrder {
		if tid != id {
			continue
		}
		t.turnOrder = append(t.turnOrder[:i], t.turnOrder[i+1:]...)
		if i < t.currentTurn {
			t.currentTurn--
		}
		break
	}

	if len(t.turnOrder) == 0 {
		t.currentTurn = 0
	} else {
		t.currentTurn %= len(t.turnOrder)
	}
}

// Move relocates a spawned participant, keeping the occupancy index
// consistent.
func (t *Tracker) Move(id string, target Position) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		return ErrNotSpawned
	}
	if !t.InBounds(target) {
		return ErrOutOfBounds
	}

	if !t.allowSharedTiles {
		for occ := range t.occupancy[target] {
			if occ != id {
				return ErrTileOccupied
			}
		}
	}

	t.removeOccupant(pos, id)
	t.positions[id] = target
	t.addOccupant(target, id)

	return nil
}

// OccupantsAt returns the ids standing on p.
func (t *Tracker) OccupantsAt(p Position) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]string, 0, len(t.occupancy[p]))
	for id := range t.occupancy[p] {
		ids = append(ids, id)
	}
	return ids
}

// PositionOf returns a participant's current position.
func (t *Tracker) PositionOf(id string) (Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	return pos, ok
}

// Participants returns the spawned participant ids in turn order.
func (t *Tracker) Participants() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]string, len(t.turnOrder))
	copy(out, t.turnOrder)
	return out
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.positions)
}

// SetTurnOrder replaces the turn order with a fixed permutation and resets
// the pointer. Ids without a spawned position are kept; they take their turn
// slot once spawned.
func (t *Tracker) SetTurnOrder(order []string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.turnOrder = make([]string, len(order))
	copy(t.turnOrder, order)
	t.currentTurn = 0
}

// SetTurnIndex positions the pointer, wrapping modulo the order length.
func (t *Tracker) SetTurnIndex(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.turnOrder) == 0 {
		t.currentTurn = 0
		return
	}
	t.currentTurn = ((i % len(t.turnOrder)) + len(t.turnOrder)) % len(t.turnOrder)
}

// CurrentTurn returns the id whose turn it is.
func (t *Tracker) CurrentTurn() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.turnOrder) == 0 {
		return "", ErrNoTurn
	}
	return t.turnOrder[t.currentTurn], nil
}

// AdvanceTurn moves the pointer to the next participant, wrapping modulo the
// order length, and returns the new index.
func (t *Tracker) AdvanceTurn() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.turnOrder) == 0 {
		return 0
	}
	t.currentTurn = (t.currentTurn + 1) % len(t.turnOrder)
	return t.currentTurn
}

// TurnIndex returns the current turn pointer.
func (t *Tracker) TurnIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.currentTurn
}

func (t *Tracker) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.phase
}

// Activate transitions Waiting -> Active. Later calls are no-ops.
func (t *Tracker) Activate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == PhaseWaiting {
		t.phase = PhaseActive
	}
}

// Finish marks the match terminal.
func (t *Tracker) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.phase = PhaseFinished
}

func (t *Tracker) addOccupant(pos Position, id string) {
	s := t.occupancy[pos]
	if s == nil {
		s = map[string]struct{}{}
		t.occupancy[pos] = s
	}
	s[id] = struct{}{}
}

func (t *Tracker) removeOccupant(pos Position, id string) {
	s := t.occupancy[pos]
	if s == nil {
		return
	}
	delete(s, id)
	if len(s) == 0 {
		// Drop empty sets so occupancy checks stay simple
		delete(t.occupancy, pos)
	}
}

func (t *Tracker) unoccupiedTiles() []Position {
	var free []Position
	for x := 0; x < t.size; x++ {
		for y := 0; y < t.size; y++ {
			p := Position{X: x, Y: y}
			if len(t.occupancy[p]) == 0 {
				free = append(free, p)
			}
		}
	}
	return free
}
