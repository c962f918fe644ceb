package match

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-arena/internal/board"
	"github.com/pixil98/go-arena/internal/snapshot"
)

// Match couples one active match's in-memory tracker with its identity.
// The action lock serializes every engine operation for the match; tracker
// and store locks nest beneath it.
type Match struct {
	ID        string
	Tracker   *board.Tracker
	CreatedAt time.Time

	mu sync.Mutex
}

// Registry is the process-wide map of active matches. The registry lock
// only guards insert/lookup/remove; per-match mutation is serialized by the
// match's own lock. Matches are fully independent, there is no cross-match
// lock.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*Match

	store       *snapshot.Store
	boardSize   int
	sharedTiles bool
}

type RegistryOpt func(*Registry)

func WithBoardSize(size int) RegistryOpt {
	return func(r *Registry) {
		r.boardSize = size
	}
}

func WithSharedTiles(allow bool) RegistryOpt {
	return func(r *Registry) {
		r.sharedTiles = allow
	}
}

func NewRegistry(store *snapshot.Store, opts ...RegistryOpt) *Registry {
	r := &Registry{
		matches:     map[string]*Match{},
		store:       store,
		boardSize:   board.DefaultSize,
		sharedTiles: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Create builds a new match from the lobby roster: persists the initial
// document, rolls the terrain layout, and registers an in-memory tracker.
func (r *Registry) Create(roster []snapshot.Member) (*Match, error) {
	if len(roster) == 0 {
		return nil, fmt.Errorf("%w: empty roster", ErrValidation)
	}

	id := uuid.New().String()

	if _, err := r.store.Create(id, roster); err != nil {
		return nil, fmt.Errorf("%w: creating match document: %v", ErrStorage, err)
	}
	if _, err := r.store.GenerateBoard(id, r.boardSize); err != nil {
		return nil, fmt.Errorf("%w: generating board layout: %v", ErrStorage, err)
	}

	m := &Match{
		ID:        id,
		Tracker:   board.NewTracker(r.boardSize, board.WithSharedTiles(r.sharedTiles)),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	r.matches[id] = m
	r.mu.Unlock()

	return m, nil
}

// GetOrRestore looks the match up in the registry, falling back to
// rebuilding it from its durable document. The fallback is what makes a
// match survive a process restart: positions, turn order, pointer, and
// phase all come back from the snapshot, and participants resynchronize
// by rejoining.
func (r *Registry) GetOrRestore(id string) (*Match, error) {
	if m, ok := r.Get(id); ok {
		return m, nil
	}

	snap, err := r.store.Read(id)
	if err != nil {
		return nil, err
	}

	tracker := board.NewTracker(r.boardSize, board.WithSharedTiles(r.sharedTiles))
	if len(snap.TurnOrder) > 0 {
		for _, pid := range snap.TurnOrder {
			p, ok := snap.Players[pid]
			if !ok {
				return nil, fmt.Errorf("%w: turn order references unknown participant %q", ErrStorage, pid)
			}
			pos := p.Position
			if _, err := tracker.Spawn(pid, &pos); err != nil {
				return nil, fmt.Errorf("%w: restoring participant %q: %v", ErrStorage, pid, err)
			}
		}
		tracker.SetTurnOrder(snap.TurnOrder)
		tracker.SetTurnIndex(snap.CurrentTurnIndex)
		tracker.Activate()
	}

	m := &Match{
		ID:        id,
		Tracker:   tracker,
		CreatedAt: snap.StartedAt,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another restore may have won the race.
	if existing, ok := r.matches[id]; ok {
		return existing, nil
	}
	r.matches[id] = m

	slog.Info("restored match from snapshot", "match", id, "participants", tracker.Count())
	return m, nil
}

func (r *Registry) Get(id string) (*Match, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.matches[id]
	return m, ok
}

// Remove drops the match from the active registry. The durable document
// outlives the in-memory state.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.matches, id)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matches)
}

// Tick evicts finished matches and active matches every participant has
// left, bounding registry memory. Called periodically by the driver.
func (r *Registry) Tick(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, m := range r.matches {
		phase := m.Tracker.Phase()
		if phase == board.PhaseFinished || (phase == board.PhaseActive && m.Tracker.Count() == 0) {
			slog.InfoContext(ctx, "evicting match", "match", id, "phase", phase)
			delete(r.matches, id)
		}
	}

	return nil
}
