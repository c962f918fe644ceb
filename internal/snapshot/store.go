package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pixil98/go-arena/internal/board"
	"github.com/pixil98/go-arena/internal/catalog"
	"github.com/pixil98/go-arena/internal/storage"
)

var ErrNotFound = errors.New("match document not found")

// Member is one roster entry supplied by the lobby at match creation.
type Member struct {
	ID          string
	User        string
	CharacterID string
}

// Store keeps one JSON document per match under dir. Every write is a full
// document replace through an atomic rename, so readers never observe a
// partial file. A single in-process lock serializes read-modify-write
// cycles; plain reads take the read side.
type Store struct {
	dir        string
	characters storage.Storer[*catalog.Character]

	mu sync.RWMutex
}

func NewStore(dir string, characters storage.Storer[*catalog.Character]) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating match directory: %w", err)
	}

	return &Store{
		dir:        dir,
		characters: characters,
	}, nil
}

// Create builds and persists the initial document for a match. Each roster
// member's equipped character is resolved to stamp starting stats; unknown
// character ids fall back to the default archetype. Everyone starts at
// (0, 0) with the default die.
func (s *Store) Create(matchID string, roster []Member) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := &Snapshot{
		MatchID:   matchID,
		StartedAt: time.Now().UTC(),
		Players:   map[string]*PlayerState{},
	}

	for _, m := range roster {
		charID := m.CharacterID
		char := s.characters.Get(charID)
		if char == nil {
			charID = catalog.DefaultCharacterID
			char = s.characters.Get(charID)
		}
		if char == nil {
			return nil, fmt.Errorf("resolving character for %q: no default archetype", m.ID)
		}

		snap.Players[m.ID] = &PlayerState{
			User:          m.User,
			CharacterID:   charID,
			CharacterName: char.Name,
			MaxHealth:     char.Health,
			Health:        char.Health,
			Shield:        char.Shield,
			DiceID:        catalog.DefaultDieID,
			Position:      board.Position{X: 0, Y: 0},
		}
	}
	snap.PlayerCount = len(snap.Players)

	if err := s.write(matchID, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

// Read returns the whole match document.
func (s *Store) Read(matchID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(matchID)
}

// WritePosition updates one participant's position field.
func (s *Store) WritePosition(matchID, participantID string, pos board.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(matchID)
	if err != nil {
		return err
	}

	p, ok := snap.Players[participantID]
	if !ok {
		return fmt.Errorf("participant %q: %w", participantID, ErrNotFound)
	}
	p.Position = pos

	return s.write(matchID, snap)
}

// SetField mutates a single document field addressed by key path, e.g.
// ["players", id, "health"] or ["current_turn_index"]. The mutation is a
// read-modify-write of the raw document.
func (s *Store) SetField(matchID string, path []string, value any) error {
	if len(path) == 0 {
		return fmt.Errorf("empty field path")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := s.readRaw(matchID)
	if err != nil {
		return err
	}

	obj := raw
	for _, key := range path[:len(path)-1] {
		next, ok := obj[key].(map[string]any)
		if !ok {
			return fmt.Errorf("field path %v: %q is not an object", path, key)
		}
		obj = next
	}
	obj[path[len(path)-1]] = value

	return s.write(matchID, raw)
}

// GenerateTurnOrder produces a uniformly random permutation of the roster,
// persists it with the turn index reset to 0, and returns it.
func (s *Store) GenerateTurnOrder(matchID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(matchID)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0, len(snap.Players))
	for id := range snap.Players {
		order = append(order, id)
	}
	rand.Shuffle(len(order), func(i, j int) {
		order[i], order[j] = order[j], order[i]
	})

	snap.TurnOrder = order
	snap.CurrentTurnIndex = 0

	if err := s.write(matchID, snap); err != nil {
		return nil, err
	}

	return order, nil
}

// GenerateBoard rolls a random terrain layout (cell types 0-3) for a square
// board of the given size and persists it on the document.
func (s *Store) GenerateBoard(matchID string, size int) ([][]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.read(matchID)
	if err != nil {
		return nil, err
	}

	layout := make([][]int, size)
	for i := range layout {
		row := make([]int, size)
		for j := range row {
			row[j] = rand.IntN(4)
		}
		layout[i] = row
	}

	snap.BoardLayout = layout

	if err := s.write(matchID, snap); err != nil {
		return nil, err
	}

	return layout, nil
}

// Delete removes the match document. Missing documents are a no-op.
func (s *Store) Delete(matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(matchID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing match document: %w", err)
	}
	return nil
}

func (s *Store) path(matchID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("match_%s.json", matchID))
}

func (s *Store) read(matchID string) (*Snapshot, error) {
	data, err := os.ReadFile(s.path(matchID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("match %q: %w", matchID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading match document: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshalling match document: %w", err)
	}

	return &snap, nil
}

func (s *Store) readRaw(matchID string) (map[string]any, error) {
	data, err := os.ReadFile(s.path(matchID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("match %q: %w", matchID, ErrNotFound)
		}
		return nil, fmt.Errorf("reading match document: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshalling match document: %w", err)
	}

	return raw, nil
}

func (s *Store) write(matchID string, doc any) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling match document: %w", err)
	}

	return storage.WriteFileAtomic(s.path(matchID), data, 0644)
}
