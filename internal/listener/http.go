package listener

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/pixil98/go-arena/internal/match"
	"github.com/pixil98/go-arena/internal/snapshot"
)

type createMatchRequest struct {
	Roster []rosterMember `json:"roster"`
}

type rosterMember struct {
	ID          string `json:"id"`
	User        string `json:"user"`
	CharacterID string `json:"character_id"`
}

type createMatchResponse struct {
	MatchID string `json:"match_id"`
}

// handleCreateMatch is the lobby-facing hook: the lobby posts its roster
// when a house transitions to in-progress and gets back the match id its
// members join with.
func (l *WebsocketListener) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	roster := make([]snapshot.Member, 0, len(req.Roster))
	for _, m := range req.Roster {
		if m.ID == "" {
			http.Error(w, "roster member id is required", http.StatusBadRequest)
			return
		}
		roster = append(roster, snapshot.Member{
			ID:          m.ID,
			User:        m.User,
			CharacterID: m.CharacterID,
		})
	}

	matchID, err := l.engine.CreateMatch(roster)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(createMatchResponse{MatchID: matchID}); err != nil {
		slog.Warn("encoding create match response", "error", err)
	}
}

// handleWhoseTurn reports whose turn it is in an active match.
func (l *WebsocketListener) handleWhoseTurn(w http.ResponseWriter, r *http.Request) {
	turn, err := l.engine.WhoseTurn(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(turn); err != nil {
		slog.Warn("encoding turn response", "error", err)
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, match.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, match.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, match.ErrIllegalState):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}
