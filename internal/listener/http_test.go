package listener

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pixil98/go-arena/internal/catalog"
	"github.com/pixil98/go-arena/internal/match"
	"github.com/pixil98/go-arena/internal/snapshot"
	"github.com/pixil98/go-arena/internal/storage"
	"github.com/pixil98/go-testutil"
)

type nopPublisher struct{}

func (nopPublisher) Publish(matchID, event string, payload any) error { return nil }

func newTestListener(t *testing.T) (*WebsocketListener, *match.Engine) {
	t.Helper()

	chars, err := storage.NewStaticStore(catalog.DefaultCharacters())
	if err != nil {
		t.Fatalf("building character store: %v", err)
	}
	dice, err := storage.NewStaticStore(catalog.DefaultDice())
	if err != nil {
		t.Fatalf("building dice store: %v", err)
	}
	store, err := snapshot.NewStore(t.TempDir(), chars)
	if err != nil {
		t.Fatalf("building snapshot store: %v", err)
	}

	registry := match.NewRegistry(store)
	engine := match.NewEngine(registry, store, chars, dice, nopPublisher{})
	return NewWebsocketListener(0, engine, nil), engine
}

func TestHandleCreateMatch(t *testing.T) {
	l, _ := newTestListener(t)

	body := `{"roster":[{"id":"p1","user":"alice","character_id":"ditte"},{"id":"p2","user":"bob","character_id":"tontar"}]}`
	r := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(body))
	w := httptest.NewRecorder()

	l.handleCreateMatch(w, r)

	testutil.AssertEqual(t, "status", w.Code, http.StatusCreated)

	var resp createMatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.MatchID == "" {
		t.Error("expected a match id")
	}
}

func TestHandleCreateMatch_BadRequests(t *testing.T) {
	tests := map[string]struct {
		body string
	}{
		"invalid json":     {body: `{not json`},
		"empty roster":     {body: `{"roster":[]}`},
		"missing roster":   {body: `{}`},
		"member id absent": {body: `{"roster":[{"user":"alice"}]}`},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			l, _ := newTestListener(t)
			r := httptest.NewRequest(http.MethodPost, "/matches", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			l.handleCreateMatch(w, r)

			testutil.AssertEqual(t, "status", w.Code, http.StatusBadRequest)
		})
	}
}

func TestHandleWhoseTurn(t *testing.T) {
	l, engine := newTestListener(t)

	id, err := engine.CreateMatch([]snapshot.Member{
		{ID: "p1", User: "alice", CharacterID: "ditte"},
		{ID: "p2", User: "bob", CharacterID: "ditte"},
	})
	if err != nil {
		t.Fatalf("creating match: %v", err)
	}
	if err := engine.Join(id, "p1"); err != nil {
		t.Fatalf("joining p1: %v", err)
	}
	if err := engine.Join(id, "p2"); err != nil {
		t.Fatalf("joining p2: %v", err)
	}

	r := httptest.NewRequest(http.MethodGet, "/matches/"+id+"/turn", nil)
	r.SetPathValue("id", id)
	w := httptest.NewRecorder()

	l.handleWhoseTurn(w, r)

	testutil.AssertEqual(t, "status", w.Code, http.StatusOK)

	var turn match.TurnUpdate
	if err := json.Unmarshal(w.Body.Bytes(), &turn); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if turn.Turn != "p1" && turn.Turn != "p2" {
		t.Errorf("turn holder %q not on the roster", turn.Turn)
	}
}

func TestHandleWhoseTurn_NotFound(t *testing.T) {
	l, _ := newTestListener(t)

	r := httptest.NewRequest(http.MethodGet, "/matches/nosuch/turn", nil)
	r.SetPathValue("id", "nosuch")
	w := httptest.NewRecorder()

	l.handleWhoseTurn(w, r)

	testutil.AssertEqual(t, "status", w.Code, http.StatusNotFound)
}
