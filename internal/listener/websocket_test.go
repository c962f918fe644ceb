package listener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/pixil98/go-arena/internal/snapshot"
)

// fakeBus hands out an unsubscribe closure and records when it fires. The
// handler defers unsubscribe, so the flag doubles as proof the handler
// returned.
type fakeBus struct {
	mu           sync.Mutex
	unsubscribed bool
}

func (b *fakeBus) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		b.unsubscribed = true
	}, nil
}

func (b *fakeBus) done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.unsubscribed
}

func TestHandleWebsocket_ReturnsOnClientDisconnect(t *testing.T) {
	l, engine := newTestListener(t)
	bus := &fakeBus{}
	l.bus = bus

	id, err := engine.CreateMatch([]snapshot.Member{
		{ID: "p1", User: "alice", CharacterID: "ditte"},
		{ID: "p2", User: "bob", CharacterID: "ditte"},
	})
	if err != nil {
		t.Fatalf("creating match: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(l.handleWebsocket))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dialing: %v", err)
	}

	join := `{"type":"join","payload":{"match_id":"` + id + `","participant_id":"p1"}}`
	if err := conn.Write(ctx, websocket.MessageText, []byte(join)); err != nil {
		t.Fatalf("sending join: %v", err)
	}

	// Dropping the client must unwind the whole handler, writer pump
	// included, not just the read loop.
	conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for !bus.done() {
		if time.Now().After(deadline) {
			t.Fatal("handler did not return after the client disconnected")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
