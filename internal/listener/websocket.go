package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"nhooyr.io/websocket"

	"github.com/pixil98/go-arena/internal/board"
	"github.com/pixil98/go-arena/internal/match"
	"github.com/pixil98/go-arena/internal/messaging"
)

// Subscriber is the read side of the event bus: the listener subscribes
// each connection to its match's room subject.
type Subscriber interface {
	Subscribe(subject string, handler func(data []byte)) (func(), error)
}

// WebsocketListener serves the client transport. Each connection joins one
// match, after which its actions are dispatched into the engine and the
// match room's broadcast events are pumped back over the socket.
type WebsocketListener struct {
	port   uint16
	engine *match.Engine
	bus    Subscriber
}

func NewWebsocketListener(port uint16, engine *match.Engine, bus Subscriber) *WebsocketListener {
	return &WebsocketListener{
		port:   port,
		engine: engine,
		bus:    bus,
	}
}

func (l *WebsocketListener) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", l.handleWebsocket)
	mux.HandleFunc("POST /matches", l.handleCreateMatch)
	mux.HandleFunc("GET /matches/{id}/turn", l.handleWhoseTurn)

	svr := &http.Server{
		Addr:        fmt.Sprintf(":%d", l.port),
		Handler:     mux,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := svr.Shutdown(shutdownCtx); err != nil {
				slog.Warn("shutting down websocket listener", "error", err)
			}
		case <-done:
		}
	}()

	err := svr.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("port %d is already in use (another server running?)", l.port)
		}
		return fmt.Errorf("serving websocket on port %d: %w", l.port, err)
	}

	return nil
}

// wsMessage is the JSON envelope for inbound client messages.
type wsMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	MatchID       string `json:"match_id"`
	ParticipantID string `json:"participant_id"`
}

type movePayload struct {
	MatchID       string         `json:"match_id"`
	ParticipantID string         `json:"participant_id"`
	Target        board.Position `json:"target"`
}

type attackExecutePayload struct {
	MatchID    string `json:"match_id"`
	AttackerID string `json:"attacker_id"`
	TargetID   string `json:"target_id"`
}

type errorPayload struct {
	Class   string `json:"class"`
	Message string `json:"message"`
}

func (l *WebsocketListener) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // origin checks belong to the fronting proxy
	})
	if err != nil {
		slog.Warn("websocket accept", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The request context is only cancelled once the handler returns, so the
	// writer needs a per-connection context that dies with the reader.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// First message must be a join
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg wsMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		sendDirect(ctx, conn, "error", errorPayload{Class: "validation", Message: "first message must be a join"})
		return
	}
	var join joinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.MatchID == "" || join.ParticipantID == "" {
		sendDirect(ctx, conn, "error", errorPayload{Class: "validation", Message: "invalid join payload"})
		return
	}

	// Room events flow through the send channel so engine broadcasts never
	// block on this socket.
	send := make(chan []byte, 64)
	unsubscribe, err := l.bus.Subscribe(messaging.MatchSubject(join.MatchID), func(data []byte) {
		select {
		case send <- data:
		default:
			// Slow consumer; it resynchronizes from the snapshot on rejoin.
		}
	})
	if err != nil {
		sendDirect(ctx, conn, "error", errorPayload{Class: "internal", Message: "subscribing to match room"})
		return
	}
	defer unsubscribe()

	// Writer goroutine: pump room events to the socket
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case data := <-send:
				if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
					return
				}
			}
		}
	}()

	if err := l.engine.Join(join.MatchID, join.ParticipantID); err != nil {
		sendDirect(ctx, conn, "error", errorPayload{Class: match.ErrorClass(err), Message: err.Error()})
		return
	}

	// Reader loop: dispatch actions until the client goes away
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sendDirect(ctx, conn, "error", errorPayload{Class: "validation", Message: "invalid message"})
			continue
		}
		l.handleMessage(ctx, conn, join, msg)
	}

	cancel()
	<-writerDone
	slog.InfoContext(ctx, "participant disconnected", "match", join.MatchID, "participant", join.ParticipantID)
}

func (l *WebsocketListener) handleMessage(ctx context.Context, conn *websocket.Conn, join joinPayload, msg wsMessage) {
	var err error

	switch msg.Type {
	case "join":
		// Idempotent rejoin: full state resync, no respawn
		err = l.engine.Join(join.MatchID, join.ParticipantID)

	case "move":
		var mp movePayload
		if jErr := json.Unmarshal(msg.Payload, &mp); jErr != nil {
			sendDirect(ctx, conn, "error", errorPayload{Class: "validation", Message: "invalid move payload"})
			return
		}
		err = l.engine.Move(orDefault(mp.MatchID, join.MatchID), orDefault(mp.ParticipantID, join.ParticipantID), mp.Target)

	case "roll":
		err = l.engine.Roll(join.MatchID, join.ParticipantID)

	case "attack_query":
		err = l.engine.AttackQuery(join.MatchID, join.ParticipantID)

	case "attack_execute":
		var ap attackExecutePayload
		if jErr := json.Unmarshal(msg.Payload, &ap); jErr != nil {
			sendDirect(ctx, conn, match.EventAttackResult, match.AttackResult{Success: false, Message: "invalid attack parameters"})
			return
		}
		err = l.engine.AttackExecute(orDefault(ap.MatchID, join.MatchID), orDefault(ap.AttackerID, join.ParticipantID), ap.TargetID)
		if err != nil {
			// Attack failures are reported to the requester as a result
			sendDirect(ctx, conn, match.EventAttackResult, match.AttackResult{Success: false, Message: err.Error()})
			return
		}

	case "leave":
		err = l.engine.Leave(join.MatchID, join.ParticipantID)

	default:
		sendDirect(ctx, conn, "error", errorPayload{Class: "validation", Message: fmt.Sprintf("unknown action %q", msg.Type)})
		return
	}

	if err != nil {
		sendDirect(ctx, conn, "error", errorPayload{Class: match.ErrorClass(err), Message: err.Error()})
	}
}

// sendDirect delivers an event to this connection only, bypassing the room.
func sendDirect(ctx context.Context, conn *websocket.Conn, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("marshalling direct payload", "event", event, "error", err)
		return
	}
	env, err := json.Marshal(messaging.Envelope{Event: event, Data: data})
	if err != nil {
		slog.Warn("marshalling direct envelope", "event", event, "error", err)
		return
	}
	if err := conn.Write(ctx, websocket.MessageText, env); err != nil {
		slog.Debug("writing to websocket", "event", event, "error", err)
	}
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
