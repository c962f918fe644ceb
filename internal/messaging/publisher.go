package messaging

import (
	"encoding/json"
	"fmt"
)

// Envelope is the wire framing for match-room events on the bus: an event
// name plus its JSON payload. The websocket layer forwards envelopes to
// clients verbatim.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// MatchSubject returns the bus subject for a match room.
func MatchSubject(matchID string) string {
	return fmt.Sprintf("match.%s", matchID)
}

// RoomPublisher broadcasts engine events to a match's room subject. Every
// subscriber of the subject (one per connected participant) receives each
// event, at-least-once.
type RoomPublisher struct {
	server *NatsServer
}

// NewRoomPublisher wraps a NatsServer for match-room event delivery.
func NewRoomPublisher(server *NatsServer) *RoomPublisher {
	return &RoomPublisher{server: server}
}

func (p *RoomPublisher) Publish(matchID, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshalling %s payload: %w", event, err)
	}

	env, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshalling envelope: %w", err)
	}

	return p.server.Publish(MatchSubject(matchID), env)
}
