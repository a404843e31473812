package relay

import (
	"encoding/json"
	"fmt"
)

// Wire event names exchanged with the relay server.
const (
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventMessageToRoom = "messageToRoom"
	EventMessage       = "message"
	EventError         = "error"
)

// Envelope is one JSON text frame on the relay websocket.
type Envelope struct {
	Event string          `json:"event" jsonschema:"enum=joinRoom,enum=leaveRoom,enum=messageToRoom,enum=message,enum=error"`
	Data  json.RawMessage `json:"data,omitempty" jsonschema:"description=room id string or RoomMessage or message text depending on event"`
}

// RoomMessage is the data of a messageToRoom frame.
type RoomMessage struct {
	Room    string `json:"room" jsonschema:"format=uuid"`
	Message string `json:"message"`
}

// NewEnvelope encodes data into a frame for event.
func NewEnvelope(event string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s data: %w", event, err)
	}
	return Envelope{Event: event, Data: raw}, nil
}

// Text decodes the data of frames whose payload is a plain string. Non-string
// payloads are returned as raw JSON text.
func (e Envelope) Text() string {
	if len(e.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return string(e.Data)
}

// RoomMessage decodes the data of a messageToRoom frame.
func (e Envelope) RoomMessage() (RoomMessage, error) {
	var m RoomMessage
	if err := json.Unmarshal(e.Data, &m); err != nil {
		return RoomMessage{}, fmt.Errorf("decode room message: %w", err)
	}
	return m, nil
}
