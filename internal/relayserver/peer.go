package relayserver

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/infrastructure/metrics"
	"github.com/beepcard/beep-tap/internal/infrastructure/relay"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

// peer is one websocket connection. rooms is guarded by the hub lock.
type peer struct {
	id      string
	subject string
	conn    *websocket.Conn
	hub     *Hub
	log     zerolog.Logger

	send      chan []byte
	closeOnce sync.Once
	closed    chan struct{}

	rooms map[string]struct{}
}

func newPeer(id, subject string, conn *websocket.Conn, hub *Hub, log zerolog.Logger) *peer {
	return &peer{
		id:      id,
		subject: subject,
		conn:    conn,
		hub:     hub,
		log:     log.With().Str("peer", id).Logger(),
		send:    make(chan []byte, sendBuffer),
		closed:  make(chan struct{}),
		rooms:   make(map[string]struct{}),
	}
}

// enqueue queues frame without blocking. A peer that cannot keep up is
// disconnected.
func (p *peer) enqueue(frame []byte) bool {
	select {
	case <-p.closed:
		return false
	default:
	}
	select {
	case p.send <- frame:
		return true
	default:
		p.log.Warn().Msg("send buffer full, dropping peer")
		p.close()
		return false
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() { close(p.closed) })
}

func (p *peer) sendEvent(event string, data any) {
	env, err := relay.NewEnvelope(event, data)
	if err != nil {
		p.log.Error().Err(err).Msg("encode frame")
		return
	}
	frame, err := json.Marshal(env)
	if err != nil {
		p.log.Error().Err(err).Msg("encode frame")
		return
	}
	p.enqueue(frame)
}

func (p *peer) readPump() {
	defer func() {
		p.hub.unregister(p)
		p.close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env relay.Envelope
		if err := p.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.log.Debug().Err(err).Msg("peer read failed")
			}
			return
		}
		metrics.RecordRelayMessage(env.Event)
		p.handle(env)
	}
}

func (p *peer) handle(env relay.Envelope) {
	switch env.Event {
	case relay.EventJoinRoom:
		room := strings.TrimSpace(env.Text())
		if room == "" {
			p.sendEvent(relay.EventError, "joinRoom requires a room id")
			return
		}
		p.hub.join(p, room)

	case relay.EventLeaveRoom:
		p.hub.leave(p, strings.TrimSpace(env.Text()))

	case relay.EventMessageToRoom:
		msg, err := env.RoomMessage()
		if err != nil || strings.TrimSpace(msg.Room) == "" {
			p.sendEvent(relay.EventError, "messageToRoom requires {room, message}")
			return
		}
		out, err := relay.NewEnvelope(relay.EventMessage, msg.Message)
		if err != nil {
			return
		}
		frame, err := json.Marshal(out)
		if err != nil {
			return
		}
		delivered := p.hub.broadcast(msg.Room, p, frame)
		p.log.Debug().Str("room", msg.Room).Int("delivered", delivered).Msg("room message relayed")

	default:
		p.sendEvent(relay.EventError, "unknown event "+env.Event)
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = p.conn.Close()
	}()

	for {
		select {
		case frame := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			if err := p.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-p.closed:
			_ = p.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
