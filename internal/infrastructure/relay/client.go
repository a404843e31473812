package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/domain/retry"
	"github.com/beepcard/beep-tap/internal/domain/tap"
	"github.com/beepcard/beep-tap/internal/infrastructure/metrics"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is the websocket implementation of tap.Channel.
//
// Each Connect starts a new connection epoch. Disconnect and a later Connect
// both end the current epoch; goroutines of an ended epoch never emit events.
type Client struct {
	url    string
	token  string
	dialer *websocket.Dialer
	policy retry.Policy
	log    zerolog.Logger
	events chan tap.ChannelEvent

	mu     sync.Mutex
	epoch  uint64
	conn   *websocket.Conn
	cancel context.CancelFunc

	writeMu sync.Mutex
}

// NewClient creates a relay client for url. token, when set, is sent as a
// bearer token on the websocket handshake.
func NewClient(url, token string, policy retry.Policy, log zerolog.Logger) *Client {
	return &Client{
		url:    url,
		token:  token,
		policy: policy,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		log:    log.With().Str("component", "relay-client").Logger(),
		events: make(chan tap.ChannelEvent, 64),
	}
}

// Events implements tap.Channel.
func (c *Client) Events() <-chan tap.ChannelEvent {
	return c.events
}

// Connect implements tap.Channel. It returns immediately; the outcome is
// reported on Events.
func (c *Client) Connect(ctx context.Context, gen tap.Generation) {
	c.mu.Lock()
	c.teardownLocked()
	c.epoch++
	epoch := c.epoch
	connCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.dial(connCtx, gen, epoch)
}

// Disconnect implements tap.Channel.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil && c.conn == nil {
		return
	}
	c.epoch++
	c.teardownLocked()
	c.log.Debug().Msg("relay disconnected locally")
}

// JoinRoom implements tap.Channel.
func (c *Client) JoinRoom(room string) error {
	return c.send(EventJoinRoom, room)
}

// LeaveRoom asks the relay to remove this client from room.
func (c *Client) LeaveRoom(room string) error {
	return c.send(EventLeaveRoom, room)
}

// Publish implements tap.Channel.
func (c *Client) Publish(room, payload string) error {
	return c.send(EventMessageToRoom, RoomMessage{Room: room, Message: payload})
}

func (c *Client) send(event string, data any) error {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return tap.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(env); err != nil {
		return fmt.Errorf("write %s: %w", event, err)
	}
	return nil
}

func (c *Client) dial(ctx context.Context, gen tap.Generation, epoch uint64) {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	var conn *websocket.Conn
	exec := retry.NewExecutor(c.policy).OnRetry(func(attempt int, delay time.Duration, err error) {
		c.log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("relay dial failed, retrying")
	})
	err := exec.Execute(ctx, func(ctx context.Context, _ int) error {
		ws, resp, err := c.dialer.DialContext(ctx, c.url, header)
		if err != nil {
			metrics.RecordRelayConnect(false)
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				return retry.Permanent(fmt.Errorf("relay handshake rejected: %s", resp.Status))
			}
			return err
		}
		conn = ws
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error().Err(err).Str("url", c.url).Msg("relay unreachable")
		c.emit(ctx, epoch, tap.ChannelEvent{Kind: tap.ChannelEventFailed, Gen: gen, Err: err})
		return
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	metrics.RecordRelayConnect(true)
	c.log.Info().Str("url", c.url).Uint64("generation", uint64(gen)).Msg("relay connected")
	c.emit(ctx, epoch, tap.ChannelEvent{Kind: tap.ChannelEventConnected, Gen: gen})

	go c.keepAlive(ctx, conn)
	c.read(ctx, conn, gen, epoch)
}

func (c *Client) read(ctx context.Context, conn *websocket.Conn, gen tap.Generation, epoch uint64) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.dropped(conn, gen, epoch, err)
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.log.Warn().Err(err).Int("size", len(raw)).Msg("ignoring undecodable relay frame")
			continue
		}

		switch env.Event {
		case EventMessage:
			c.emit(ctx, epoch, tap.ChannelEvent{Kind: tap.ChannelEventMessage, Gen: gen, Payload: env.Text()})
		case EventError:
			c.log.Warn().Str("error", env.Text()).Msg("relay reported an error")
		default:
			c.log.Debug().Str("event", env.Event).Msg("ignoring relay frame")
		}
	}
}

func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) dropped(conn *websocket.Conn, gen tap.Generation, epoch uint64, err error) {
	c.mu.Lock()
	current := c.epoch == epoch
	if current {
		c.conn = nil
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
	}
	c.mu.Unlock()
	_ = conn.Close()

	if !current {
		return
	}
	c.log.Warn().Err(err).Uint64("generation", uint64(gen)).Msg("relay connection lost")
	select {
	case c.events <- tap.ChannelEvent{Kind: tap.ChannelEventDisconnected, Gen: gen, Err: err}:
	case <-time.After(pongWait):
		c.log.Error().Msg("disconnect event dropped, nobody is reading relay events")
	}
}

// emit delivers ev unless the epoch has ended.
func (c *Client) emit(ctx context.Context, epoch uint64, ev tap.ChannelEvent) {
	c.mu.Lock()
	current := c.epoch == epoch
	c.mu.Unlock()
	if !current {
		return
	}
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}

func (c *Client) teardownLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		conn := c.conn
		c.conn = nil
		go func() {
			c.writeMu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			c.writeMu.Unlock()
			_ = conn.Close()
		}()
	}
}
