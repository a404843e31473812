// Package relayserver implements the room relay that phones and physical
// terminals meet on. A terminal joins the room named by the UUID in its QR
// code; a phone joins the same room and publishes its card number; the
// terminal answers with the tap result.
package relayserver

import (
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/beepcard/beep-tap/internal/infrastructure/metrics"
)

// ErrRoomNotFound is returned for rooms without members.
var ErrRoomNotFound = errors.New("room not found")

// RoomInfo summarizes one open room.
type RoomInfo struct {
	ID      string   `json:"id"`
	Members int      `json:"members"`
	Peers   []string `json:"peers,omitempty"`
}

// Hub tracks peers and room membership. Rooms exist while they have members.
type Hub struct {
	mu    sync.RWMutex
	peers map[*peer]struct{}
	rooms map[string]map[*peer]struct{}
	log   zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		peers: make(map[*peer]struct{}),
		rooms: make(map[string]map[*peer]struct{}),
		log:   log.With().Str("component", "relay-hub").Logger(),
	}
}

func (h *Hub) register(p *peer) {
	h.mu.Lock()
	h.peers[p] = struct{}{}
	count := len(h.peers)
	h.mu.Unlock()

	metrics.RelayClients.Set(float64(count))
	h.log.Debug().Str("peer", p.id).Int("peers", count).Msg("peer connected")
}

// unregister removes p from the hub and every room it joined.
func (h *Hub) unregister(p *peer) {
	h.mu.Lock()
	delete(h.peers, p)
	for room := range p.rooms {
		h.leaveLocked(p, room)
	}
	peers, rooms := len(h.peers), len(h.rooms)
	h.mu.Unlock()

	metrics.RelayClients.Set(float64(peers))
	metrics.RelayRooms.Set(float64(rooms))
	h.log.Debug().Str("peer", p.id).Int("peers", peers).Msg("peer disconnected")
}

func (h *Hub) join(p *peer, room string) {
	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*peer]struct{})
		h.rooms[room] = members
	}
	members[p] = struct{}{}
	p.rooms[room] = struct{}{}
	size, rooms := len(members), len(h.rooms)
	h.mu.Unlock()

	metrics.RelayRooms.Set(float64(rooms))
	h.log.Info().Str("peer", p.id).Str("room", room).Int("members", size).Msg("peer joined room")
}

func (h *Hub) leave(p *peer, room string) {
	h.mu.Lock()
	h.leaveLocked(p, room)
	rooms := len(h.rooms)
	h.mu.Unlock()

	metrics.RelayRooms.Set(float64(rooms))
}

func (h *Hub) leaveLocked(p *peer, room string) {
	delete(p.rooms, room)
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, p)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// broadcast queues frame for every member of room except from and returns
// how many peers it was queued for.
func (h *Hub) broadcast(room string, from *peer, frame []byte) int {
	h.mu.RLock()
	targets := make([]*peer, 0, len(h.rooms[room]))
	for member := range h.rooms[room] {
		if member != from {
			targets = append(targets, member)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, member := range targets {
		if member.enqueue(frame) {
			delivered++
		}
	}
	return delivered
}

// Rooms lists open rooms ordered by id.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RoomInfo, 0, len(h.rooms))
	for id, members := range h.rooms {
		out = append(out, RoomInfo{ID: id, Members: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Room describes one room including its peer ids.
func (h *Hub) Room(id string) (RoomInfo, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[id]
	if !ok {
		return RoomInfo{}, ErrRoomNotFound
	}
	info := RoomInfo{ID: id, Members: len(members)}
	for p := range members {
		info.Peers = append(info.Peers, p.id)
	}
	sort.Strings(info.Peers)
	return info, nil
}

// PeerCount returns the number of connected peers.
func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// Close disconnects every peer.
func (h *Hub) Close() {
	h.mu.RLock()
	peers := make([]*peer, 0, len(h.peers))
	for p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	for _, p := range peers {
		p.close()
	}
}
