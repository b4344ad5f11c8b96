package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"quadclock/internal/game"
	"quadclock/internal/protocol"
)

const (
	// MaxWSConnectionsTotal caps the whole hub.
	MaxWSConnectionsTotal = 500

	// MaxWSConnectionsPerIP caps one venue's misbehaving display wall.
	MaxWSConnectionsPerIP = 10
)

// subscription is what one socket is listening to. A socket is either
// in the lobby or on one game; re-subscribing replaces the previous
// subscription.
type subscription struct {
	lobby  bool
	gameID string
	role   protocol.Role
}

// wsClient is one connected socket. Writes are serialized per client so
// broadcasts and direct replies never interleave mid-frame.
type wsClient struct {
	conn    *websocket.Conn
	ip      string
	writeMu sync.Mutex
	sub     *subscription // guarded by Hub.mu
}

func (c *wsClient) send(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub owns every WebSocket connection: subscriptions, role checks, and
// snapshot fan-out after each applied batch. Message handling is
// serialized per connection by the read loop, and the coordinator
// serializes per game, so engine state transitions never interleave.
type Hub struct {
	coordinator *Coordinator
	wsLimiter   *WebSocketRateLimiter
	upgrader    websocket.Upgrader

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// NewHub creates a hub bound to the coordinator.
func NewHub(coordinator *Coordinator, origins *OriginChecker) *Hub {
	if origins == nil {
		origins = NewOriginChecker(nil)
	}
	return &Hub{
		coordinator: coordinator,
		wsLimiter:   NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		clients:     make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origins.Allowed(origin) {
					return true
				}
				log.Warn().Str("origin", origin).Msg("websocket origin rejected")
				RecordConnectionRejected("origin")
				return false
			},
		},
	}
}

// ConnectionCount returns the number of connected sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and runs its read loop.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if h.ConnectionCount() >= MaxWSConnectionsTotal {
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.wsLimiter.Allow(ip) {
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("ip", ip).Msg("websocket upgrade failed")
		h.wsLimiter.Release(ip)
		return
	}

	client := &wsClient{conn: conn, ip: ip}
	h.register(client)
	go h.readLoop(client)
}

func (h *Hub) register(client *wsClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	log.Info().Str("ip", client.ip).Int("total", count).Msg("socket connected")
	UpdateWSConnections(count)
}

func (h *Hub) unregister(client *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, client)
		client.conn.Close()
	}
	count := len(h.clients)
	h.mu.Unlock()

	log.Info().Str("ip", client.ip).Int("total", count).Msg("socket disconnected")
	UpdateWSConnections(count)
}

// readLoop processes this socket's messages one at a time.
func (h *Hub) readLoop(client *wsClient) {
	defer h.unregister(client)

	for {
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		h.handleMessage(client, data)
	}
}

func (h *Hub) handleMessage(client *wsClient, data []byte) {
	msg, err := protocol.DecodeClientMessage(data)
	if err != nil {
		// Protocol errors are reported but keep the connection open.
		client.send(protocol.NewError(protocol.ErrCodeBadMessage, err.Error()))
		return
	}

	switch m := msg.(type) {
	case protocol.SubscribeLobby:
		h.setSubscription(client, &subscription{lobby: true})
		client.send(protocol.NewLobbySnapshot(h.coordinator.Summaries(), h.coordinator.NowMs()))
		RecordSnapshotSent()

	case protocol.SubscribeGame:
		view, err := h.coordinator.View(m.GameID)
		if err != nil {
			client.send(protocol.NewError(protocol.ErrCodeUnknownGame, "no such game: "+m.GameID))
			return
		}
		h.setSubscription(client, &subscription{gameID: m.GameID, role: m.Role})
		client.send(protocol.NewGameSnapshot(view, h.coordinator.NowMs(), nil))
		RecordSnapshotSent()

	case protocol.ApplyCommands:
		sub := h.subscriptionOf(client)
		if sub == nil || sub.lobby || sub.gameID != m.GameID || sub.role != protocol.RoleController {
			client.send(protocol.NewError(protocol.ErrCodeNotController,
				"apply-commands requires a controller subscription to this game"))
			return
		}
		view, ackedIDs, err := h.coordinator.ApplyBatch(m.GameID, m.Envelopes)
		if err != nil {
			client.send(protocol.NewError(protocol.ErrCodeUnknownGame, "no such game: "+m.GameID))
			return
		}
		h.broadcastGame(m.GameID, view, client, ackedIDs)
		h.BroadcastLobby()
	}
}

func (h *Hub) setSubscription(client *wsClient, sub *subscription) {
	h.mu.Lock()
	client.sub = sub
	h.mu.Unlock()
}

func (h *Hub) subscriptionOf(client *wsClient) *subscription {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return client.sub
}

// broadcastGame fans the fresh snapshot out to every subscriber of the
// game. Only the sender receives the acked id list; the others have
// nothing to confirm.
func (h *Hub) broadcastGame(gameID string, view game.GameView, sender *wsClient, ackedIDs []string) {
	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if client.sub != nil && !client.sub.lobby && client.sub.gameID == gameID {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	nowMs := h.coordinator.NowMs()
	for _, client := range targets {
		acked := []string{}
		if client == sender {
			acked = ackedIDs
		}
		if err := client.send(protocol.NewGameSnapshot(view, nowMs, acked)); err != nil {
			h.unregister(client)
			continue
		}
		RecordSnapshotSent()
	}
}

// BroadcastLobby pushes a fresh lobby snapshot to lobby subscribers.
// Called after every state change that affects the game list.
func (h *Hub) BroadcastLobby() {
	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients))
	for client := range h.clients {
		if client.sub != nil && client.sub.lobby {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		return
	}
	snapshot := protocol.NewLobbySnapshot(h.coordinator.Summaries(), h.coordinator.NowMs())
	for _, client := range targets {
		if err := client.send(snapshot); err != nil {
			h.unregister(client)
			continue
		}
		RecordSnapshotSent()
	}
}
