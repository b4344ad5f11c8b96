package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"quadclock/internal/game"
	"quadclock/internal/protocol"
)

// Reconnect pacing. Local-only mode retries on the long interval since
// the server has said it does not know the game; anything shorter just
// burns the venue's uplink.
var (
	reconnectBackoff  = []time.Duration{time.Second, 2 * time.Second, 5 * time.Second, 10 * time.Second}
	localOnlyInterval = 30 * time.Second
)

var errNotConnected = errors.New("not connected")

// Connector owns the controller's WebSocket connection: it subscribes
// as controller, flushes the reconciler's pending queue, feeds incoming
// snapshots back into reconciliation, and degrades to local-only
// operation when the server no longer knows the game.
type Connector struct {
	url        string
	gameID     string
	reconciler *Reconciler
	clock      clockwork.Clock
	dialer     *websocket.Dialer

	// OnView, when set, is called with every fresh local projection.
	OnView func(game.GameView)
	// OnMode, when set, is called on every mode transition, including
	// the explicit "continuing locally" signal.
	OnMode func(Mode)

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	// attempt guards against a stale connect callback mutating state
	// after a newer attempt has taken over.
	attempt atomic.Uint64

	flushCh chan struct{}
}

// NewConnector creates a connector for one game.
func NewConnector(url, gameID string, reconciler *Reconciler, clock clockwork.Clock) *Connector {
	return &Connector{
		url:        url,
		gameID:     gameID,
		reconciler: reconciler,
		clock:      clock,
		dialer:     websocket.DefaultDialer,
		flushCh:    make(chan struct{}, 1),
	}
}

// Dispatch applies a command optimistically and schedules a flush. It
// never blocks: the UI gets its update from the returned view while the
// network catches up whenever it can.
func (c *Connector) Dispatch(cmd game.Command) bool {
	if _, ok := c.reconciler.Dispatch(cmd); !ok {
		return false
	}
	c.notifyView()
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
	return true
}

// Run drives the connection until ctx is cancelled. Each pass dials,
// subscribes, then reads until the connection drops; the pending queue
// survives every reconnect.
func (c *Connector) Run(ctx context.Context) {
	failures := 0
	for ctx.Err() == nil {
		attempt := c.attempt.Add(1)

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			log.Warn().Err(err).Str("game", c.gameID).Msg("connect failed")
			c.setDisconnectedMode()
			if !c.sleep(ctx, c.backoffDelay(failures)) {
				return
			}
			failures++
			continue
		}

		c.setConn(conn)
		if err := c.subscribe(); err != nil {
			log.Warn().Err(err).Msg("subscribe failed")
			c.closeConn()
			if !c.sleep(ctx, c.backoffDelay(failures)) {
				return
			}
			failures++
			continue
		}
		failures = 0

		flushCtx, stopFlush := context.WithCancel(ctx)
		go c.flushLoop(flushCtx)
		c.readLoop(attempt)
		stopFlush()
		c.closeConn()

		if ctx.Err() != nil {
			return
		}
		c.setDisconnectedMode()
		if !c.sleep(ctx, c.backoffDelay(failures)) {
			return
		}
		failures++
	}
}

func (c *Connector) subscribe() error {
	payload, err := protocol.EncodeSubscribeGame(c.gameID, protocol.RoleController)
	if err != nil {
		return err
	}
	return c.write(payload)
}

// readLoop consumes server frames until the connection errors. Frames
// from a superseded attempt are dropped before they can touch state.
func (c *Connector) readLoop(attempt uint64) {
	conn := c.currentConn()
	if conn == nil {
		return
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if c.attempt.Load() != attempt {
			return
		}
		c.handleFrame(data)
	}
}

func (c *Connector) handleFrame(data []byte) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		log.Debug().Err(err).Msg("unreadable server frame")
		return
	}

	switch probe.Type {
	case protocol.TypeGameSnapshot:
		var snapshot protocol.GameSnapshot
		if err := json.Unmarshal(data, &snapshot); err != nil || snapshot.Game.State == nil {
			log.Debug().Err(err).Msg("malformed game snapshot")
			return
		}
		// A successful snapshot always exits local-only and
		// re-reconciles against server truth.
		c.reconciler.ApplySnapshot(snapshot.Game.State, snapshot.ServerNowMs, snapshot.AckedCommandIDs)
		c.notifyMode(ModeOnline)
		c.notifyView()
		c.requestFlush()

	case protocol.TypeError:
		var errMsg protocol.ErrorMessage
		if err := json.Unmarshal(data, &errMsg); err != nil {
			return
		}
		log.Warn().Str("code", errMsg.Code).Str("message", errMsg.Message).Msg("server rejected input")
		if errMsg.Code == protocol.ErrCodeUnknownGame {
			if c.reconciler.EnterLocalOnly() {
				// Continuing locally: the persisted session carries the
				// game while we retry on the long interval.
				c.notifyMode(ModeLocalOnly)
				c.notifyView()
			}
			c.closeConn()
		}
	}
}

// flushLoop pushes the pending queue whenever a dispatch signals or the
// retry tick fires. Re-sending already-acked envelopes is harmless: the
// coordinator acks duplicates without re-applying them.
func (c *Connector) flushLoop(ctx context.Context) {
	ticker := c.clock.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.flushCh:
		case <-ticker.Chan():
		}
		c.flush()
	}
}

func (c *Connector) flush() {
	pending := c.reconciler.Pending()
	if len(pending) == 0 {
		return
	}
	payload, err := protocol.EncodeApplyCommands(c.gameID, pending)
	if err != nil {
		log.Error().Err(err).Msg("encode command batch")
		return
	}
	if err := c.write(payload); err != nil {
		log.Debug().Err(err).Msg("flush failed, will retry after reconnect")
	}
}

func (c *Connector) requestFlush() {
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
}

func (c *Connector) write(payload []byte) error {
	conn := c.currentConn()
	if conn == nil {
		return errNotConnected
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Connector) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Connector) currentConn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Connector) closeConn() {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
}

// setDisconnectedMode keeps local-only sticky across failed reconnect
// attempts; everything else degrades to offline.
func (c *Connector) setDisconnectedMode() {
	if c.reconciler.Mode() == ModeLocalOnly {
		return
	}
	c.reconciler.SetMode(ModeOffline)
	c.notifyMode(ModeOffline)
}

func (c *Connector) backoffDelay(failures int) time.Duration {
	if c.reconciler.Mode() == ModeLocalOnly {
		return localOnlyInterval
	}
	if failures >= len(reconnectBackoff) {
		return reconnectBackoff[len(reconnectBackoff)-1]
	}
	return reconnectBackoff[failures]
}

func (c *Connector) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}

func (c *Connector) notifyView() {
	if c.OnView == nil {
		return
	}
	if view, ok := c.reconciler.View(); ok {
		c.OnView(view)
	}
}

func (c *Connector) notifyMode(mode Mode) {
	if c.OnMode != nil {
		c.OnMode(mode)
	}
}
