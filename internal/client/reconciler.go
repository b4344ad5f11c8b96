package client

import (
	"fmt"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"quadclock/internal/game"
	"quadclock/internal/protocol"
)

// Mode is the reconciler's connection mode.
type Mode string

const (
	ModeConnecting Mode = "connecting"
	ModeOnline     Mode = "online"
	ModeOffline    Mode = "offline"
	// ModeLocalOnly means the server has forgotten the game and the
	// client keeps operating on its persisted local state.
	ModeLocalOnly Mode = "local-only"
)

// Reconciler keeps a local copy of one game consistent with the server
// under optimistic command application. Dispatched commands apply
// immediately against the base state for instant feedback and queue
// until the server acks their envelope ids; every incoming snapshot
// replaces the base and replays the still-pending envelopes on top, at
// each envelope's own recorded timestamp. Because the engine is a pure
// function of (state, command, time), that replay converges no matter
// how the network reordered or dropped the batches.
type Reconciler struct {
	mu sync.Mutex

	gameID   string
	clientID string
	clock    clockwork.Clock
	ids      game.IDGenerator
	store    SessionStore

	base          *game.GameState
	pending       []protocol.CommandEnvelope
	counter       uint64
	clockOffsetMs int64
	mode          Mode
}

// NewReconciler creates a reconciler for one game, recovering any
// persisted session so a restarted controller resumes where it left
// off. store may be nil to disable persistence.
func NewReconciler(gameID, clientID string, store SessionStore, clock clockwork.Clock, ids game.IDGenerator) *Reconciler {
	r := &Reconciler{
		gameID:   gameID,
		clientID: clientID,
		clock:    clock,
		ids:      ids,
		store:    store,
		mode:     ModeConnecting,
	}
	if store != nil {
		session, err := store.Load(gameID)
		if err != nil {
			log.Warn().Err(err).Str("game", gameID).Msg("session restore failed")
		} else if session != nil {
			r.base = session.State
			r.pending = session.PendingCommands
			r.counter = session.CommandCounter
		}
	}
	return r
}

// Mode returns the current connection mode.
func (r *Reconciler) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// SetMode records a transport-driven mode change.
func (r *Reconciler) SetMode(mode Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = mode
}

// NowMs is the client's estimate of server time: local time plus the
// offset computed from the last snapshot.
func (r *Reconciler) NowMs() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nowMsLocked()
}

func (r *Reconciler) nowMsLocked() int64 {
	return r.clock.Now().UnixMilli() + r.clockOffsetMs
}

// HasState reports whether a base state exists to operate on.
func (r *Reconciler) HasState() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.base != nil
}

// View projects the current local state for the UI.
func (r *Reconciler) View() (game.GameView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base == nil {
		return game.GameView{}, false
	}
	return game.ProjectGameView(r.base, r.nowMsLocked()), true
}

// Dispatch applies a command optimistically and queues its envelope for
// the next flush. The envelope id is monotonically increasing per
// client, which doubles as the server-side idempotency key.
func (r *Reconciler) Dispatch(cmd game.Command) (protocol.CommandEnvelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base == nil {
		return protocol.CommandEnvelope{}, false
	}

	r.counter++
	nowMs := r.nowMsLocked()
	envelope := protocol.CommandEnvelope{
		ID:             fmt.Sprintf("%s-%d", r.clientID, r.counter),
		ClientSentAtMs: nowMs,
		Command:        cmd,
	}

	r.base = game.Apply(r.base, cmd, nowMs, r.ids)
	r.pending = append(r.pending, envelope)
	r.persistLocked()
	return envelope, true
}

// Pending returns a copy of the unacked envelope queue, oldest first.
func (r *Reconciler) Pending() []protocol.CommandEnvelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := make([]protocol.CommandEnvelope, len(r.pending))
	copy(pending, r.pending)
	return pending
}

// ApplySnapshot accepts server truth: acked envelopes leave the queue,
// the clock offset is re-anchored, and the remaining pending envelopes
// replay in original order on top of the fresh state.
func (r *Reconciler) ApplySnapshot(state *game.GameState, serverNowMs int64, ackedIDs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(ackedIDs) > 0 {
		acked := make(map[string]struct{}, len(ackedIDs))
		for _, id := range ackedIDs {
			acked[id] = struct{}{}
		}
		kept := r.pending[:0]
		for _, envelope := range r.pending {
			if _, ok := acked[envelope.ID]; !ok {
				kept = append(kept, envelope)
			}
		}
		r.pending = kept
	}

	r.clockOffsetMs = serverNowMs - r.clock.Now().UnixMilli()

	next := state.Clone()
	for _, envelope := range r.pending {
		next = game.Apply(next, envelope.Command, envelope.ClientSentAtMs, r.ids)
	}
	r.base = next
	r.mode = ModeOnline
	r.persistLocked()
}

// EnterLocalOnly switches to local-only continuation after the server
// reported the game unknown. Succeeds only when local state exists.
func (r *Reconciler) EnterLocalOnly() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.base == nil {
		return false
	}
	r.mode = ModeLocalOnly
	return true
}

// persistLocked snapshots state and queue to the session store. Best
// effort by design: a failed write must never break dispatching.
func (r *Reconciler) persistLocked() {
	if r.store == nil {
		return
	}
	err := r.store.Save(&PersistedSession{
		Version:         SessionVersion,
		GameID:          r.gameID,
		State:           r.base,
		PendingCommands: r.pending,
		CommandCounter:  r.counter,
		SavedAtMs:       r.clock.Now().UnixMilli(),
	})
	if err != nil {
		log.Debug().Err(err).Str("game", r.gameID).Msg("session persist failed")
	}
}
