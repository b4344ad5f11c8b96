package api

import (
	"errors"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"quadclock/internal/game"
	"quadclock/internal/protocol"
)

// Coordinator errors surfaced to the transport layer.
var (
	ErrUnknownGame = errors.New("unknown game")
	ErrGameLimit   = errors.New("game limit reached")
)

const (
	// appliedHistoryCap bounds the per-game idempotency history. Oldest
	// envelope ids are evicted first; a client replaying an id older
	// than the window is re-applied, which in practice only happens to
	// clients gone for thousands of commands.
	appliedHistoryCap = 512

	// DefaultMaxGames caps the in-memory game registry.
	DefaultMaxGames = 200
)

// gameSession pairs one authoritative GameState with the bounded set of
// envelope ids already applied to it.
type gameSession struct {
	state        *game.GameState
	appliedIDs   map[string]struct{}
	appliedOrder []string
}

func (s *gameSession) remember(id string) {
	s.appliedIDs[id] = struct{}{}
	s.appliedOrder = append(s.appliedOrder, id)
	if len(s.appliedOrder) > appliedHistoryCap {
		oldest := s.appliedOrder[0]
		s.appliedOrder = s.appliedOrder[1:]
		delete(s.appliedIDs, oldest)
	}
}

// Coordinator holds the single authoritative GameState per game id and
// applies command batches through the engine. All access is serialized
// by one mutex: the engine has no internal locking because nothing here
// calls it concurrently for the same state.
type Coordinator struct {
	mu       sync.Mutex
	games    map[string]*gameSession
	clock    clockwork.Clock
	ids      game.IDGenerator
	maxGames int
}

// NewCoordinator creates an empty coordinator. Pass a FakeClock and a
// sequential id generator in tests.
func NewCoordinator(clock clockwork.Clock, ids game.IDGenerator) *Coordinator {
	return &Coordinator{
		games:    make(map[string]*gameSession),
		clock:    clock,
		ids:      ids,
		maxGames: DefaultMaxGames,
	}
}

// SetMaxGames overrides the registry cap.
func (c *Coordinator) SetMaxGames(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.maxGames = n
}

// NowMs returns the coordinator's current wall time in milliseconds.
func (c *Coordinator) NowMs() int64 {
	return c.clock.Now().UnixMilli()
}

// CreateGame registers a new game and returns its initial view.
func (c *Coordinator) CreateGame(homeName, awayName string) (game.GameView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.games) >= c.maxGames {
		return game.GameView{}, ErrGameLimit
	}

	nowMs := c.clock.Now().UnixMilli()
	state := game.NewGameState(c.ids(), nowMs)
	if homeName != "" {
		state.HomeName = homeName
	}
	if awayName != "" {
		state.AwayName = awayName
	}

	c.games[state.ID] = &gameSession{
		state:      state,
		appliedIDs: make(map[string]struct{}),
	}
	UpdateGamesActive(len(c.games))

	return game.ProjectGameView(state, nowMs), nil
}

// View returns the current projection of one game.
func (c *Coordinator) View(gameID string) (game.GameView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.games[gameID]
	if !ok {
		return game.GameView{}, ErrUnknownGame
	}
	return game.ProjectGameView(session.state, c.clock.Now().UnixMilli()), nil
}

// Summaries lists every game for the lobby, oldest first.
func (c *Coordinator) Summaries() []game.GameSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	nowMs := c.clock.Now().UnixMilli()
	summaries := make([]game.GameSummary, 0, len(c.games))
	for _, session := range c.games {
		summaries = append(summaries, game.Summarize(session.state, nowMs))
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAtMs != summaries[j].CreatedAtMs {
			return summaries[i].CreatedAtMs < summaries[j].CreatedAtMs
		}
		return summaries[i].ID < summaries[j].ID
	})
	return summaries
}

// ApplyBatch applies a command batch idempotently: an envelope id seen
// before is acked again without re-applying its command. New commands
// run through the engine at the envelope's own client timestamp, which
// is the command's logical time. Returns the fresh projection and the
// ids acknowledged by this batch.
func (c *Coordinator) ApplyBatch(gameID string, envelopes []protocol.CommandEnvelope) (game.GameView, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	session, ok := c.games[gameID]
	if !ok {
		return game.GameView{}, nil, ErrUnknownGame
	}

	ackedIDs := make([]string, 0, len(envelopes))
	for _, envelope := range envelopes {
		if _, duplicate := session.appliedIDs[envelope.ID]; duplicate {
			ackedIDs = append(ackedIDs, envelope.ID)
			RecordCommandDuplicate()
			continue
		}
		session.state = game.Apply(session.state, envelope.Command, envelope.ClientSentAtMs, c.ids)
		session.remember(envelope.ID)
		ackedIDs = append(ackedIDs, envelope.ID)
		RecordCommandApplied()
	}

	view := game.ProjectGameView(session.state, c.clock.Now().UnixMilli())
	return view, ackedIDs, nil
}
