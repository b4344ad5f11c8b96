// Package game implements the quadball scoreboard engine: a pure,
// deterministic state machine for a running game clock, two scores,
// per-player penalty time, timeouts, and finish conditions.
//
// Nothing in this package reads the wall clock, generates randomness on
// its own, or performs I/O. Every entry point takes the current time in
// milliseconds and an explicit id generator and returns a fresh copy of
// the state. That contract is what makes server-side application and
// client-side optimistic replay produce identical results.
package game

import "fmt"

// Engine constants. These are fixed by the rules of the game, not
// configuration: changing them changes what a recorded game means.
const (
	// PenaltySegmentMs is the length of a single penalty segment.
	// Red cards produce two segments, blue and yellow cards one.
	PenaltySegmentMs int64 = 60_000

	// FlagCatchPoints is awarded to the catching team before the game
	// is marked finished.
	FlagCatchPoints = 30

	// SeekerReleaseClockMs is the game-clock threshold after which a
	// flag catch may be recorded.
	SeekerReleaseClockMs int64 = 18 * 60_000

	// SeekerCountdownWindowMs is how long before the release threshold
	// the view projector starts showing the release countdown.
	SeekerCountdownWindowMs int64 = 60_000

	// TimeoutDurationMs is the fixed length of a team timeout.
	TimeoutDurationMs int64 = 60_000

	// ReleaseVisibilityMs is the wall-time window during which a
	// released-penalty notification stays in RecentReleases.
	ReleaseVisibilityMs int64 = 30_000

	// Timeout reminder cutoffs, evaluated by the view projector against
	// the remaining time of a running timeout.
	TimeoutReminderMs int64 = 30_000
	TimeoutWarningMs  int64 = 15_000
	TimeoutFinalMs    int64 = 5_000

	// MaxPlayerNumber is the highest legal jersey number.
	MaxPlayerNumber = 99
)

// Team identifies one of the two sides. Display-side swapping is
// cosmetic and never changes which team is which.
type Team string

const (
	TeamHome Team = "home"
	TeamAway Team = "away"
)

// Opponent returns the other team.
func (t Team) Opponent() Team {
	if t == TeamHome {
		return TeamAway
	}
	return TeamHome
}

// CardType classifies a disciplinary card.
type CardType string

const (
	CardBlue     CardType = "blue"
	CardYellow   CardType = "yellow"
	CardRed      CardType = "red"
	CardEjection CardType = "ejection"
)

// ScoreReason records why a score delta was applied.
type ScoreReason string

const (
	ScoreReasonGoal      ScoreReason = "goal"
	ScoreReasonManual    ScoreReason = "manual"
	ScoreReasonFlagCatch ScoreReason = "flag-catch"
)

// ReleaseReason records how a penalized player left the penalty box.
type ReleaseReason string

const (
	ReleaseServed  ReleaseReason = "served"  // time ran out during live play
	ReleaseExpired ReleaseReason = "expired" // released early by a confirmed goal
)

// FinishReason records how a finished game ended.
type FinishReason string

const (
	FinishFlagCatch     FinishReason = "flag-catch"
	FinishForfeit       FinishReason = "forfeit"
	FinishDoubleForfeit FinishReason = "double-forfeit"
	FinishTargetScore   FinishReason = "target-score"
	FinishConcede       FinishReason = "concede"
)

// Score holds both team scores. Values are non-negative and, by
// construction, multiples of 10.
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// Get returns the score of the given team.
func (s Score) Get(team Team) int {
	if team == TeamHome {
		return s.Home
	}
	return s.Away
}

func (s *Score) set(team Team, value int) {
	if team == TeamHome {
		s.Home = value
	} else {
		s.Away = value
	}
}

// PenaltySegment is one block of penalty time a player owes. Segments
// from red cards are not expirable by score.
type PenaltySegment struct {
	ID               string   `json:"id"`
	CardType         CardType `json:"cardType"`
	RemainingMs      int64    `json:"remainingMs"`
	ExpirableByScore bool     `json:"expirableByScore"`
}

// PlayerPenaltyState tracks one penalized player. An entry exists in
// GameState.Players iff the player has at least one segment with
// remaining time; it is deleted the instant the last segment empties.
type PlayerPenaltyState struct {
	Key          string           `json:"key"`
	Team         Team             `json:"team"`
	PlayerNumber *int             `json:"playerNumber"`
	Segments     []PenaltySegment `json:"segments"`
}

// ScoreEvent is an append-only record of a goal-path score change.
// Manual adjustments and negative deltas are not recorded here.
type ScoreEvent struct {
	ID                  string      `json:"id"`
	Team                Team        `json:"team"`
	Delta               int         `json:"delta"`
	Reason              ScoreReason `json:"reason"`
	AtMs                int64       `json:"atMs"`
	GameClockMs         int64       `json:"gameClockMs"`
	PendingExpirationID string      `json:"pendingExpirationId,omitempty"`
	UndoneAtMs          *int64      `json:"undoneAtMs"`
}

// CardEvent is an append-only record of a card shown, kept even when
// the card produced no penalty segments.
type CardEvent struct {
	ID           string   `json:"id"`
	Team         Team     `json:"team"`
	PlayerNumber *int     `json:"playerNumber"`
	PlayerKey    string   `json:"playerKey"`
	CardType     CardType `json:"cardType"`
	GameClockMs  int64    `json:"gameClockMs"`
	AtMs         int64    `json:"atMs"`
}

// PendingPenaltyExpiration is an offer, created by a goal or flag
// catch, to release a penalized opponent early. Candidates and the
// amount to remove are frozen at creation; the record is immutable once
// resolved.
type PendingPenaltyExpiration struct {
	ID                  string   `json:"id"`
	BenefitingTeam      Team     `json:"benefitingTeam"`
	PenalizedTeam       Team     `json:"penalizedTeam"`
	CandidatePlayerKeys []string `json:"candidatePlayerKeys"`
	ExpireMs            int64    `json:"expireMs"`
	CreatedAtMs         int64    `json:"createdAtMs"`
	ResolvedAtMs        *int64   `json:"resolvedAtMs"`
	ResolvedPlayerKey   string   `json:"resolvedPlayerKey,omitempty"`
}

// PenaltyRelease is a notification that a player's penalty ended. It is
// pruned from the state a fixed wall-time window after release,
// independent of whether the game clock is running.
type PenaltyRelease struct {
	PlayerKey    string        `json:"playerKey"`
	Team         Team          `json:"team"`
	PlayerNumber *int          `json:"playerNumber"`
	Reason       ReleaseReason `json:"reason"`
	ReleasedAtMs int64         `json:"releasedAtMs"`
}

// ActiveTimeout is the single timeout that may be in progress.
type ActiveTimeout struct {
	Team        Team  `json:"team"`
	Running     bool  `json:"running"`
	RemainingMs int64 `json:"remainingMs"`
}

// TimeoutState tracks per-team usage plus the at-most-one active
// timeout. A team's used flag is true iff it has ever started a timeout
// that was not since undone.
type TimeoutState struct {
	HomeUsed bool           `json:"homeUsed"`
	AwayUsed bool           `json:"awayUsed"`
	Active   *ActiveTimeout `json:"active"`
}

// Used reports whether the team has consumed its timeout.
func (t TimeoutState) Used(team Team) bool {
	if team == TeamHome {
		return t.HomeUsed
	}
	return t.AwayUsed
}

func (t *TimeoutState) setUsed(team Team, used bool) {
	if team == TeamHome {
		t.HomeUsed = used
	} else {
		t.AwayUsed = used
	}
}

// FlagCatch records the catch that ended the game.
type FlagCatch struct {
	Team        Team  `json:"team"`
	AtMs        int64 `json:"atMs"`
	GameClockMs int64 `json:"gameClockMs"`
}

// GameState is the root aggregate for one game. The server-side
// coordinator owns the authoritative instance; clients hold projections
// of the same shape. It is mutated exclusively through Advance and
// Apply, both of which operate on a deep copy.
type GameState struct {
	ID          string `json:"id"`
	CreatedAtMs int64  `json:"createdAtMs"`
	UpdatedAtMs int64  `json:"updatedAtMs"`

	HomeName string `json:"homeName"`
	AwayName string `json:"awayName"`

	GameClockMs int64 `json:"gameClockMs"`
	Running     bool  `json:"isRunning"`
	Finished    bool  `json:"isFinished"`
	Suspended   bool  `json:"isSuspended"`
	Overtime    bool  `json:"isOvertime"`

	Score       Score        `json:"score"`
	ScoreEvents []ScoreEvent `json:"scoreEvents"`
	CardEvents  []CardEvent  `json:"cardEvents"`

	Players            map[string]*PlayerPenaltyState `json:"players"`
	PendingExpirations []*PendingPenaltyExpiration    `json:"pendingExpirations"`
	RecentReleases     []PenaltyRelease               `json:"recentReleases"`

	Timeouts TimeoutState `json:"timeouts"`

	FlagCatch           *FlagCatch   `json:"flagCatch"`
	Winner              Team         `json:"winner,omitempty"`
	FinishReason        FinishReason `json:"finishReason,omitempty"`
	DisplaySidesSwapped bool         `json:"displaySidesSwapped"`

	// UnknownSeq numbers the per-team "unknown player" keys handed out
	// for cards without a jersey number.
	UnknownSeq map[Team]int `json:"unknownSeq"`
}

// NewGameState creates a fresh game anchored at nowMs.
func NewGameState(id string, nowMs int64) *GameState {
	return &GameState{
		ID:          id,
		CreatedAtMs: nowMs,
		UpdatedAtMs: nowMs,
		HomeName:    "Home",
		AwayName:    "Away",
		Players:     make(map[string]*PlayerPenaltyState),
		UnknownSeq:  make(map[Team]int),
	}
}

// Clone returns a structurally independent deep copy. Advance and Apply
// clone before every mutation so callers can hold on to old snapshots.
func (s *GameState) Clone() *GameState {
	next := *s

	next.ScoreEvents = make([]ScoreEvent, len(s.ScoreEvents))
	copy(next.ScoreEvents, s.ScoreEvents)
	for i := range next.ScoreEvents {
		next.ScoreEvents[i].UndoneAtMs = cloneInt64(next.ScoreEvents[i].UndoneAtMs)
	}

	next.CardEvents = make([]CardEvent, len(s.CardEvents))
	copy(next.CardEvents, s.CardEvents)
	for i := range next.CardEvents {
		next.CardEvents[i].PlayerNumber = cloneInt(next.CardEvents[i].PlayerNumber)
	}

	next.Players = make(map[string]*PlayerPenaltyState, len(s.Players))
	for key, p := range s.Players {
		next.Players[key] = p.clone()
	}

	next.PendingExpirations = make([]*PendingPenaltyExpiration, len(s.PendingExpirations))
	for i, p := range s.PendingExpirations {
		next.PendingExpirations[i] = p.clone()
	}

	next.RecentReleases = make([]PenaltyRelease, len(s.RecentReleases))
	copy(next.RecentReleases, s.RecentReleases)
	for i := range next.RecentReleases {
		next.RecentReleases[i].PlayerNumber = cloneInt(next.RecentReleases[i].PlayerNumber)
	}

	if s.Timeouts.Active != nil {
		active := *s.Timeouts.Active
		next.Timeouts.Active = &active
	}

	if s.FlagCatch != nil {
		catch := *s.FlagCatch
		next.FlagCatch = &catch
	}

	next.UnknownSeq = make(map[Team]int, len(s.UnknownSeq))
	for team, seq := range s.UnknownSeq {
		next.UnknownSeq[team] = seq
	}

	return &next
}

func (p *PlayerPenaltyState) clone() *PlayerPenaltyState {
	next := *p
	next.PlayerNumber = cloneInt(p.PlayerNumber)
	next.Segments = make([]PenaltySegment, len(p.Segments))
	copy(next.Segments, p.Segments)
	return &next
}

func (p *PendingPenaltyExpiration) clone() *PendingPenaltyExpiration {
	next := *p
	next.CandidatePlayerKeys = make([]string, len(p.CandidatePlayerKeys))
	copy(next.CandidatePlayerKeys, p.CandidatePlayerKeys)
	next.ResolvedAtMs = cloneInt64(p.ResolvedAtMs)
	return &next
}

// playerKeyFor derives the map key for a carded player. Cards without a
// jersey number get a fresh per-team unknown key each time, since two
// unknown infractions cannot be attributed to the same player.
func (s *GameState) playerKeyFor(team Team, number *int) string {
	if number != nil {
		return fmt.Sprintf("%s:%d", team, *number)
	}
	s.UnknownSeq[team]++
	return fmt.Sprintf("%s:unknown:%d", team, s.UnknownSeq[team])
}

// leader returns the team currently ahead, or "" on a tie.
func (s *GameState) leader() Team {
	switch {
	case s.Score.Home > s.Score.Away:
		return TeamHome
	case s.Score.Away > s.Score.Home:
		return TeamAway
	default:
		return ""
	}
}

func (s *GameState) findPending(id string) *PendingPenaltyExpiration {
	for _, p := range s.PendingExpirations {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
