package game

// Command is the closed union of referee commands. The wire codec is
// the only producer of Command values from untrusted input; the engine
// assumes structural validity and treats unmet preconditions as silent
// no-ops, never as errors.
//
// The union is sealed by the unexported marker method so the Apply
// type switch stays exhaustive: adding a command kind here is a
// compile-visible obligation in Apply and in the protocol codec.
type Command interface {
	isCommand()
}

// SetRunning starts or pauses the game clock. Starting force-stops any
// running timeout; a timeout and live play cannot both consume time.
type SetRunning struct {
	Running bool `json:"running"`
}

// AdjustGameClock shifts the clock by a signed delta, clamped at zero.
// Penalty time already consumed is not restored.
type AdjustGameClock struct {
	DeltaMs int64 `json:"deltaMs"`
}

// SetGameClock sets the clock to an absolute value, clamped at zero.
type SetGameClock struct {
	Ms int64 `json:"ms"`
}

// ChangeScore applies a score delta. Deltas must be non-zero multiples
// of 10. Positive goal deltas create a pending penalty expiration offer
// before the score is applied; manual and negative deltas do not.
type ChangeScore struct {
	Team   Team        `json:"team"`
	Delta  int         `json:"delta"`
	Reason ScoreReason `json:"reason"`
}

// UndoLastScore reverses the team's most recent not-yet-undone goal
// event and withdraws its unresolved expiration offer, if any.
type UndoLastScore struct {
	Team Team `json:"team"`
}

// AddCard records a disciplinary card. StartedGameClockMs backdates the
// card to an earlier clock value for infractions noticed late; the time
// elapsed since then is pre-consumed from the new segments only.
type AddCard struct {
	Team               Team     `json:"team"`
	PlayerNumber       *int     `json:"playerNumber"`
	CardType           CardType `json:"cardType"`
	StartedGameClockMs *int64   `json:"startedGameClockMs,omitempty"`
}

// ConfirmPenaltyExpiration resolves a pending expiration offer against
// one of its frozen candidates. PlayerKey may be empty only when a
// single candidate exists.
type ConfirmPenaltyExpiration struct {
	PendingID string `json:"pendingId"`
	PlayerKey string `json:"playerKey,omitempty"`
}

// StartTimeout consumes the team's one timeout and arms it, not yet
// running.
type StartTimeout struct {
	Team Team `json:"team"`
}

// SetTimeoutRunning starts or pauses the active timeout. Only effective
// while the game clock itself is paused.
type SetTimeoutRunning struct {
	Running bool `json:"running"`
}

// UndoTimeoutStart cancels a timeout that has not yet consumed any time
// and restores the team's used flag.
type UndoTimeoutStart struct{}

// CancelTimeout ends the active timeout immediately; the used flag
// stays set.
type CancelTimeout struct{}

// RecordFlagCatch scores the fixed flag-catch points for the team and
// finishes the game.
type RecordFlagCatch struct {
	Team Team `json:"team"`
}

// SuspendGame marks play suspended. Rejected while the clock runs.
type SuspendGame struct{}

// ResumeGame lifts a suspension.
type ResumeGame struct{}

// RecordForfeit finishes the game against the forfeiting team.
type RecordForfeit struct {
	Team Team `json:"team"`
}

// RecordDoubleForfeit finishes the game with no winner.
type RecordDoubleForfeit struct{}

// RecordTargetScore finishes the game because the score target was
// reached; the winner is whichever team leads.
type RecordTargetScore struct{}

// RecordConcede finishes the game against the conceding team.
type RecordConcede struct {
	Team Team `json:"team"`
}

// SetDisplaySidesSwapped flips which side each team is displayed on.
// Cosmetic only; allowed after the game is finished.
type SetDisplaySidesSwapped struct {
	Swapped bool `json:"swapped"`
}

// RenameTeams sets the display names. Allowed after the game is
// finished.
type RenameTeams struct {
	HomeName string `json:"homeName"`
	AwayName string `json:"awayName"`
}

func (SetRunning) isCommand()               {}
func (AdjustGameClock) isCommand()          {}
func (SetGameClock) isCommand()             {}
func (ChangeScore) isCommand()              {}
func (UndoLastScore) isCommand()            {}
func (AddCard) isCommand()                  {}
func (ConfirmPenaltyExpiration) isCommand() {}
func (StartTimeout) isCommand()             {}
func (SetTimeoutRunning) isCommand()        {}
func (UndoTimeoutStart) isCommand()         {}
func (CancelTimeout) isCommand()            {}
func (RecordFlagCatch) isCommand()          {}
func (SuspendGame) isCommand()              {}
func (ResumeGame) isCommand()               {}
func (RecordForfeit) isCommand()            {}
func (RecordDoubleForfeit) isCommand()      {}
func (RecordTargetScore) isCommand()        {}
func (RecordConcede) isCommand()            {}
func (SetDisplaySidesSwapped) isCommand()   {}
func (RenameTeams) isCommand()              {}
