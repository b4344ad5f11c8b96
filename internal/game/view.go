package game

// GameView is the full state plus the wall-clock-derived display hints.
// This is the only place presentation facts are computed; the engine
// itself stays free of them.
type GameView struct {
	State *GameState `json:"state"`

	// SeekerReleaseCountdownMs is nil until the countdown window before
	// the release threshold, then the remaining ms floored at zero.
	SeekerReleaseCountdownMs *int64 `json:"seekerReleaseCountdownMs"`
	SeekerReleased           bool   `json:"seekerReleased"`

	// Timeout reminders, active only while a timeout is running.
	TimeoutReminderActive bool `json:"timeoutReminderActive"`
	TimeoutWarningActive  bool `json:"timeoutWarningActive"`
	TimeoutFinalCountdown bool `json:"timeoutFinalCountdown"`
}

// ProjectGameView advances the state to nowMs and derives the display
// facts from the result.
func ProjectGameView(s *GameState, nowMs int64) GameView {
	state := Advance(s, nowMs)
	view := GameView{State: state}

	if state.GameClockMs >= SeekerReleaseClockMs-SeekerCountdownWindowMs {
		remaining := SeekerReleaseClockMs - state.GameClockMs
		if remaining < 0 {
			remaining = 0
		}
		view.SeekerReleaseCountdownMs = &remaining
	}
	view.SeekerReleased = state.GameClockMs >= SeekerReleaseClockMs

	if active := state.Timeouts.Active; active != nil && active.Running {
		view.TimeoutReminderActive = active.RemainingMs <= TimeoutReminderMs
		view.TimeoutWarningActive = active.RemainingMs <= TimeoutWarningMs
		view.TimeoutFinalCountdown = active.RemainingMs <= TimeoutFinalMs
	}

	return view
}

// GameSummary is the lobby-listing projection of a game.
type GameSummary struct {
	ID          string `json:"id"`
	HomeName    string `json:"homeName"`
	AwayName    string `json:"awayName"`
	Score       Score  `json:"score"`
	GameClockMs int64  `json:"gameClockMs"`
	Running     bool   `json:"isRunning"`
	Finished    bool   `json:"isFinished"`
	CreatedAtMs int64  `json:"createdAtMs"`
}

// Summarize projects a game to its lobby summary as of nowMs.
func Summarize(s *GameState, nowMs int64) GameSummary {
	state := Advance(s, nowMs)
	return GameSummary{
		ID:          state.ID,
		HomeName:    state.HomeName,
		AwayName:    state.AwayName,
		Score:       state.Score,
		GameClockMs: state.GameClockMs,
		Running:     state.Running,
		Finished:    state.Finished,
		CreatedAtMs: state.CreatedAtMs,
	}
}
