package game

// Apply advances the state to nowMs and then applies one command,
// returning a fresh copy. Commands whose preconditions are unmet leave
// the state unchanged — a stale or duplicated client action can never
// corrupt state, which is what makes idempotent replay and optimistic
// reconciliation safe.
//
// The type switch is exhaustive over the sealed Command union; a new
// command kind that is not handled here fails the exhaustiveness lint.
func Apply(s *GameState, cmd Command, nowMs int64, ids IDGenerator) *GameState {
	next := Advance(s, nowMs)

	switch c := cmd.(type) {
	case SetRunning:
		next.applySetRunning(c)
	case AdjustGameClock:
		next.applySetClock(next.GameClockMs + c.DeltaMs)
	case SetGameClock:
		next.applySetClock(c.Ms)
	case ChangeScore:
		next.applyChangeScore(c, nowMs, ids)
	case UndoLastScore:
		next.applyUndoLastScore(c, nowMs)
	case AddCard:
		next.applyAddCard(c, nowMs, ids)
	case ConfirmPenaltyExpiration:
		next.applyConfirmExpiration(c, nowMs)
	case StartTimeout:
		next.applyStartTimeout(c)
	case SetTimeoutRunning:
		next.applySetTimeoutRunning(c)
	case UndoTimeoutStart:
		next.applyUndoTimeoutStart()
	case CancelTimeout:
		next.applyCancelTimeout()
	case RecordFlagCatch:
		next.applyRecordFlagCatch(c, nowMs, ids)
	case SuspendGame:
		if !next.Finished && !next.Running && !next.Suspended {
			next.Suspended = true
		}
	case ResumeGame:
		if !next.Finished && next.Suspended {
			next.Suspended = false
		}
	case RecordForfeit:
		next.applyFinish(FinishForfeit, c.Team.Opponent())
	case RecordDoubleForfeit:
		next.applyFinish(FinishDoubleForfeit, "")
	case RecordTargetScore:
		next.applyFinish(FinishTargetScore, next.leader())
	case RecordConcede:
		next.applyFinish(FinishConcede, c.Team.Opponent())
	case SetDisplaySidesSwapped:
		// Cosmetic, allowed even after the game is finished.
		next.DisplaySidesSwapped = c.Swapped
	case RenameTeams:
		next.applyRenameTeams(c)
	}

	return next
}

func (s *GameState) applySetRunning(c SetRunning) {
	if s.Finished || s.Suspended {
		return
	}
	if c.Running {
		// Live play and a timeout cannot both consume time.
		if active := s.Timeouts.Active; active != nil {
			active.Running = false
		}
	}
	// Pausing or resuming never itself changes the clock; only the next
	// Advance does.
	s.Running = c.Running
}

func (s *GameState) applySetClock(ms int64) {
	if s.Finished {
		return
	}
	if ms < 0 {
		ms = 0
	}
	s.GameClockMs = ms
}

// applyFinish is the single funnel for every finishing transition.
// Finishing is rejected while suspended and is idempotent once the game
// has ended.
func (s *GameState) applyFinish(reason FinishReason, winner Team) {
	if s.Finished || s.Suspended {
		return
	}
	s.Running = false
	s.Timeouts.Active = nil
	s.Finished = true
	s.FinishReason = reason
	s.Winner = winner
}

func (s *GameState) applyRecordFlagCatch(c RecordFlagCatch, nowMs int64, ids IDGenerator) {
	if s.Finished || s.Running || s.Suspended || s.Overtime {
		return
	}
	if s.FlagCatch != nil || s.GameClockMs < SeekerReleaseClockMs {
		return
	}
	// The catch scores through the same positive path as a goal, so it
	// can create a pending penalty expiration before the game ends.
	s.applyGoalScore(c.Team, FlagCatchPoints, ScoreReasonFlagCatch, nowMs, ids)
	s.FlagCatch = &FlagCatch{Team: c.Team, AtMs: nowMs, GameClockMs: s.GameClockMs}
	s.applyFinish(FinishFlagCatch, s.leader())
}

func (s *GameState) applyRenameTeams(c RenameTeams) {
	if c.HomeName != "" {
		s.HomeName = c.HomeName
	}
	if c.AwayName != "" {
		s.AwayName = c.AwayName
	}
}
