package game

func (s *GameState) applyStartTimeout(c StartTimeout) {
	if s.Finished || s.Running {
		return
	}
	if s.Timeouts.Active != nil || s.Timeouts.Used(c.Team) {
		return
	}
	s.Timeouts.setUsed(c.Team, true)
	s.Timeouts.Active = &ActiveTimeout{
		Team:        c.Team,
		RemainingMs: TimeoutDurationMs,
	}
}

func (s *GameState) applySetTimeoutRunning(c SetTimeoutRunning) {
	// Only effective while the game clock itself is paused.
	if s.Finished || s.Running {
		return
	}
	active := s.Timeouts.Active
	if active == nil {
		return
	}
	if c.Running && active.RemainingMs <= 0 {
		return
	}
	active.Running = c.Running
}

func (s *GameState) applyUndoTimeoutStart() {
	if s.Finished {
		return
	}
	active := s.Timeouts.Active
	// Undo is only offered before the timeout has consumed any time.
	if active == nil || active.RemainingMs != TimeoutDurationMs {
		return
	}
	s.Timeouts.setUsed(active.Team, false)
	s.Timeouts.Active = nil
}

func (s *GameState) applyCancelTimeout() {
	if s.Finished {
		return
	}
	// Ends immediately regardless of remaining time; used stays true.
	s.Timeouts.Active = nil
}
