package game

import (
	"testing"
)

// TestStartTimeout tests arming a timeout and the one-per-team rule.
func TestStartTimeout(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)

	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	active := s.Timeouts.Active
	if active == nil {
		t.Fatal("Timeout should be active")
	}
	if active.Running {
		t.Error("New timeout must start paused")
	}
	if active.RemainingMs != TimeoutDurationMs {
		t.Errorf("Expected full duration, got %d", active.RemainingMs)
	}
	if !s.Timeouts.Used(TeamHome) {
		t.Error("Starting consumes the team's timeout")
	}

	// Second timeout while one is active is rejected.
	s = Apply(s, StartTimeout{Team: TeamAway}, 0, ids)
	if s.Timeouts.Active.Team != TeamHome {
		t.Error("Second start replaced the active timeout")
	}
	if s.Timeouts.Used(TeamAway) {
		t.Error("Rejected start must not consume away's timeout")
	}
}

// TestStartTimeoutWhileRunning tests that a timeout cannot start during
// live play or when already used.
func TestStartTimeoutWhileRunning(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, SetRunning{Running: true}, 0, ids)

	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	if s.Timeouts.Active != nil {
		t.Error("Timeout must not start while the clock runs")
	}

	s = Apply(s, SetRunning{Running: false}, 0, ids)
	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	s = Apply(s, CancelTimeout{}, 0, ids)

	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	if s.Timeouts.Active != nil {
		t.Error("A used timeout cannot be started again")
	}
}

// TestSetTimeoutRunningGuards tests the run/pause preconditions.
func TestSetTimeoutRunningGuards(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)

	// No active timeout.
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)
	if s.Timeouts.Active != nil {
		t.Error("No-op expected with no active timeout")
	}

	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	s = Apply(s, SetRunning{Running: true}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)
	if s.Timeouts.Active.Running {
		t.Error("Timeout must not run while the game clock runs")
	}

	s = Apply(s, SetRunning{Running: false}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)
	if !s.Timeouts.Active.Running {
		t.Error("Timeout should run while the game is paused")
	}
}

// TestStartingClockStopsTimeout tests that resuming live play
// force-stops a running timeout without clearing it.
func TestStartingClockStopsTimeout(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)

	s = Apply(s, SetRunning{Running: true}, 10_000, ids)
	active := s.Timeouts.Active
	if active == nil {
		t.Fatal("Timeout record should survive the clock start")
	}
	if active.Running {
		t.Error("Running clock must stop the timeout")
	}
	if active.RemainingMs != 50_000 {
		t.Errorf("Expected 50000 remaining, got %d", active.RemainingMs)
	}
}

// TestUndoTimeoutStart tests that undo only works before any time was
// consumed and restores the used flag.
func TestUndoTimeoutStart(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)

	s = Apply(s, UndoTimeoutStart{}, 0, ids)
	if s.Timeouts.Active != nil {
		t.Error("Undo should clear the untouched timeout")
	}
	if s.Timeouts.Used(TeamHome) {
		t.Error("Undo should restore the used flag")
	}

	// After the timeout has ticked, undo is refused.
	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)
	s = Advance(s, 5_000)
	s = Apply(s, UndoTimeoutStart{}, 5_000, ids)
	if s.Timeouts.Active == nil {
		t.Error("Undo must not clear a partially consumed timeout")
	}
	if !s.Timeouts.Used(TeamHome) {
		t.Error("Used flag must stay set")
	}
}

// TestCancelTimeout tests that cancel ends the timeout immediately and
// keeps it consumed.
func TestCancelTimeout(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, StartTimeout{Team: TeamAway}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)
	s = Advance(s, 20_000)

	s = Apply(s, CancelTimeout{}, 20_000, ids)
	if s.Timeouts.Active != nil {
		t.Error("Cancel should clear the active timeout")
	}
	if !s.Timeouts.Used(TeamAway) {
		t.Error("Cancelled timeout stays used")
	}
}
