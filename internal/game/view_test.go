package game

import (
	"testing"
)

// TestSeekerReleaseCountdown tests the countdown window before the
// release threshold.
func TestSeekerReleaseCountdown(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)

	view := ProjectGameView(s, 0)
	if view.SeekerReleaseCountdownMs != nil {
		t.Error("Countdown should be hidden far from the threshold")
	}
	if view.SeekerReleased {
		t.Error("Seeker not released at clock zero")
	}

	s = Apply(s, SetGameClock{Ms: SeekerReleaseClockMs - 45_000}, 0, ids)
	view = ProjectGameView(s, 0)
	if view.SeekerReleaseCountdownMs == nil {
		t.Fatal("Countdown should show inside the window")
	}
	if *view.SeekerReleaseCountdownMs != 45_000 {
		t.Errorf("Expected countdown 45000, got %d", *view.SeekerReleaseCountdownMs)
	}

	s = Apply(s, SetGameClock{Ms: SeekerReleaseClockMs + 5_000}, 0, ids)
	view = ProjectGameView(s, 0)
	if !view.SeekerReleased {
		t.Error("Seeker should be released past the threshold")
	}
	if view.SeekerReleaseCountdownMs == nil || *view.SeekerReleaseCountdownMs != 0 {
		t.Error("Countdown floors at zero past the threshold")
	}
}

// TestProjectAdvancesState tests that the projection reflects elapsed
// time without mutating the stored state.
func TestProjectAdvancesState(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, SetRunning{Running: true}, 0, ids)

	view := ProjectGameView(s, 30_000)
	if view.State.GameClockMs != 30_000 {
		t.Errorf("Expected projected clock 30000, got %d", view.State.GameClockMs)
	}
	if s.GameClockMs != 0 {
		t.Error("Projection must not mutate the source state")
	}
}

// TestTimeoutReminderThresholds tests the stacked reminder flags on a
// running timeout.
func TestTimeoutReminderThresholds(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)

	view := ProjectGameView(s, 10_000)
	if view.TimeoutReminderActive {
		t.Error("Reminder should be off with 50s remaining")
	}

	view = ProjectGameView(s, 35_000)
	if !view.TimeoutReminderActive || view.TimeoutWarningActive {
		t.Error("Only the reminder should be on with 25s remaining")
	}

	view = ProjectGameView(s, 50_000)
	if !view.TimeoutWarningActive || view.TimeoutFinalCountdown {
		t.Error("Reminder and warning should be on with 10s remaining")
	}

	view = ProjectGameView(s, 56_000)
	if !view.TimeoutFinalCountdown {
		t.Error("Final countdown should be on with 4s remaining")
	}
}

// TestTimeoutRemindersOffWhilePaused tests that a paused timeout shows
// no reminders.
func TestTimeoutRemindersOffWhilePaused(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 0)
	s = Apply(s, StartTimeout{Team: TeamHome}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: true}, 0, ids)
	s = Apply(s, SetTimeoutRunning{Running: false}, 40_000, ids)

	view := ProjectGameView(s, 40_000)
	if view.TimeoutReminderActive || view.TimeoutWarningActive {
		t.Error("Paused timeout must show no reminders")
	}
}

// TestSummarize tests the lobby projection.
func TestSummarize(t *testing.T) {
	ids := SequentialIDs("t")
	s := NewGameState("g1", 1_000)
	s = Apply(s, RenameTeams{HomeName: "Foxes", AwayName: "Owls"}, 1_000, ids)
	s = Apply(s, ChangeScore{Team: TeamHome, Delta: 20, Reason: ScoreReasonGoal}, 1_000, ids)
	s = Apply(s, SetRunning{Running: true}, 1_000, ids)

	summary := Summarize(s, 11_000)
	if summary.ID != "g1" {
		t.Errorf("Expected id g1, got %s", summary.ID)
	}
	if summary.HomeName != "Foxes" || summary.AwayName != "Owls" {
		t.Errorf("Names wrong: %s / %s", summary.HomeName, summary.AwayName)
	}
	if summary.Score.Home != 20 {
		t.Errorf("Expected home 20, got %d", summary.Score.Home)
	}
	if summary.GameClockMs != 10_000 {
		t.Errorf("Expected projected clock 10000, got %d", summary.GameClockMs)
	}
	if !summary.Running {
		t.Error("Summary should reflect the running clock")
	}
}
