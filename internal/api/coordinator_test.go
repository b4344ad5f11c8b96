package api

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"quadclock/internal/game"
	"quadclock/internal/protocol"
)

func newTestCoordinator() (*Coordinator, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_000_000))
	return NewCoordinator(clock, game.SequentialIDs("srv")), clock
}

// TestCreateGame tests game creation and lookup.
func TestCreateGame(t *testing.T) {
	c, _ := newTestCoordinator()

	view, err := c.CreateGame("Foxes", "Owls")
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if view.State.HomeName != "Foxes" || view.State.AwayName != "Owls" {
		t.Errorf("Names not applied: %s / %s", view.State.HomeName, view.State.AwayName)
	}
	if view.State.CreatedAtMs != 1_000_000 {
		t.Errorf("Expected creation at 1000000, got %d", view.State.CreatedAtMs)
	}

	got, err := c.View(view.State.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if got.State.ID != view.State.ID {
		t.Error("View returned a different game")
	}

	if _, err := c.View("nope"); !errors.Is(err, ErrUnknownGame) {
		t.Errorf("Expected ErrUnknownGame, got %v", err)
	}
}

// TestCreateGameDefaultNames tests that empty names fall back to the
// engine defaults.
func TestCreateGameDefaultNames(t *testing.T) {
	c, _ := newTestCoordinator()
	view, err := c.CreateGame("", "")
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if view.State.HomeName != "Home" || view.State.AwayName != "Away" {
		t.Errorf("Expected default names, got %s / %s", view.State.HomeName, view.State.AwayName)
	}
}

// TestGameLimit tests the registry cap.
func TestGameLimit(t *testing.T) {
	c, _ := newTestCoordinator()
	c.SetMaxGames(2)

	if _, err := c.CreateGame("", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateGame("", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := c.CreateGame("", ""); !errors.Is(err, ErrGameLimit) {
		t.Errorf("Expected ErrGameLimit, got %v", err)
	}
}

// TestApplyBatch tests command application at the envelope timestamp.
func TestApplyBatch(t *testing.T) {
	c, clock := newTestCoordinator()
	view, _ := c.CreateGame("", "")
	gameID := view.State.ID

	batch := []protocol.CommandEnvelope{
		{ID: "c1", ClientSentAtMs: 1_000_000, Command: game.SetRunning{Running: true}},
		{ID: "c2", ClientSentAtMs: 1_000_000, Command: game.ChangeScore{Team: game.TeamHome, Delta: 10, Reason: game.ScoreReasonGoal}},
	}
	got, acked, err := c.ApplyBatch(gameID, batch)
	if err != nil {
		t.Fatalf("ApplyBatch failed: %v", err)
	}
	if len(acked) != 2 || acked[0] != "c1" || acked[1] != "c2" {
		t.Errorf("Expected both ids acked, got %v", acked)
	}
	if got.State.Score.Home != 10 {
		t.Errorf("Expected home 10, got %d", got.State.Score.Home)
	}
	if !got.State.Running {
		t.Error("Clock should be running")
	}

	// The snapshot is projected to server time, not the envelope time.
	clock.Advance(30 * time.Second)
	projected, err := c.View(gameID)
	if err != nil {
		t.Fatal(err)
	}
	if projected.State.GameClockMs != 30_000 {
		t.Errorf("Expected projected clock 30000, got %d", projected.State.GameClockMs)
	}
}

// TestApplyBatchIdempotent tests that a replayed envelope id is acked
// without being re-applied.
func TestApplyBatchIdempotent(t *testing.T) {
	c, _ := newTestCoordinator()
	view, _ := c.CreateGame("", "")
	gameID := view.State.ID

	batch := []protocol.CommandEnvelope{
		{ID: "c1", ClientSentAtMs: 1_000_000, Command: game.ChangeScore{Team: game.TeamHome, Delta: 10, Reason: game.ScoreReasonGoal}},
	}
	if _, _, err := c.ApplyBatch(gameID, batch); err != nil {
		t.Fatal(err)
	}

	// Same batch again, as after a dropped ack.
	got, acked, err := c.ApplyBatch(gameID, batch)
	if err != nil {
		t.Fatal(err)
	}
	if len(acked) != 1 || acked[0] != "c1" {
		t.Errorf("Duplicate must still be acked, got %v", acked)
	}
	if got.State.Score.Home != 10 {
		t.Errorf("Duplicate was re-applied, score %d", got.State.Score.Home)
	}
	if len(got.State.ScoreEvents) != 1 {
		t.Errorf("Expected 1 score event, got %d", len(got.State.ScoreEvents))
	}
}

// TestApplyBatchUnknownGame tests the unknown-game error.
func TestApplyBatchUnknownGame(t *testing.T) {
	c, _ := newTestCoordinator()
	_, _, err := c.ApplyBatch("nope", nil)
	if !errors.Is(err, ErrUnknownGame) {
		t.Errorf("Expected ErrUnknownGame, got %v", err)
	}
}

// TestSummariesSorted tests lobby ordering by creation time.
func TestSummariesSorted(t *testing.T) {
	c, clock := newTestCoordinator()
	first, _ := c.CreateGame("A", "")
	clock.Advance(time.Second)
	second, _ := c.CreateGame("B", "")

	summaries := c.Summaries()
	if len(summaries) != 2 {
		t.Fatalf("Expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].ID != first.State.ID || summaries[1].ID != second.State.ID {
		t.Error("Summaries not ordered oldest first")
	}
}

// TestAppliedHistoryEviction tests that the idempotency window is
// bounded and evicts oldest first.
func TestAppliedHistoryEviction(t *testing.T) {
	c, _ := newTestCoordinator()
	view, _ := c.CreateGame("", "")
	gameID := view.State.ID

	// Fill the history past its cap with score-neutral commands.
	for i := 0; i < appliedHistoryCap+1; i++ {
		batch := []protocol.CommandEnvelope{
			{ID: fmt.Sprintf("fill-%d", i), ClientSentAtMs: 1_000_000, Command: game.RenameTeams{HomeName: "X"}},
		}
		if _, _, err := c.ApplyBatch(gameID, batch); err != nil {
			t.Fatal(err)
		}
	}

	c.mu.Lock()
	session := c.games[gameID]
	if len(session.appliedOrder) != appliedHistoryCap {
		t.Errorf("Expected history capped at %d, got %d", appliedHistoryCap, len(session.appliedOrder))
	}
	if len(session.appliedIDs) != appliedHistoryCap {
		t.Errorf("Expected id set capped at %d, got %d", appliedHistoryCap, len(session.appliedIDs))
	}
	c.mu.Unlock()
}
