package protocol

import (
	"strings"
	"testing"

	"quadclock/internal/game"
)

// TestDecodeClientMessageTypes tests the message-type dispatch.
func TestDecodeClientMessageTypes(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"subscribe-lobby"}`))
	if err != nil {
		t.Fatalf("subscribe-lobby failed: %v", err)
	}
	if _, ok := msg.(SubscribeLobby); !ok {
		t.Errorf("Expected SubscribeLobby, got %T", msg)
	}

	msg, err = DecodeClientMessage([]byte(`{"type":"subscribe-game","gameId":"g1","role":"spectator"}`))
	if err != nil {
		t.Fatalf("subscribe-game failed: %v", err)
	}
	sub, ok := msg.(SubscribeGame)
	if !ok || sub.GameID != "g1" || sub.Role != RoleSpectator {
		t.Errorf("Wrong subscription: %+v", msg)
	}

	if _, err := DecodeClientMessage([]byte(`{"type":"shutdown"}`)); err == nil {
		t.Error("Unknown message type should be rejected")
	}
	if _, err := DecodeClientMessage([]byte(`{}`)); err == nil {
		t.Error("Missing message type should be rejected")
	}
	if _, err := DecodeClientMessage([]byte(`not json`)); err == nil {
		t.Error("Malformed JSON should be rejected")
	}
}

// TestDecodeSubscribeGameValidation tests the subscription field checks.
func TestDecodeSubscribeGameValidation(t *testing.T) {
	if _, err := DecodeClientMessage([]byte(`{"type":"subscribe-game","role":"controller"}`)); err == nil {
		t.Error("Missing gameId should be rejected")
	}
	if _, err := DecodeClientMessage([]byte(`{"type":"subscribe-game","gameId":"g1","role":"admin"}`)); err == nil {
		t.Error("Unknown role should be rejected")
	}
}

// TestDecodeApplyCommands tests batch decoding with envelope validation.
func TestDecodeApplyCommands(t *testing.T) {
	data := []byte(`{
		"type": "apply-commands",
		"gameId": "g1",
		"commands": [
			{"id": "c1", "clientSentAtMs": 1000, "command": {"kind": "set-running", "running": true}},
			{"id": "c2", "clientSentAtMs": 2000, "command": {"kind": "change-score", "team": "home", "delta": 10, "reason": "goal"}}
		]
	}`)

	msg, err := DecodeClientMessage(data)
	if err != nil {
		t.Fatalf("apply-commands failed: %v", err)
	}
	batch, ok := msg.(ApplyCommands)
	if !ok {
		t.Fatalf("Expected ApplyCommands, got %T", msg)
	}
	if batch.GameID != "g1" || len(batch.Envelopes) != 2 {
		t.Fatalf("Wrong batch: %+v", batch)
	}
	if batch.Envelopes[0].ID != "c1" || batch.Envelopes[0].ClientSentAtMs != 1000 {
		t.Errorf("Wrong first envelope: %+v", batch.Envelopes[0])
	}
	if _, ok := batch.Envelopes[0].Command.(game.SetRunning); !ok {
		t.Errorf("Expected SetRunning, got %T", batch.Envelopes[0].Command)
	}
	score, ok := batch.Envelopes[1].Command.(game.ChangeScore)
	if !ok || score.Team != game.TeamHome || score.Delta != 10 {
		t.Errorf("Wrong second command: %+v", batch.Envelopes[1].Command)
	}
}

// TestDecodeApplyCommandsRejectsBadEnvelope tests that one bad envelope
// fails the whole batch with its index in the error.
func TestDecodeApplyCommandsRejectsBadEnvelope(t *testing.T) {
	cases := []string{
		`{"type":"apply-commands","gameId":"g1","commands":[{"clientSentAtMs":1,"command":{"kind":"suspend-game"}}]}`,
		`{"type":"apply-commands","gameId":"g1","commands":[{"id":"c1","command":{"kind":"suspend-game"}}]}`,
		`{"type":"apply-commands","gameId":"g1","commands":[{"id":"c1","clientSentAtMs":1}]}`,
		`{"type":"apply-commands","gameId":"g1","commands":[{"id":"c1","clientSentAtMs":1,"command":{"kind":"launch-missiles"}}]}`,
		`{"type":"apply-commands","commands":[]}`,
	}
	for i, data := range cases {
		if _, err := DecodeClientMessage([]byte(data)); err == nil {
			t.Errorf("Case %d: invalid batch accepted", i)
		}
	}

	_, err := DecodeClientMessage([]byte(`{"type":"apply-commands","gameId":"g1","commands":[{"id":"c1","clientSentAtMs":1,"command":{"kind":"suspend-game"}},{"id":"","clientSentAtMs":1,"command":{"kind":"suspend-game"}}]}`))
	if err == nil || !strings.Contains(err.Error(), "[1]") {
		t.Errorf("Error should carry the failing index, got %v", err)
	}
}

// TestDecodeCommandValidation tests field and enum validation on
// individual commands.
func TestDecodeCommandValidation(t *testing.T) {
	rejected := []string{
		`{"kind":"set-running"}`,
		`{"kind":"adjust-game-clock"}`,
		`{"kind":"set-game-clock"}`,
		`{"kind":"change-score","team":"home","delta":10,"reason":"flag-catch"}`,
		`{"kind":"change-score","team":"neutral","delta":10,"reason":"goal"}`,
		`{"kind":"change-score","team":"home","reason":"goal"}`,
		`{"kind":"add-card","team":"home","playerNumber":150,"cardType":"blue"}`,
		`{"kind":"add-card","team":"home","cardType":"green"}`,
		`{"kind":"confirm-penalty-expiration"}`,
		`{"kind":"record-forfeit","team":"both"}`,
		`{"kind":"rename-teams"}`,
		`{"kind":"set-display-sides-swapped"}`,
		`{}`,
	}
	for i, data := range rejected {
		if _, err := DecodeCommand([]byte(data)); err == nil {
			t.Errorf("Case %d accepted: %s", i, data)
		}
	}

	cmd, err := DecodeCommand([]byte(`{"kind":"add-card","team":"away","cardType":"red"}`))
	if err != nil {
		t.Fatalf("Numberless card rejected: %v", err)
	}
	card := cmd.(game.AddCard)
	if card.PlayerNumber != nil {
		t.Error("Absent playerNumber should decode as nil")
	}

	cmd, err = DecodeCommand([]byte(`{"kind":"set-game-clock","ms":0}`))
	if err != nil {
		t.Fatalf("Zero clock rejected: %v", err)
	}
	if cmd.(game.SetGameClock).Ms != 0 {
		t.Error("Explicit zero must be distinguishable from missing")
	}
}

// TestCommandRoundTrip tests that every command kind survives
// encode-then-decode unchanged.
func TestCommandRoundTrip(t *testing.T) {
	seven := 7
	started := int64(15_000)
	commands := []game.Command{
		game.SetRunning{Running: true},
		game.AdjustGameClock{DeltaMs: -5_000},
		game.SetGameClock{Ms: 120_000},
		game.ChangeScore{Team: game.TeamHome, Delta: 10, Reason: game.ScoreReasonGoal},
		game.UndoLastScore{Team: game.TeamAway},
		game.AddCard{Team: game.TeamHome, PlayerNumber: &seven, CardType: game.CardBlue, StartedGameClockMs: &started},
		game.ConfirmPenaltyExpiration{PendingID: "p1", PlayerKey: "home:7"},
		game.StartTimeout{Team: game.TeamAway},
		game.SetTimeoutRunning{Running: false},
		game.UndoTimeoutStart{},
		game.CancelTimeout{},
		game.RecordFlagCatch{Team: game.TeamHome},
		game.SuspendGame{},
		game.ResumeGame{},
		game.RecordForfeit{Team: game.TeamHome},
		game.RecordDoubleForfeit{},
		game.RecordTargetScore{},
		game.RecordConcede{Team: game.TeamAway},
		game.SetDisplaySidesSwapped{Swapped: true},
		game.RenameTeams{HomeName: "Foxes", AwayName: "Owls"},
	}

	for _, original := range commands {
		data, err := EncodeCommand(original)
		if err != nil {
			t.Fatalf("Encode %T failed: %v", original, err)
		}
		decoded, err := DecodeCommand(data)
		if err != nil {
			t.Fatalf("Decode %T failed: %v", original, err)
		}
		switch want := original.(type) {
		case game.AddCard:
			got, ok := decoded.(game.AddCard)
			if !ok || got.Team != want.Team || got.CardType != want.CardType {
				t.Errorf("AddCard round trip mismatch: %+v", decoded)
			}
			if got.PlayerNumber == nil || *got.PlayerNumber != *want.PlayerNumber {
				t.Error("AddCard lost playerNumber")
			}
			if got.StartedGameClockMs == nil || *got.StartedGameClockMs != *want.StartedGameClockMs {
				t.Error("AddCard lost startedGameClockMs")
			}
		default:
			if decoded != original {
				t.Errorf("Round trip mismatch: sent %+v, got %+v", original, decoded)
			}
		}
	}
}

// TestEnvelopeRoundTrip tests envelope marshalling through the batch
// encoder and back through the message decoder.
func TestEnvelopeRoundTrip(t *testing.T) {
	envelopes := []CommandEnvelope{
		{ID: "c1", ClientSentAtMs: 1_000, Command: game.SetRunning{Running: true}},
		{ID: "c2", ClientSentAtMs: 2_000, Command: game.ChangeScore{Team: game.TeamAway, Delta: 10, Reason: game.ScoreReasonGoal}},
	}

	data, err := EncodeApplyCommands("g1", envelopes)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	msg, err := DecodeClientMessage(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	batch := msg.(ApplyCommands)
	if len(batch.Envelopes) != 2 {
		t.Fatalf("Expected 2 envelopes, got %d", len(batch.Envelopes))
	}
	if batch.Envelopes[0] != envelopes[0] {
		t.Errorf("First envelope mismatch: %+v", batch.Envelopes[0])
	}
	if batch.Envelopes[1] != envelopes[1] {
		t.Errorf("Second envelope mismatch: %+v", batch.Envelopes[1])
	}
}
