package protocol

import (
	"encoding/json"
	"fmt"

	"quadclock/internal/game"
)

// Command kind tags. This set mirrors the engine's sealed Command union
// one-to-one; DecodeCommand rejects anything else.
const (
	KindSetRunning               = "set-running"
	KindAdjustGameClock          = "adjust-game-clock"
	KindSetGameClock             = "set-game-clock"
	KindChangeScore              = "change-score"
	KindUndoLastScore            = "undo-last-score"
	KindAddCard                  = "add-card"
	KindConfirmPenaltyExpiration = "confirm-penalty-expiration"
	KindStartTimeout             = "start-timeout"
	KindSetTimeoutRunning        = "set-timeout-running"
	KindUndoTimeoutStart         = "undo-timeout-start"
	KindCancelTimeout            = "cancel-timeout"
	KindRecordFlagCatch          = "record-flag-catch"
	KindSuspendGame              = "suspend-game"
	KindResumeGame               = "resume-game"
	KindRecordForfeit            = "record-forfeit"
	KindRecordDoubleForfeit      = "record-double-forfeit"
	KindRecordTargetScore        = "record-target-score"
	KindRecordConcede            = "record-concede"
	KindSetDisplaySidesSwapped   = "set-display-sides-swapped"
	KindRenameTeams              = "rename-teams"
)

// DecodeClientMessage parses and validates one raw client frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	switch probe.Type {
	case TypeSubscribeLobby:
		return SubscribeLobby{}, nil

	case TypeSubscribeGame:
		var raw subscribeGameWire
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("subscribe-game: %w", err)
		}
		if raw.GameID == "" {
			return nil, fmt.Errorf("subscribe-game: missing gameId")
		}
		if raw.Role != RoleController && raw.Role != RoleSpectator {
			return nil, fmt.Errorf("subscribe-game: invalid role %q", raw.Role)
		}
		return SubscribeGame{GameID: raw.GameID, Role: raw.Role}, nil

	case TypeApplyCommands:
		var raw struct {
			GameID   string            `json:"gameId"`
			Commands []json.RawMessage `json:"commands"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("apply-commands: %w", err)
		}
		if raw.GameID == "" {
			return nil, fmt.Errorf("apply-commands: missing gameId")
		}
		envelopes := make([]CommandEnvelope, 0, len(raw.Commands))
		for i, rawEnv := range raw.Commands {
			var env CommandEnvelope
			if err := json.Unmarshal(rawEnv, &env); err != nil {
				return nil, fmt.Errorf("apply-commands[%d]: %w", i, err)
			}
			envelopes = append(envelopes, env)
		}
		return ApplyCommands{GameID: raw.GameID, Envelopes: envelopes}, nil

	case "":
		return nil, fmt.Errorf("missing message type")
	default:
		return nil, fmt.Errorf("unknown message type %q", probe.Type)
	}
}

// DecodeCommand parses a tagged command payload into a typed engine
// command, validating every field's type and enum membership. Required
// fields use pointer probes so a missing field is distinguishable from
// a zero value.
func DecodeCommand(data []byte) (game.Command, error) {
	var probe struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("invalid command: %w", err)
	}

	switch probe.Kind {
	case KindSetRunning:
		var raw struct {
			Running *bool `json:"running"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.Running == nil {
			return nil, missingField(probe.Kind, "running")
		}
		return game.SetRunning{Running: *raw.Running}, nil

	case KindAdjustGameClock:
		var raw struct {
			DeltaMs *int64 `json:"deltaMs"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.DeltaMs == nil {
			return nil, missingField(probe.Kind, "deltaMs")
		}
		return game.AdjustGameClock{DeltaMs: *raw.DeltaMs}, nil

	case KindSetGameClock:
		var raw struct {
			Ms *int64 `json:"ms"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.Ms == nil {
			return nil, missingField(probe.Kind, "ms")
		}
		return game.SetGameClock{Ms: *raw.Ms}, nil

	case KindChangeScore:
		var raw struct {
			Team   string `json:"team"`
			Delta  *int   `json:"delta"`
			Reason string `json:"reason"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		team, err := parseTeam(probe.Kind, raw.Team)
		if err != nil {
			return nil, err
		}
		if raw.Delta == nil {
			return nil, missingField(probe.Kind, "delta")
		}
		// The internal flag-catch reason is not accepted from the wire.
		reason := game.ScoreReason(raw.Reason)
		if reason != game.ScoreReasonGoal && reason != game.ScoreReasonManual {
			return nil, fmt.Errorf("%s: invalid reason %q", probe.Kind, raw.Reason)
		}
		return game.ChangeScore{Team: team, Delta: *raw.Delta, Reason: reason}, nil

	case KindUndoLastScore:
		team, err := decodeTeamOnly(data, probe.Kind)
		if err != nil {
			return nil, err
		}
		return game.UndoLastScore{Team: team}, nil

	case KindAddCard:
		var raw struct {
			Team               string `json:"team"`
			PlayerNumber       *int   `json:"playerNumber"`
			CardType           string `json:"cardType"`
			StartedGameClockMs *int64 `json:"startedGameClockMs"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		team, err := parseTeam(probe.Kind, raw.Team)
		if err != nil {
			return nil, err
		}
		if raw.PlayerNumber != nil && (*raw.PlayerNumber < 0 || *raw.PlayerNumber > game.MaxPlayerNumber) {
			return nil, fmt.Errorf("%s: playerNumber out of range: %d", probe.Kind, *raw.PlayerNumber)
		}
		cardType := game.CardType(raw.CardType)
		switch cardType {
		case game.CardBlue, game.CardYellow, game.CardRed, game.CardEjection:
		default:
			return nil, fmt.Errorf("%s: invalid cardType %q", probe.Kind, raw.CardType)
		}
		return game.AddCard{
			Team:               team,
			PlayerNumber:       raw.PlayerNumber,
			CardType:           cardType,
			StartedGameClockMs: raw.StartedGameClockMs,
		}, nil

	case KindConfirmPenaltyExpiration:
		var raw struct {
			PendingID string `json:"pendingId"`
			PlayerKey string `json:"playerKey"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.PendingID == "" {
			return nil, missingField(probe.Kind, "pendingId")
		}
		return game.ConfirmPenaltyExpiration{PendingID: raw.PendingID, PlayerKey: raw.PlayerKey}, nil

	case KindStartTimeout:
		team, err := decodeTeamOnly(data, probe.Kind)
		if err != nil {
			return nil, err
		}
		return game.StartTimeout{Team: team}, nil

	case KindSetTimeoutRunning:
		var raw struct {
			Running *bool `json:"running"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.Running == nil {
			return nil, missingField(probe.Kind, "running")
		}
		return game.SetTimeoutRunning{Running: *raw.Running}, nil

	case KindUndoTimeoutStart:
		return game.UndoTimeoutStart{}, nil

	case KindCancelTimeout:
		return game.CancelTimeout{}, nil

	case KindRecordFlagCatch:
		team, err := decodeTeamOnly(data, probe.Kind)
		if err != nil {
			return nil, err
		}
		return game.RecordFlagCatch{Team: team}, nil

	case KindSuspendGame:
		return game.SuspendGame{}, nil

	case KindResumeGame:
		return game.ResumeGame{}, nil

	case KindRecordForfeit:
		team, err := decodeTeamOnly(data, probe.Kind)
		if err != nil {
			return nil, err
		}
		return game.RecordForfeit{Team: team}, nil

	case KindRecordDoubleForfeit:
		return game.RecordDoubleForfeit{}, nil

	case KindRecordTargetScore:
		return game.RecordTargetScore{}, nil

	case KindRecordConcede:
		team, err := decodeTeamOnly(data, probe.Kind)
		if err != nil {
			return nil, err
		}
		return game.RecordConcede{Team: team}, nil

	case KindSetDisplaySidesSwapped:
		var raw struct {
			Swapped *bool `json:"swapped"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.Swapped == nil {
			return nil, missingField(probe.Kind, "swapped")
		}
		return game.SetDisplaySidesSwapped{Swapped: *raw.Swapped}, nil

	case KindRenameTeams:
		var raw struct {
			HomeName string `json:"homeName"`
			AwayName string `json:"awayName"`
		}
		if err := decodeStrict(data, &raw, probe.Kind); err != nil {
			return nil, err
		}
		if raw.HomeName == "" && raw.AwayName == "" {
			return nil, fmt.Errorf("%s: no names given", probe.Kind)
		}
		return game.RenameTeams{HomeName: raw.HomeName, AwayName: raw.AwayName}, nil

	case "":
		return nil, fmt.Errorf("command: missing kind")
	default:
		return nil, fmt.Errorf("command: unknown kind %q", probe.Kind)
	}
}

// EncodeCommand marshals an engine command into its tagged wire form.
// The type switch covers the whole sealed union; an unknown dynamic
// type can only mean a new command kind was not wired up here.
func EncodeCommand(cmd game.Command) (json.RawMessage, error) {
	kind, err := kindOf(cmd)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, 1)
	}
	fields["kind"], _ = json.Marshal(kind)
	return json.Marshal(fields)
}

func kindOf(cmd game.Command) (string, error) {
	switch cmd.(type) {
	case game.SetRunning:
		return KindSetRunning, nil
	case game.AdjustGameClock:
		return KindAdjustGameClock, nil
	case game.SetGameClock:
		return KindSetGameClock, nil
	case game.ChangeScore:
		return KindChangeScore, nil
	case game.UndoLastScore:
		return KindUndoLastScore, nil
	case game.AddCard:
		return KindAddCard, nil
	case game.ConfirmPenaltyExpiration:
		return KindConfirmPenaltyExpiration, nil
	case game.StartTimeout:
		return KindStartTimeout, nil
	case game.SetTimeoutRunning:
		return KindSetTimeoutRunning, nil
	case game.UndoTimeoutStart:
		return KindUndoTimeoutStart, nil
	case game.CancelTimeout:
		return KindCancelTimeout, nil
	case game.RecordFlagCatch:
		return KindRecordFlagCatch, nil
	case game.SuspendGame:
		return KindSuspendGame, nil
	case game.ResumeGame:
		return KindResumeGame, nil
	case game.RecordForfeit:
		return KindRecordForfeit, nil
	case game.RecordDoubleForfeit:
		return KindRecordDoubleForfeit, nil
	case game.RecordTargetScore:
		return KindRecordTargetScore, nil
	case game.RecordConcede:
		return KindRecordConcede, nil
	case game.SetDisplaySidesSwapped:
		return KindSetDisplaySidesSwapped, nil
	case game.RenameTeams:
		return KindRenameTeams, nil
	default:
		return "", fmt.Errorf("unencodable command type %T", cmd)
	}
}

func decodeStrict(data []byte, dst interface{}, kind string) error {
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

func decodeTeamOnly(data []byte, kind string) (game.Team, error) {
	var raw struct {
		Team string `json:"team"`
	}
	if err := decodeStrict(data, &raw, kind); err != nil {
		return "", err
	}
	return parseTeam(kind, raw.Team)
}

func parseTeam(kind, value string) (game.Team, error) {
	team := game.Team(value)
	if team != game.TeamHome && team != game.TeamAway {
		return "", fmt.Errorf("%s: invalid team %q", kind, value)
	}
	return team, nil
}

func missingField(kind, field string) error {
	return fmt.Errorf("%s: missing %s", kind, field)
}
