// Package protocol defines the JSON wire messages exchanged over the
// game WebSocket and validates them strictly at the boundary: the
// engine never sees malformed input. Unknown message types, unknown
// command kinds, and structurally invalid envelopes all fail closed
// with a descriptive error.
package protocol

import (
	"encoding/json"
	"fmt"

	"quadclock/internal/game"
)

// Message type tags.
const (
	TypeSubscribeLobby = "subscribe-lobby"
	TypeSubscribeGame  = "subscribe-game"
	TypeApplyCommands  = "apply-commands"
	TypeError          = "error"
	TypeLobbySnapshot  = "lobby-snapshot"
	TypeGameSnapshot   = "game-snapshot"
)

// Role is the subscription role for a game socket. Only a controller
// may send apply-commands for its subscribed game.
type Role string

const (
	RoleController Role = "controller"
	RoleSpectator  Role = "spectator"
)

// Error codes carried on ErrorMessage so clients can react without
// parsing prose. The message field stays human-readable.
const (
	ErrCodeBadMessage    = "bad-message"
	ErrCodeUnknownGame   = "unknown-game"
	ErrCodeNotController = "not-controller"
)

// ClientMessage is the closed union of messages a client may send.
type ClientMessage interface {
	isClientMessage()
}

// SubscribeLobby subscribes the socket to lobby snapshots.
type SubscribeLobby struct{}

// SubscribeGame subscribes the socket to one game's snapshots.
type SubscribeGame struct {
	GameID string
	Role   Role
}

// ApplyCommands carries a batch of command envelopes for one game.
type ApplyCommands struct {
	GameID    string
	Envelopes []CommandEnvelope
}

func (SubscribeLobby) isClientMessage() {}
func (SubscribeGame) isClientMessage()  {}
func (ApplyCommands) isClientMessage()  {}

// CommandEnvelope is one client command plus its idempotency id and the
// logical time it was issued. The id deduplicates replays after packet
// loss; the timestamp is the command's logical time on the server too,
// which is what makes optimistic replay deterministic.
type CommandEnvelope struct {
	ID             string
	ClientSentAtMs int64
	Command        game.Command
}

// MarshalJSON encodes the envelope with its command in wire form.
func (e CommandEnvelope) MarshalJSON() ([]byte, error) {
	cmd, err := EncodeCommand(e.Command)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID             string          `json:"id"`
		ClientSentAtMs int64           `json:"clientSentAtMs"`
		Command        json.RawMessage `json:"command"`
	}{e.ID, e.ClientSentAtMs, cmd})
}

// UnmarshalJSON decodes and validates the envelope. An envelope is
// accepted only with a non-empty id, a numeric client timestamp, and a
// structurally valid command payload.
func (e *CommandEnvelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             *string         `json:"id"`
		ClientSentAtMs *int64          `json:"clientSentAtMs"`
		Command        json.RawMessage `json:"command"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("envelope: %w", err)
	}
	if raw.ID == nil || *raw.ID == "" {
		return fmt.Errorf("envelope: missing id")
	}
	if raw.ClientSentAtMs == nil {
		return fmt.Errorf("envelope %s: missing clientSentAtMs", *raw.ID)
	}
	if len(raw.Command) == 0 {
		return fmt.Errorf("envelope %s: missing command", *raw.ID)
	}
	cmd, err := DecodeCommand(raw.Command)
	if err != nil {
		return fmt.Errorf("envelope %s: %w", *raw.ID, err)
	}
	e.ID = *raw.ID
	e.ClientSentAtMs = *raw.ClientSentAtMs
	e.Command = cmd
	return nil
}

// ErrorMessage is sent to a single socket when its input was rejected.
// The connection stays open.
type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewError builds an error message with a machine-readable code.
func NewError(code, message string) ErrorMessage {
	return ErrorMessage{Type: TypeError, Code: code, Message: message}
}

// LobbySnapshot lists every known game.
type LobbySnapshot struct {
	Type        string             `json:"type"`
	Games       []game.GameSummary `json:"games"`
	ServerNowMs int64              `json:"serverNowMs"`
}

// NewLobbySnapshot builds a lobby snapshot message.
func NewLobbySnapshot(games []game.GameSummary, serverNowMs int64) LobbySnapshot {
	return LobbySnapshot{Type: TypeLobbySnapshot, Games: games, ServerNowMs: serverNowMs}
}

// GameSnapshot is the full immutable projection of one game. The acked
// id list is populated only on the copy sent to the socket whose batch
// produced the snapshot; everyone else receives an empty list.
type GameSnapshot struct {
	Type            string        `json:"type"`
	Game            game.GameView `json:"game"`
	ServerNowMs     int64         `json:"serverNowMs"`
	AckedCommandIDs []string      `json:"ackedCommandIds"`
}

// NewGameSnapshot builds a game snapshot message.
func NewGameSnapshot(view game.GameView, serverNowMs int64, ackedIDs []string) GameSnapshot {
	if ackedIDs == nil {
		ackedIDs = []string{}
	}
	return GameSnapshot{
		Type:            TypeGameSnapshot,
		Game:            view,
		ServerNowMs:     serverNowMs,
		AckedCommandIDs: ackedIDs,
	}
}

// wire forms of the client messages, used by EncodeSubscribe*/EncodeApplyCommands
// on the client side and mirrored by DecodeClientMessage on the server.

type subscribeLobbyWire struct {
	Type string `json:"type"`
}

type subscribeGameWire struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
	Role   Role   `json:"role"`
}

type applyCommandsWire struct {
	Type     string            `json:"type"`
	GameID   string            `json:"gameId"`
	Commands []CommandEnvelope `json:"commands"`
}

// EncodeSubscribeLobby marshals a lobby subscription request.
func EncodeSubscribeLobby() ([]byte, error) {
	return json.Marshal(subscribeLobbyWire{Type: TypeSubscribeLobby})
}

// EncodeSubscribeGame marshals a game subscription request.
func EncodeSubscribeGame(gameID string, role Role) ([]byte, error) {
	return json.Marshal(subscribeGameWire{Type: TypeSubscribeGame, GameID: gameID, Role: role})
}

// EncodeApplyCommands marshals a command batch.
func EncodeApplyCommands(gameID string, envelopes []CommandEnvelope) ([]byte, error) {
	return json.Marshal(applyCommandsWire{Type: TypeApplyCommands, GameID: gameID, Commands: envelopes})
}
