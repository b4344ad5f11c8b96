// Package client implements the controller-side reconciliation engine:
// optimistic command application against a local copy of the game,
// a pending queue replayed onto every server snapshot, and a local-only
// fallback backed by a persisted session file.
package client

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"quadclock/internal/game"
	"quadclock/internal/protocol"
)

// SessionVersion is bumped whenever the persisted layout changes;
// records with any other version are discarded, not migrated.
const SessionVersion = 1

// PersistedSession is the versioned recovery record written after
// every dispatch and snapshot. Unmarshalling validates each pending
// envelope through the protocol codec, so a corrupted file can never
// feed the engine malformed commands.
type PersistedSession struct {
	Version         int                        `json:"version"`
	GameID          string                     `json:"gameId"`
	State           *game.GameState            `json:"state"`
	PendingCommands []protocol.CommandEnvelope `json:"pendingCommands"`
	CommandCounter  uint64                     `json:"commandCounter"`
	SavedAtMs       int64                      `json:"savedAtMs"`
}

// valid reports whether the record can be trusted for the given game.
func (s *PersistedSession) valid(gameID string) bool {
	if s == nil || s.Version != SessionVersion || s.State == nil {
		return false
	}
	return s.GameID == gameID && s.State.ID == gameID
}

// SessionStore is the local-storage capability injected into the
// reconciler. Persistence is best effort: failures are logged by the
// caller and never surfaced to core logic.
type SessionStore interface {
	// Load returns the stored session for the game, or nil when none
	// exists or the stored record is not trustworthy.
	Load(gameID string) (*PersistedSession, error)
	Save(session *PersistedSession) error
}

// FileSessionStore persists one JSON file per game under a directory.
type FileSessionStore struct {
	dir string
}

// NewFileSessionStore creates a store rooted at dir.
func NewFileSessionStore(dir string) *FileSessionStore {
	return &FileSessionStore{dir: dir}
}

func (f *FileSessionStore) path(gameID string) string {
	return filepath.Join(f.dir, gameID+".json")
}

// Load reads and validates the session for the game. Structurally
// invalid or mismatched records are discarded silently — recovering
// nothing beats recovering garbage.
func (f *FileSessionStore) Load(gameID string) (*PersistedSession, error) {
	data, err := os.ReadFile(f.path(gameID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var session PersistedSession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, nil
	}
	if !session.valid(gameID) {
		return nil, nil
	}
	return &session, nil
}

// Save writes the session atomically via a temp file rename.
func (f *FileSessionStore) Save(session *PersistedSession) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("session dir: %w", err)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	tmp := f.path(session.GameID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, f.path(session.GameID))
}
