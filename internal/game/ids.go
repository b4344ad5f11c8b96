package game

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator produces ids for score events, card events, penalty
// segments and pending expirations. It is threaded through Apply
// explicitly so replays can be made reproducible.
type IDGenerator func() string

// RandomIDs returns a UUIDv4-backed generator for production use.
func RandomIDs() IDGenerator {
	return func() string {
		return uuid.NewString()
	}
}

// SequentialIDs returns a deterministic generator for tests and replay
// harnesses.
func SequentialIDs(prefix string) IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
