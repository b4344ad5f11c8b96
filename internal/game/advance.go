package game

import "sort"

// Advance is the time-projection step, called before every command
// application and before producing any view. It never moves state
// backward: for nowMs at or before the last anchor it returns an
// unchanged copy. The engine is tick-free — callers supply "now" and
// get a consistent projection, so there are no timers in this package.
func Advance(s *GameState, nowMs int64) *GameState {
	next := s.Clone()
	if nowMs <= next.UpdatedAtMs {
		return next
	}
	deltaMs := nowMs - next.UpdatedAtMs

	switch {
	case next.Running && !next.Finished:
		next.GameClockMs += deltaMs
		next.consumePenaltyTime(deltaMs, nowMs)
	case next.timeoutTicking():
		active := next.Timeouts.Active
		if deltaMs >= active.RemainingMs {
			// Timeout is consumed, not restored: the used flag stays set.
			next.Timeouts.Active = nil
		} else {
			active.RemainingMs -= deltaMs
		}
	}

	next.pruneReleases(nowMs)
	next.UpdatedAtMs = nowMs
	return next
}

// timeoutTicking reports whether the active timeout should consume the
// elapsed wall time. A timeout never ticks while the game clock runs.
func (s *GameState) timeoutTicking() bool {
	return s.Timeouts.Active != nil && s.Timeouts.Active.Running && !s.Running
}

// consumePenaltyTime burns elapsed live time off every penalized
// player, releasing players whose last segment empties. Keys are walked
// in sorted order so release ordering is deterministic.
func (s *GameState) consumePenaltyTime(deltaMs, nowMs int64) {
	keys := make([]string, 0, len(s.Players))
	for key := range s.Players {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		player := s.Players[key]
		player.Segments = consumeSegments(player.Segments, deltaMs)
		if len(player.Segments) == 0 {
			s.releasePlayer(player, ReleaseServed, nowMs)
		}
	}
}

// consumeSegments removes elapsed time from segments in FIFO order and
// drops emptied segments. All segments burn down during live play,
// including non-expirable red-card time; only score-based expiration
// distinguishes the two (see consumeExpirable).
func consumeSegments(segments []PenaltySegment, deltaMs int64) []PenaltySegment {
	kept := segments[:0]
	for _, segment := range segments {
		if deltaMs >= segment.RemainingMs {
			deltaMs -= segment.RemainingMs
			continue
		}
		segment.RemainingMs -= deltaMs
		deltaMs = 0
		kept = append(kept, segment)
	}
	return kept
}

// consumeExpirable removes up to amountMs from score-expirable segments
// only, FIFO among those. Red-card time is never touched by a goal.
func consumeExpirable(player *PlayerPenaltyState, amountMs int64) {
	kept := player.Segments[:0]
	for _, segment := range player.Segments {
		if segment.ExpirableByScore && amountMs > 0 {
			if amountMs >= segment.RemainingMs {
				amountMs -= segment.RemainingMs
				continue
			}
			segment.RemainingMs -= amountMs
			amountMs = 0
		}
		kept = append(kept, segment)
	}
	player.Segments = kept
}

// releasePlayer emits a release notification and deletes the player
// entry. Callers must have verified the player owes no more time.
func (s *GameState) releasePlayer(player *PlayerPenaltyState, reason ReleaseReason, nowMs int64) {
	s.RecentReleases = append(s.RecentReleases, PenaltyRelease{
		PlayerKey:    player.Key,
		Team:         player.Team,
		PlayerNumber: cloneInt(player.PlayerNumber),
		Reason:       reason,
		ReleasedAtMs: nowMs,
	})
	delete(s.Players, player.Key)
}

// pruneReleases drops release notifications older than the visibility
// window. The window is wall time, independent of the game clock.
func (s *GameState) pruneReleases(nowMs int64) {
	kept := s.RecentReleases[:0]
	for _, release := range s.RecentReleases {
		if nowMs-release.ReleasedAtMs <= ReleaseVisibilityMs {
			kept = append(kept, release)
		}
	}
	s.RecentReleases = kept
}
