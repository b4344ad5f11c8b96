package game

import "sort"

func (s *GameState) applyChangeScore(c ChangeScore, nowMs int64, ids IDGenerator) {
	if s.Finished {
		return
	}
	if c.Delta == 0 || c.Delta%10 != 0 {
		return
	}
	if c.Delta < 0 || c.Reason == ScoreReasonManual {
		// Direct adjustment: no score event, no expiration offer.
		s.addScore(c.Team, c.Delta)
		return
	}
	s.applyGoalScore(c.Team, c.Delta, c.Reason, nowMs, ids)
}

// applyGoalScore handles the positive goal/flag-catch path: the pending
// expiration candidates are selected before the score delta lands, and
// the score event links to the offer when one was created.
func (s *GameState) applyGoalScore(team Team, delta int, reason ScoreReason, nowMs int64, ids IDGenerator) {
	pendingID := s.createPendingExpiration(team, nowMs, ids)
	s.addScore(team, delta)
	s.ScoreEvents = append(s.ScoreEvents, ScoreEvent{
		ID:                  ids(),
		Team:                team,
		Delta:               delta,
		Reason:              reason,
		AtMs:                nowMs,
		GameClockMs:         s.GameClockMs,
		PendingExpirationID: pendingID,
	})
}

func (s *GameState) addScore(team Team, delta int) {
	value := s.Score.Get(team) + delta
	if value < 0 {
		value = 0
	}
	s.Score.set(team, value)
}

// createPendingExpiration runs the candidate-selection tie-break over
// the scored-on team's penalized players and freezes the result. Rank
// players by fewest score-expirable segments, then by least remaining
// time on the first such segment; every player tied on both keys is a
// candidate. Returns the new offer's id, or "" when nobody is eligible.
func (s *GameState) createPendingExpiration(benefiting Team, nowMs int64, ids IDGenerator) string {
	penalized := benefiting.Opponent()

	bestCount := -1
	var bestFirstMs int64
	var candidates []string

	for key, player := range s.Players {
		if player.Team != penalized {
			continue
		}
		count := 0
		firstMs := int64(-1)
		for _, segment := range player.Segments {
			if !segment.ExpirableByScore {
				continue
			}
			count++
			if firstMs < 0 {
				firstMs = segment.RemainingMs
			}
		}
		if count == 0 {
			continue
		}
		better := bestCount < 0 ||
			count < bestCount ||
			(count == bestCount && firstMs < bestFirstMs)
		switch {
		case better:
			bestCount = count
			bestFirstMs = firstMs
			candidates = candidates[:0]
			candidates = append(candidates, key)
		case count == bestCount && firstMs == bestFirstMs:
			candidates = append(candidates, key)
		}
	}

	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)

	pending := &PendingPenaltyExpiration{
		ID:                  ids(),
		BenefitingTeam:      benefiting,
		PenalizedTeam:       penalized,
		CandidatePlayerKeys: candidates,
		// Frozen now; never recomputed, even if the confirmation comes
		// after further clock advancement.
		ExpireMs:    bestFirstMs,
		CreatedAtMs: nowMs,
	}
	s.PendingExpirations = append(s.PendingExpirations, pending)
	return pending.ID
}

func (s *GameState) applyUndoLastScore(c UndoLastScore, nowMs int64) {
	if s.Finished {
		return
	}
	for i := len(s.ScoreEvents) - 1; i >= 0; i-- {
		event := &s.ScoreEvents[i]
		if event.Team != c.Team || event.Reason != ScoreReasonGoal || event.UndoneAtMs != nil {
			continue
		}
		undoneAt := nowMs
		event.UndoneAtMs = &undoneAt
		s.addScore(c.Team, -event.Delta)
		if event.PendingExpirationID != "" {
			// The offer disappears; penalty time already removed by a
			// resolved offer is never restored.
			s.removeUnresolvedPending(event.PendingExpirationID)
		}
		return
	}
}

func (s *GameState) removeUnresolvedPending(id string) {
	for i, pending := range s.PendingExpirations {
		if pending.ID != id || pending.ResolvedAtMs != nil {
			continue
		}
		s.PendingExpirations = append(s.PendingExpirations[:i], s.PendingExpirations[i+1:]...)
		return
	}
}
