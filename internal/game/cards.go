package game

func (s *GameState) applyAddCard(c AddCard, nowMs int64, ids IDGenerator) {
	if s.Finished {
		return
	}
	if c.PlayerNumber != nil && (*c.PlayerNumber < 0 || *c.PlayerNumber > MaxPlayerNumber) {
		return
	}

	key := s.playerKeyFor(c.Team, c.PlayerNumber)

	// The card log records every card shown, including ejections and
	// cards whose time turns out to be fully served already.
	s.CardEvents = append(s.CardEvents, CardEvent{
		ID:           ids(),
		Team:         c.Team,
		PlayerNumber: cloneInt(c.PlayerNumber),
		PlayerKey:    key,
		CardType:     c.CardType,
		GameClockMs:  s.GameClockMs,
		AtMs:         nowMs,
	})

	segments := newSegments(c.CardType, ids)
	if len(segments) == 0 {
		return
	}

	existing := s.Players[key]
	hadPrior := existing != nil && len(existing.Segments) > 0

	// A card recorded late for an infraction earlier in live play
	// pre-consumes the elapsed time from the newly added segments only,
	// so a pre-existing penalty on the same player keeps the time it
	// has already served.
	if !hadPrior && c.StartedGameClockMs != nil {
		if elapsed := s.GameClockMs - *c.StartedGameClockMs; elapsed > 0 {
			segments = consumeSegments(segments, elapsed)
		}
	}

	if len(segments) == 0 {
		// Backdated far enough that the whole penalty is already served.
		s.RecentReleases = append(s.RecentReleases, PenaltyRelease{
			PlayerKey:    key,
			Team:         c.Team,
			PlayerNumber: cloneInt(c.PlayerNumber),
			Reason:       ReleaseServed,
			ReleasedAtMs: nowMs,
		})
		return
	}

	if existing == nil {
		existing = &PlayerPenaltyState{
			Key:          key,
			Team:         c.Team,
			PlayerNumber: cloneInt(c.PlayerNumber),
		}
		s.Players[key] = existing
	}
	existing.Segments = append(existing.Segments, segments...)
}

// newSegments builds the penalty segments a card produces. Ejections
// carry no serveable time; red-card segments can never be expired by a
// goal.
func newSegments(cardType CardType, ids IDGenerator) []PenaltySegment {
	switch cardType {
	case CardRed:
		return []PenaltySegment{
			{ID: ids(), CardType: CardRed, RemainingMs: PenaltySegmentMs},
			{ID: ids(), CardType: CardRed, RemainingMs: PenaltySegmentMs},
		}
	case CardBlue, CardYellow:
		return []PenaltySegment{
			{ID: ids(), CardType: cardType, RemainingMs: PenaltySegmentMs, ExpirableByScore: true},
		}
	default:
		return nil
	}
}

func (s *GameState) applyConfirmExpiration(c ConfirmPenaltyExpiration, nowMs int64) {
	if s.Finished {
		return
	}
	pending := s.findPending(c.PendingID)
	if pending == nil || pending.ResolvedAtMs != nil {
		return
	}

	key := c.PlayerKey
	if key == "" {
		// Auto-resolution is only unambiguous with a single candidate.
		if len(pending.CandidatePlayerKeys) != 1 {
			return
		}
		key = pending.CandidatePlayerKeys[0]
	} else if !containsKey(pending.CandidatePlayerKeys, key) {
		return
	}

	resolvedAt := nowMs
	pending.ResolvedAtMs = &resolvedAt
	pending.ResolvedPlayerKey = key

	// The record resolves even when the player has since served out:
	// a raced confirmation must not stay open forever.
	player := s.Players[key]
	if player == nil {
		return
	}
	consumeExpirable(player, pending.ExpireMs)
	if len(player.Segments) == 0 {
		s.releasePlayer(player, ReleaseExpired, nowMs)
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
