package services

import (
	"beyondrounds_server/config"
	"beyondrounds_server/models"
)

// PairHistory is the committed grouping/feedback history consulted while
// scoring and partitioning. A snapshot is taken once, before an epoch run
// starts, so every score within a run sees the same state.
type PairHistory interface {
	// GroupedWithin reports whether the pair shared a group within the last
	// n epochs.
	GroupedWithin(user1, user2 string, epochs int) bool
	// GroupedEver reports whether the pair ever shared a group.
	GroupedEver(user1, user2 string) bool
	// Avoid reports whether negative feedback rules the pair out entirely.
	Avoid(user1, user2 string) bool
	// ActiveMatch reports whether the pair already has a pending match
	// awaiting resolution.
	ActiveMatch(user1, user2 string) bool
}

// Scorer computes pairwise compatibility as a weighted sum of attribute
// overlap terms, bounded to [0,100]. It is a pure function of the two
// profiles and the history snapshot: no randomness, no clock.
type Scorer struct {
	Weights config.ScoreWeights
}

// ScorePair scores two complete profiles. history may be nil, in which case
// no repeat penalty applies.
func (s *Scorer) ScorePair(a, b models.UserProfile, history PairHistory) float64 {
	w := s.Weights
	total := w.Specialty + w.Interests + w.ActivityLevel + w.SocialEnergy +
		w.Availability + w.ConversationStyle + w.LookingFor
	if total <= 0 {
		return 0
	}

	raw := 0.0
	raw += w.Specialty * (specialtyTerm(a, b) + specialtyTerm(b, a)) / 2
	raw += w.Interests * interestsTerm(a, b)
	raw += w.ActivityLevel * proximityTerm(a.ActivityLevel, b.ActivityLevel)
	raw += w.SocialEnergy * proximityTerm(a.SocialEnergy, b.SocialEnergy)
	raw += w.Availability * jaccard(a.MeetingTimes, b.MeetingTimes)
	if a.ConversationStyle == b.ConversationStyle {
		raw += w.ConversationStyle
	}
	raw += w.LookingFor * jaccard(a.LookingFor, b.LookingFor)

	score := raw / total * 100

	if history != nil && history.GroupedEver(a.UserID, b.UserID) {
		score -= w.RepeatPenalty
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// ScoreGroup is the mean pairwise score of a candidate group.
func (s *Scorer) ScoreGroup(members []models.UserProfile, history PairHistory) float64 {
	if len(members) < 2 {
		return 0
	}
	sum := 0.0
	pairs := 0
	for i := 0; i < len(members); i++ {
		for j := i + 1; j < len(members); j++ {
			sum += s.ScorePair(members[i], members[j], history)
			pairs++
		}
	}
	return sum / float64(pairs)
}

// specialtyTerm is the degree to which a's specialty preference is satisfied
// by b.
func specialtyTerm(a, b models.UserProfile) float64 {
	switch a.SpecialtyPreference {
	case "same":
		if a.Specialty == b.Specialty {
			return 1
		}
		return 0
	case "different":
		if a.Specialty != b.Specialty {
			return 1
		}
		return 0
	default:
		// No preference is always satisfied.
		return 1
	}
}

// interestsTerm rewards shared interests weighted by the weaker of the two
// affinities, normalized so a fully mutual interest list scores 1.
func interestsTerm(a, b models.UserProfile) float64 {
	smaller := len(a.Interests)
	if len(b.Interests) < smaller {
		smaller = len(b.Interests)
	}
	if smaller == 0 {
		return 0
	}
	sum := 0.0
	for name, wa := range a.Interests {
		wb, ok := b.Interests[name]
		if !ok {
			continue
		}
		mutual := wa
		if wb < mutual {
			mutual = wb
		}
		if mutual > 3 {
			mutual = 3
		}
		if mutual < 1 {
			mutual = 1
		}
		sum += float64(mutual) / 3
	}
	return sum / float64(smaller)
}

// proximityTerm maps the distance between two 1-5 levels onto [0,1].
func proximityTerm(a, b int) float64 {
	d := a - b
	if d < 0 {
		d = -d
	}
	if d > 4 {
		d = 4
	}
	return 1 - float64(d)/4
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	union := len(set)
	shared := 0
	for _, v := range b {
		if set[v] {
			shared++
		} else {
			union++
		}
	}
	return float64(shared) / float64(union)
}
