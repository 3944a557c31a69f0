package services

import (
	"fmt"
	"sort"

	"beyondrounds_server/models"
)

// Partitioner splits the eligible pool into disjoint groups of bounded size
// using greedy maximum-weight clustering: seed with the best-scoring pair,
// extend with the best-fitting member up to MaxSize, repeat. Users that
// cannot be placed are deferred to the next epoch, never force-grouped.
//
// Greedy runs in O(n^2 log n) on the pair sort. Group quality is refined
// across epochs through feedback penalties, not by chasing a globally
// optimal partition.
type Partitioner struct {
	Scorer         *Scorer
	MinSize        int
	MaxSize        int
	CooldownEpochs int
}

// PartitionGroup is one cell of a partition: member ids in ascending order
// and the mean pairwise score.
type PartitionGroup struct {
	Members []string
	Score   float64
}

// Partition is the outcome of one partitioning pass.
type Partition struct {
	Groups   []PartitionGroup
	Leftover []string
}

type scoredPair struct {
	u1, u2 string
	score  float64
}

// BuildPartition partitions the pool. history drives both the hard
// exclusions (cooldown, avoid pairs) and the scorer's repeat penalty.
// Deterministic for a fixed pool and history: ties break on lower user id.
func (p *Partitioner) BuildPartition(pool []models.UserProfile, history PairHistory) Partition {
	byID := make(map[string]models.UserProfile, len(pool))
	ids := make([]string, 0, len(pool))
	for _, profile := range pool {
		if _, dup := byID[profile.UserID]; dup {
			continue
		}
		byID[profile.UserID] = profile
		ids = append(ids, profile.UserID)
	}
	sort.Strings(ids)

	excluded := func(a, b string) bool {
		if history == nil {
			return false
		}
		return history.Avoid(a, b) ||
			history.GroupedWithin(a, b, p.CooldownEpochs) ||
			history.ActiveMatch(a, b)
	}

	pairs := make([]scoredPair, 0, len(ids)*(len(ids)-1)/2)
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			if excluded(ids[i], ids[j]) {
				continue
			}
			pairs = append(pairs, scoredPair{
				u1:    ids[i],
				u2:    ids[j],
				score: p.Scorer.ScorePair(byID[ids[i]], byID[ids[j]], history),
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		if pairs[i].u1 != pairs[j].u1 {
			return pairs[i].u1 < pairs[j].u1
		}
		return pairs[i].u2 < pairs[j].u2
	})

	placed := make(map[string]bool, len(ids))
	var groups []PartitionGroup

	for _, seed := range pairs {
		if placed[seed.u1] || placed[seed.u2] {
			continue
		}
		members := []string{seed.u1, seed.u2}
		placed[seed.u1] = true
		placed[seed.u2] = true

		// Extend with the next-best-fitting unplaced member.
		for len(members) < p.MaxSize {
			best := ""
			bestScore := -1.0
			for _, candidate := range ids {
				if placed[candidate] {
					continue
				}
				fit, ok := p.fitScore(byID, history, members, candidate, excluded)
				if !ok {
					continue
				}
				if fit > bestScore {
					best = candidate
					bestScore = fit
				}
			}
			if best == "" {
				break
			}
			members = append(members, best)
			placed[best] = true
		}

		sort.Strings(members)
		profiles := make([]models.UserProfile, len(members))
		for i, id := range members {
			profiles[i] = byID[id]
		}
		groups = append(groups, PartitionGroup{
			Members: members,
			Score:   p.Scorer.ScoreGroup(profiles, history),
		})
	}

	var leftover []string
	for _, id := range ids {
		if !placed[id] {
			leftover = append(leftover, id)
		}
	}
	return Partition{Groups: groups, Leftover: leftover}
}

// fitScore is the candidate's mean pair score against the current members,
// or ok=false when any pairing is excluded.
func (p *Partitioner) fitScore(byID map[string]models.UserProfile, history PairHistory, members []string, candidate string, excluded func(a, b string) bool) (float64, bool) {
	sum := 0.0
	for _, m := range members {
		if excluded(m, candidate) {
			return 0, false
		}
		sum += p.Scorer.ScorePair(byID[m], byID[candidate], history)
	}
	return sum / float64(len(members)), true
}

// Validate enforces the partition invariants before anything is committed:
// sizes within bounds and no user in two cells. A violation is a bug, and
// the run refuses to persist the partition.
func (p *Partition) Validate(minSize, maxSize int) error {
	seen := map[string]bool{}
	for _, g := range p.Groups {
		if len(g.Members) < minSize || len(g.Members) > maxSize {
			return fmt.Errorf("%w: group size %d outside [%d,%d]", ErrInvalidInput, len(g.Members), minSize, maxSize)
		}
		for _, id := range g.Members {
			if seen[id] {
				return fmt.Errorf("%w: user %s placed in two groups", ErrInvalidInput, id)
			}
			seen[id] = true
		}
	}
	for _, id := range p.Leftover {
		if seen[id] {
			return fmt.Errorf("%w: leftover user %s also placed in a group", ErrInvalidInput, id)
		}
	}
	return nil
}
