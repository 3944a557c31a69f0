package services

import (
	"context"
	"fmt"

	"beyondrounds_server/models"
	"beyondrounds_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// MatchHistoryService reads committed grouping and feedback history and
// condenses it into an immutable snapshot for one epoch run.
type MatchHistoryService struct {
	Dynamo *DynamoService
	Log    *zap.Logger

	// AvoidRatingThreshold marks a member's past group as negative when
	// their rating fell below it.
	AvoidRatingThreshold float64
}

// HistorySnapshot implements PairHistory over state committed strictly
// before the epoch run that built it.
type HistorySnapshot struct {
	currentEpoch string
	// lastEpoch maps a pair key to the most recent epoch the pair shared a
	// group in.
	lastEpoch   map[string]string
	avoid       map[string]bool
	activeMatch map[string]bool
}

// GroupedWithin reports whether the pair co-grouped within the last n epochs.
func (h *HistorySnapshot) GroupedWithin(user1, user2 string, epochs int) bool {
	last, ok := h.lastEpoch[utils.PairKey(user1, user2)]
	if !ok {
		return false
	}
	elapsed, err := utils.EpochsBetween(last, h.currentEpoch)
	if err != nil {
		// Unparseable history counts as recent: fail closed.
		return true
	}
	return elapsed < epochs
}

// GroupedEver reports whether the pair ever shared a group.
func (h *HistorySnapshot) GroupedEver(user1, user2 string) bool {
	_, ok := h.lastEpoch[utils.PairKey(user1, user2)]
	return ok
}

// Avoid reports whether negative feedback rules the pair out.
func (h *HistorySnapshot) Avoid(user1, user2 string) bool {
	return h.avoid[utils.PairKey(user1, user2)]
}

// ActiveMatch reports whether the pair has a pending match on the books. At
// most one active match may exist per unordered pair, so such pairs must not
// be proposed or grouped again until the match resolves or expires.
func (h *HistorySnapshot) ActiveMatch(user1, user2 string) bool {
	return h.activeMatch[utils.PairKey(user1, user2)]
}

// BuildSnapshot walks the grouping history of the given users and folds in
// feedback. Only rows already committed are visible; the epoch lock keeps a
// concurrent run from writing while this reads.
func (s *MatchHistoryService) BuildSnapshot(ctx context.Context, currentEpoch string, userIDs []string) (*HistorySnapshot, error) {
	snap := &HistorySnapshot{
		currentEpoch: currentEpoch,
		lastEpoch:    map[string]string{},
		avoid:        map[string]bool{},
		activeMatch:  map[string]bool{},
	}

	inPool := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		inPool[id] = true
	}

	// Collect every group any pool user has belonged to.
	groupEpochs := map[string]string{}
	for _, userID := range userIDs {
		memberships, err := s.membershipsForUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to load grouping history for %s: %w", userID, err)
		}
		for _, m := range memberships {
			groupEpochs[m.GroupID] = m.EpochID
		}
	}

	for groupID, epochID := range groupEpochs {
		members, err := s.membersOfGroup(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load members of group %s: %w", groupID, err)
		}

		for i := 0; i < len(members); i++ {
			for j := i + 1; j < len(members); j++ {
				key := utils.PairKey(members[i], members[j])
				if prev, ok := snap.lastEpoch[key]; !ok || laterEpoch(epochID, prev) {
					snap.lastEpoch[key] = epochID
				}
			}
		}

		feedback, err := s.feedbackForGroup(ctx, groupID)
		if err != nil {
			return nil, fmt.Errorf("failed to load feedback for group %s: %w", groupID, err)
		}
		for _, fb := range feedback {
			if fb.WouldMeetAgain != models.MeetAgainNo && float64(fb.Rating) >= s.AvoidRatingThreshold {
				continue
			}
			for _, other := range members {
				if other == fb.UserID {
					continue
				}
				snap.avoid[utils.PairKey(fb.UserID, other)] = true
			}
		}
	}

	if err := s.loadActiveMatches(ctx, snap); err != nil {
		return nil, err
	}

	s.Log.Debug("history snapshot built",
		zap.String("epochId", currentEpoch),
		zap.Int("pairs", len(snap.lastEpoch)),
		zap.Int("avoidPairs", len(snap.avoid)),
		zap.Int("activePairs", len(snap.activeMatch)))
	return snap, nil
}

// loadActiveMatches marks every pair with a pending match so the partitioner
// never produces a second concurrent match for the same pair.
func (s *MatchHistoryService) loadActiveMatches(ctx context.Context, snap *HistorySnapshot) error {
	items, err := s.Dynamo.ScanAllItems(ctx, models.MatchesTable)
	if err != nil {
		return fmt.Errorf("failed to load pending matches: %w", err)
	}
	for _, item := range items {
		var match models.Match
		if err := attributevalue.UnmarshalMap(item, &match); err != nil {
			continue
		}
		if match.Status != models.MatchStatusPending {
			continue
		}
		snap.activeMatch[utils.PairKey(match.User1ID, match.User2ID)] = true
	}
	return nil
}

func (s *MatchHistoryService) membershipsForUser(ctx context.Context, userID string) ([]models.GroupMembership, error) {
	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.GroupMembershipsTable, models.MembershipUserIndex,
		"userId = :userId",
		map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		}, nil, 0)
	if err != nil {
		return nil, err
	}
	var memberships []models.GroupMembership
	if err := attributevalue.UnmarshalListOfMaps(items, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

func (s *MatchHistoryService) membersOfGroup(ctx context.Context, groupID string) ([]string, error) {
	items, err := s.Dynamo.QueryItems(ctx, models.GroupMembershipsTable,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		}, nil, 0)
	if err != nil {
		return nil, err
	}
	var memberships []models.GroupMembership
	if err := attributevalue.UnmarshalListOfMaps(items, &memberships); err != nil {
		return nil, err
	}
	members := make([]string, 0, len(memberships))
	for _, m := range memberships {
		members = append(members, m.UserID)
	}
	return members, nil
}

func (s *MatchHistoryService) feedbackForGroup(ctx context.Context, groupID string) ([]models.Feedback, error) {
	items, err := s.Dynamo.QueryItems(ctx, models.FeedbackTable,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		}, nil, 0)
	if err != nil {
		return nil, err
	}
	var feedback []models.Feedback
	if err := attributevalue.UnmarshalListOfMaps(items, &feedback); err != nil {
		return nil, err
	}
	return feedback, nil
}

// laterEpoch reports whether a is a later epoch than b.
func laterEpoch(a, b string) bool {
	n, err := utils.EpochsBetween(b, a)
	return err == nil && n > 0
}
