package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// MatchActionService handles a user's response to a proposed match. Accept
// creates the group; the match id is the idempotency key, so retrying an
// accept lands on the same group. State machine: pending -> accepted
// (terminal, group created), pending -> rejected, pending -> expired (swept
// by the epoch run).
type MatchActionService struct {
	Dynamo        *DynamoService
	Eligibility   *EligibilityService
	Materializer  *MaterializerService
	Notifications *NotificationService
	Log           *zap.Logger

	// TargetSize is the group size recruitment aims for on accept.
	TargetSize int
	// Rand drives the opportunistic recruitment of extra members; seedable.
	Rand *rand.Rand
	Now  func() time.Time
}

func (s *MatchActionService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *MatchActionService) rng() *rand.Rand {
	if s.Rand == nil {
		s.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s.Rand
}

// GetMatch fetches one match by id.
func (s *MatchActionService) GetMatch(ctx context.Context, matchID string) (*models.Match, error) {
	item, err := s.Dynamo.GetItem(ctx, models.MatchesTable, map[string]types.AttributeValue{
		"matchId": &types.AttributeValueMemberS{Value: matchID},
	})
	if err != nil {
		return nil, err
	}
	var match models.Match
	if err := attributevalue.UnmarshalMap(item, &match); err != nil {
		return nil, fmt.Errorf("failed to parse match: %w", err)
	}
	return &match, nil
}

// Accept resolves a pending match in the actor's favor and materializes the
// group: the two parties plus up to TargetSize-2 randomly recruited
// matchable users. Returns the created group id.
func (s *MatchActionService) Accept(ctx context.Context, matchID, actingUserID string) (string, error) {
	match, err := s.resolve(ctx, matchID, actingUserID, models.MatchStatusAccepted)
	if err != nil {
		return "", err
	}

	members := []string{match.User1ID, match.User2ID}
	members = append(members, s.recruitExtras(ctx, members)...)

	groupID := GroupIDForMatch(matchID)
	created, err := s.Materializer.MaterializeGroup(ctx, groupID, match.EpochID, members, actingUserID, "")
	if err != nil {
		return "", fmt.Errorf("match accepted but group creation failed: %w", err)
	}

	if _, err := s.Dynamo.UpdateItem(ctx, models.MatchesTable,
		"SET groupId = :groupId",
		map[string]types.AttributeValue{
			"matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		}, nil,
	); err != nil {
		s.Log.Warn("failed to link group to match", zap.String("matchId", matchID), zap.Error(err))
	}

	if created {
		notifications := make([]models.Notification, 0, len(members))
		for _, userID := range members {
			notifications = append(notifications, GroupedNotification(userID, groupID, match.EpochID, len(members)))
		}
		s.Notifications.DispatchAll(ctx, notifications)
	}

	s.Log.Info("match accepted",
		zap.String("matchId", matchID),
		zap.String("userId", actingUserID),
		zap.String("groupId", groupID),
		zap.Int("members", len(members)))
	return groupID, nil
}

// Reject resolves a pending match against the pairing. No group is created.
func (s *MatchActionService) Reject(ctx context.Context, matchID, actingUserID string) error {
	_, err := s.resolve(ctx, matchID, actingUserID, models.MatchStatusRejected)
	if err != nil {
		return err
	}
	s.Log.Info("match rejected", zap.String("matchId", matchID), zap.String("userId", actingUserID))
	return nil
}

// MarkViewed flips the acting user's viewed flag on the match.
func (s *MatchActionService) MarkViewed(ctx context.Context, matchID, actingUserID string) error {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}
	if !match.Involves(actingUserID) {
		return ErrNotParticipant
	}
	attribute := "user1Viewed"
	if match.User2ID == actingUserID {
		attribute = "user2Viewed"
	}
	_, err = s.Dynamo.UpdateItem(ctx, models.MatchesTable,
		fmt.Sprintf("SET %s = :true", attribute),
		map[string]types.AttributeValue{
			"matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		}, nil,
	)
	if err != nil {
		return fmt.Errorf("failed to mark match viewed: %w", err)
	}
	return nil
}

// ListByUser fetches the matches a user is party to, via both party
// indexes.
func (s *MatchActionService) ListByUser(ctx context.Context, userID string) ([]models.Match, error) {
	var matches []models.Match
	for _, index := range []string{models.MatchUser1Index, models.MatchUser2Index} {
		attribute := "user1Id"
		if index == models.MatchUser2Index {
			attribute = "user2Id"
		}
		items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.MatchesTable, index,
			fmt.Sprintf("%s = :userId", attribute),
			map[string]types.AttributeValue{
				":userId": &types.AttributeValueMemberS{Value: userID},
			}, nil, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch matches: %w", err)
		}
		var page []models.Match
		if err := attributevalue.UnmarshalListOfMaps(items, &page); err != nil {
			return nil, fmt.Errorf("failed to parse matches: %w", err)
		}
		matches = append(matches, page...)
	}
	return matches, nil
}

// resolve transitions a pending match to a terminal status on behalf of a
// party. The conditional update is the serialization point: exactly one
// resolution wins.
func (s *MatchActionService) resolve(ctx context.Context, matchID, actingUserID, status string) (*models.Match, error) {
	match, err := s.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Involves(actingUserID) {
		return nil, ErrNotParticipant
	}
	if match.Status != models.MatchStatusPending {
		// An accept whose group write failed leaves the match accepted with
		// no group. Let a retry resume materialization; the group id derives
		// from the match id, so the outcome is the same group either way.
		if status == models.MatchStatusAccepted &&
			match.Status == models.MatchStatusAccepted && match.GroupID == "" {
			return match, nil
		}
		return nil, ErrMatchResolved
	}

	_, err = s.Dynamo.UpdateItemWithCondition(ctx, models.MatchesTable,
		"SET #status = :status, resolvedBy = :resolvedBy, resolvedAt = :resolvedAt",
		"#status = :pending",
		map[string]types.AttributeValue{
			"matchId": &types.AttributeValueMemberS{Value: matchID},
		},
		map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: status},
			":pending":    &types.AttributeValueMemberS{Value: models.MatchStatusPending},
			":resolvedBy": &types.AttributeValueMemberS{Value: actingUserID},
			":resolvedAt": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)},
		},
		map[string]string{"#status": "status"},
	)
	if errors.Is(err, ErrConditionFailed) {
		return nil, ErrMatchResolved
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve match: %w", err)
	}

	match.Status = status
	match.ResolvedBy = actingUserID
	return match, nil
}

// recruitExtras picks extra members at random from the remaining matchable
// pool, excluding the pair itself. Zero candidates leaves the group at two.
func (s *MatchActionService) recruitExtras(ctx context.Context, pair []string) []string {
	want := s.TargetSize - len(pair)
	if want <= 0 {
		return nil
	}
	pool, err := s.Eligibility.EligibleUsers(ctx)
	if err != nil {
		// Recruitment is opportunistic; the pair still gets its group.
		s.Log.Warn("recruitment skipped", zap.Error(err))
		return nil
	}
	exclude := map[string]bool{}
	for _, id := range pair {
		exclude[id] = true
	}
	var candidates []string
	for _, profile := range pool {
		if !exclude[profile.UserID] {
			candidates = append(candidates, profile.UserID)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	s.rng().Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	if want > len(candidates) {
		want = len(candidates)
	}
	return candidates[:want]
}
