package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"beyondrounds_server/models"
	"beyondrounds_server/utils"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaterializerService persists groups, memberships and match proposals.
// Every write is guarded by an attribute_not_exists condition over a
// deterministic id, so re-running an epoch (or retrying an accept) can never
// create duplicate rows: the idempotency key is the id itself.
type MaterializerService struct {
	Dynamo  *DynamoService
	Log     *zap.Logger
	MinSize int
	MaxSize int

	// Now is the clock; tests pin it.
	Now func() time.Time
}

func (s *MaterializerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GroupIDFor derives the group id for a batch-materialized cell from the
// epoch and the member set. A restarted run re-derives the same id.
func GroupIDFor(epochID string, members []string) string {
	sorted := append([]string(nil), members...)
	sort.Strings(sorted)
	name := "beyondrounds/group/" + epochID + "/" + strings.Join(sorted, ",")
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// GroupIDForMatch derives the group id created by accepting a match. The
// match id is the idempotency key for the individual accept action.
func GroupIDForMatch(matchID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("beyondrounds/group/match/"+matchID)).String()
}

// MatchIDFor derives the match id for a proposed pair in an epoch.
func MatchIDFor(epochID, user1, user2 string) string {
	user1, user2 = utils.SortPair(user1, user2)
	name := "beyondrounds/match/" + epochID + "/" + user1 + "/" + user2
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// MaterializeGroup commits one group and all of its memberships in a single
// transaction. created=false means an earlier invocation already committed
// this group id and nothing was written.
func (s *MaterializerService) MaterializeGroup(ctx context.Context, groupID, epochID string, members []string, creatorID string, name string) (created bool, err error) {
	if len(members) < s.MinSize || len(members) > s.MaxSize {
		return false, fmt.Errorf("%w: refusing to materialize group of size %d", ErrInvalidInput, len(members))
	}
	seen := map[string]bool{}
	for _, id := range members {
		if seen[id] {
			return false, fmt.Errorf("%w: duplicate member %s", ErrInvalidInput, id)
		}
		seen[id] = true
	}

	createdAt := s.now().UTC().Format(time.RFC3339)
	if name == "" {
		name = fmt.Sprintf("Rounds Group %s", groupID[:8])
	}

	group := models.Group{
		GroupID:     groupID,
		EpochID:     epochID,
		Name:        name,
		CreatorID:   creatorID,
		Status:      models.GroupStatusActive,
		MemberCount: len(members),
		CreatedAt:   createdAt,
	}

	items := make([]types.TransactWriteItem, 0, len(members)+1)
	groupItem, err := attributevalue.MarshalMap(group)
	if err != nil {
		return false, fmt.Errorf("failed to marshal group: %w", err)
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           tableName(models.GroupsTable),
			Item:                groupItem,
			ConditionExpression: conditionNotExists("groupId"),
		},
	})

	for _, userID := range members {
		role := models.RoleMember
		if userID == creatorID {
			role = models.RoleOwner
		}
		membership := models.GroupMembership{
			GroupID:  groupID,
			UserID:   userID,
			Role:     role,
			EpochID:  epochID,
			JoinedAt: createdAt,
		}
		item, err := attributevalue.MarshalMap(membership)
		if err != nil {
			return false, fmt.Errorf("failed to marshal membership: %w", err)
		}
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           tableName(models.GroupMembershipsTable),
				Item:                item,
				ConditionExpression: conditionNotExists("groupId"),
			},
		})
	}

	if err := s.Dynamo.TransactWriteItems(ctx, items); err != nil {
		if errors.Is(err, ErrConditionFailed) {
			s.Log.Info("group already materialized, skipping",
				zap.String("groupId", groupID),
				zap.String("epochId", epochID))
			return false, nil
		}
		return false, err
	}

	s.Log.Info("group materialized",
		zap.String("groupId", groupID),
		zap.String("epochId", epochID),
		zap.Int("members", len(members)))
	return true, nil
}

// ProposeMatch writes a pending match for a pair. created=false means the
// proposal for this epoch and pair already exists.
func (s *MaterializerService) ProposeMatch(ctx context.Context, epochID, user1, user2 string, score float64) (*models.Match, bool, error) {
	user1, user2 = utils.SortPair(user1, user2)
	match := models.Match{
		MatchID:   MatchIDFor(epochID, user1, user2),
		EpochID:   epochID,
		User1ID:   user1,
		User2ID:   user2,
		Status:    models.MatchStatusPending,
		Score:     score,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	err := s.Dynamo.PutItemIfNotExists(ctx, models.MatchesTable, match, "matchId")
	if errors.Is(err, ErrConditionFailed) {
		return &match, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to propose match: %w", err)
	}
	return &match, true, nil
}

func tableName(name string) *string {
	return &name
}

func conditionNotExists(attr string) *string {
	cond := "attribute_not_exists(" + attr + ")"
	return &cond
}
