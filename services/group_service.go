package services

import (
	"context"
	"errors"
	"fmt"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// GroupService reads groups and their memberships. All mutation goes
// through the materializer; this service never writes.
type GroupService struct {
	Dynamo *DynamoService
	Log    *zap.Logger
}

// GroupWithMembers is a group joined with its membership rows.
type GroupWithMembers struct {
	Group   models.Group             `json:"group"`
	Members []models.GroupMembership `json:"members"`
}

// GetGroup returns one group with its members.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*GroupWithMembers, error) {
	item, err := s.Dynamo.GetItem(ctx, models.GroupsTable, map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
	})
	if err != nil {
		return nil, err
	}
	var group models.Group
	if err := attributevalue.UnmarshalMap(item, &group); err != nil {
		return nil, fmt.Errorf("failed to parse group: %w", err)
	}

	members, err := s.memberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GroupWithMembers{Group: group, Members: members}, nil
}

// GroupsForUser returns every group a user belongs to.
func (s *GroupService) GroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.GroupMembershipsTable, models.MembershipUserIndex,
		"userId = :userId",
		map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch memberships: %w", err)
	}
	var memberships []models.GroupMembership
	if err := attributevalue.UnmarshalListOfMaps(items, &memberships); err != nil {
		return nil, fmt.Errorf("failed to parse memberships: %w", err)
	}

	groups := make([]models.Group, 0, len(memberships))
	for _, m := range memberships {
		item, err := s.Dynamo.GetItem(ctx, models.GroupsTable, map[string]types.AttributeValue{
			"groupId": &types.AttributeValueMemberS{Value: m.GroupID},
		})
		if err != nil {
			s.Log.Warn("membership points at missing group",
				zap.String("groupId", m.GroupID), zap.String("userId", userID))
			continue
		}
		var group models.Group
		if err := attributevalue.UnmarshalMap(item, &group); err != nil {
			continue
		}
		groups = append(groups, group)
	}
	return groups, nil
}

// GroupsByEpoch returns the groups created in one epoch.
func (s *GroupService) GroupsByEpoch(ctx context.Context, epochID string) ([]models.Group, error) {
	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.GroupsTable, models.GroupEpochIndex,
		"epochId = :epochId",
		map[string]types.AttributeValue{
			":epochId": &types.AttributeValueMemberS{Value: epochID},
		}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch groups for epoch %s: %w", epochID, err)
	}
	var groups []models.Group
	if err := attributevalue.UnmarshalListOfMaps(items, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse groups: %w", err)
	}
	return groups, nil
}

// MemberIDs returns the user ids of a group's members.
func (s *GroupService) MemberIDs(ctx context.Context, groupID string) ([]string, error) {
	memberships, err := s.memberships(ctx, groupID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

// IsMember reports whether the user belongs to the group.
func (s *GroupService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	_, err := s.Dynamo.GetItem(ctx, models.GroupMembershipsTable, map[string]types.AttributeValue{
		"groupId": &types.AttributeValueMemberS{Value: groupID},
		"userId":  &types.AttributeValueMemberS{Value: userID},
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *GroupService) memberships(ctx context.Context, groupID string) ([]models.GroupMembership, error) {
	items, err := s.Dynamo.QueryItems(ctx, models.GroupMembershipsTable,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group members: %w", err)
	}
	var memberships []models.GroupMembership
	if err := attributevalue.UnmarshalListOfMaps(items, &memberships); err != nil {
		return nil, fmt.Errorf("failed to parse group members: %w", err)
	}
	return memberships, nil
}

// feedbackSubmitters returns the set of users who already submitted
// feedback for the group.
func (s *GroupService) feedbackSubmitters(ctx context.Context, groupID string) (map[string]bool, error) {
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
	submitted := make(map[string]bool, len(feedback))
	for _, fb := range feedback {
		submitted[fb.UserID] = true
	}
	return submitted, nil
}
