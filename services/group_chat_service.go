package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GroupChatService handles messaging inside a materialized group. Only
// members can post or read.
type GroupChatService struct {
	Dynamo        *DynamoService
	Groups        *GroupService
	Notifications *NotificationService
	Log           *zap.Logger

	Now func() time.Time
}

func (s *GroupChatService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CreateGroupMessage stores a message and pings the other members.
func (s *GroupChatService) CreateGroupMessage(ctx context.Context, groupID, senderID, content string) (*models.GroupMessage, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidInput)
	}
	isMember, err := s.Groups.IsMember(ctx, groupID, senderID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify group membership: %w", err)
	}
	if !isMember {
		return nil, ErrNotParticipant
	}

	message := models.GroupMessage{
		GroupID:   groupID,
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
		MessageID: uuid.NewString(),
		SenderID:  senderID,
		Content:   content,
		IsRead:    map[string]bool{senderID: true},
		ReadCount: 1,
	}
	if err := s.Dynamo.PutItem(ctx, models.GroupMessagesTable, message); err != nil {
		return nil, fmt.Errorf("failed to store group message: %w", err)
	}

	// Notify the rest of the group. Delivery is best effort.
	memberIDs, err := s.Groups.MemberIDs(ctx, groupID)
	if err != nil {
		s.Log.Warn("skipping message notifications", zap.String("groupId", groupID), zap.Error(err))
		return &message, nil
	}
	notifications := make([]models.Notification, 0, len(memberIDs))
	for _, userID := range memberIDs {
		if userID == senderID {
			continue
		}
		notifications = append(notifications, GroupMessageNotification(userID, groupID, senderID))
	}
	s.Notifications.DispatchAll(ctx, notifications)

	return &message, nil
}

// GetMessagesByGroupID returns up to limit messages, oldest first.
func (s *GroupChatService) GetMessagesByGroupID(ctx context.Context, groupID, requesterID string, limit int) ([]models.GroupMessage, error) {
	isMember, err := s.Groups.IsMember(ctx, groupID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify group membership: %w", err)
	}
	if !isMember {
		return nil, ErrNotParticipant
	}

	items, err := s.Dynamo.QueryItemsWithOptions(ctx, models.GroupMessagesTable,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		}, nil, int32(limit), true)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch group messages: %w", err)
	}
	var messages []models.GroupMessage
	if err := attributevalue.UnmarshalListOfMaps(items, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse group messages: %w", err)
	}
	// Query returned the latest page; flip to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkGroupMessageAsRead records that a user has seen a message. Re-marking
// is a no-op so readCount never exceeds the member count.
func (s *GroupChatService) MarkGroupMessageAsRead(ctx context.Context, groupID, createdAt, userID string) error {
	updateExpression := "SET isRead.#userId = :true ADD readCount :one"
	_, err := s.Dynamo.UpdateItemWithCondition(ctx, models.GroupMessagesTable, updateExpression,
		"attribute_not_exists(isRead.#userId)",
		map[string]types.AttributeValue{
			"groupId":   &types.AttributeValueMemberS{Value: groupID},
			"createdAt": &types.AttributeValueMemberS{Value: createdAt},
		},
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
			":one":  &types.AttributeValueMemberN{Value: "1"},
		},
		map[string]string{"#userId": userID},
	)
	if errors.Is(err, ErrConditionFailed) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}
	return nil
}
