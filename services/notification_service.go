package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationBroadcaster pushes a notification to a connected client in
// realtime. Implemented by the socket hub; nil disables pushing.
type NotificationBroadcaster interface {
	Push(userID string, notification models.Notification)
}

// NotificationService inserts notification rows and optionally pushes them
// over the socket. Delivery is best effort: a failed insert is logged and
// retried on the next lifecycle pass, and never rolls back the group or
// match state that triggered it.
type NotificationService struct {
	Dynamo      *DynamoService
	Log         *zap.Logger
	Broadcaster NotificationBroadcaster

	Now func() time.Time
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Dispatch inserts one notification. Callers that need at-least-once
// delivery with dedup supply a deterministic NotificationID; a duplicate
// insert is silently dropped.
func (s *NotificationService) Dispatch(ctx context.Context, n models.Notification) error {
	if n.UserID == "" || n.Type == "" {
		return fmt.Errorf("%w: notification requires userId and type", ErrInvalidInput)
	}
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	if n.CreatedAt == "" {
		n.CreatedAt = s.now().UTC().Format(time.RFC3339)
	}

	err := s.Dynamo.PutItemIfNotExists(ctx, models.NotificationsTable, n, "notificationId")
	if errors.Is(err, ErrConditionFailed) {
		// Already delivered on an earlier attempt.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if s.Broadcaster != nil {
		s.Broadcaster.Push(n.UserID, n)
	}
	return nil
}

// DispatchAll delivers a batch best-effort and returns the failure count.
// Failures are logged, never propagated: notification delivery must not
// fail the state change that produced it.
func (s *NotificationService) DispatchAll(ctx context.Context, notifications []models.Notification) int {
	failed := 0
	for _, n := range notifications {
		if err := s.Dispatch(ctx, n); err != nil {
			failed++
			s.Log.Warn("notification delivery failed",
				zap.String("userId", n.UserID),
				zap.String("type", n.Type),
				zap.Error(err))
		}
	}
	return failed
}

// ListByUser returns a user's notifications, newest first.
func (s *NotificationService) ListByUser(ctx context.Context, userID string, limit int32) ([]models.Notification, error) {
	items, err := s.Dynamo.QueryItems(ctx, models.NotificationsTable,
		"userId = :userId",
		map[string]types.AttributeValue{
			":userId": &types.AttributeValueMemberS{Value: userID},
		}, nil, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	var notifications []models.Notification
	if err := attributevalue.UnmarshalListOfMaps(items, &notifications); err != nil {
		return nil, fmt.Errorf("failed to parse notifications: %w", err)
	}
	sort.Slice(notifications, func(i, j int) bool {
		return notifications[i].CreatedAt > notifications[j].CreatedAt
	})
	return notifications, nil
}

// MarkRead toggles the read flag, the only mutation a notification admits.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	key := map[string]types.AttributeValue{
		"userId":         &types.AttributeValueMemberS{Value: userID},
		"notificationId": &types.AttributeValueMemberS{Value: notificationID},
	}
	_, err := s.Dynamo.UpdateItemWithCondition(ctx, models.NotificationsTable,
		"SET #read = :true",
		"attribute_exists(notificationId)",
		key,
		map[string]types.AttributeValue{
			":true": &types.AttributeValueMemberBOOL{Value: true},
		},
		map[string]string{"#read": "read"},
	)
	if errors.Is(err, ErrConditionFailed) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// GroupedNotification builds the "you have a new group" notification.
func GroupedNotification(userID, groupID, epochID string, memberCount int) models.Notification {
	return models.Notification{
		UserID:         userID,
		NotificationID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("beyondrounds/notify/grouped/"+groupID+"/"+userID)).String(),
		Type:           models.NotificationTypeGroup,
		Title:          "Your new group is ready",
		Message:        "You have been matched into a new group. Say hello!",
		Link:           "/groups/" + groupID,
		Metadata: models.NotificationMetadata{
			Group: &models.GroupMetadata{GroupID: groupID, EpochID: epochID, MemberCount: memberCount},
		},
	}
}

// MatchedNotification builds the "you have a new match" notification.
func MatchedNotification(userID string, match models.Match) models.Notification {
	return models.Notification{
		UserID:         userID,
		NotificationID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("beyondrounds/notify/matched/"+match.MatchID+"/"+userID)).String(),
		Type:           models.NotificationTypeMatch,
		Title:          "You have a new match",
		Message:        "We found someone we think you should meet.",
		Link:           "/matches/" + match.MatchID,
		Metadata: models.NotificationMetadata{
			Match: &models.MatchMetadata{MatchID: match.MatchID, PartnerID: match.Partner(userID), Score: match.Score},
		},
	}
}

// FeedbackDueNotification builds the feedback solicitation notification.
func FeedbackDueNotification(userID, groupID, epochID string) models.Notification {
	return models.Notification{
		UserID:         userID,
		NotificationID: uuid.NewSHA1(uuid.NameSpaceURL, []byte("beyondrounds/notify/feedback-due/"+groupID+"/"+userID)).String(),
		Type:           models.NotificationTypeSystem,
		Title:          "How did your meetup go?",
		Message:        "Tell us how your group went so we can improve your next match.",
		Link:           "/groups/" + groupID + "/feedback",
		Metadata: models.NotificationMetadata{
			Feedback: &models.FeedbackMetadata{GroupID: groupID, EpochID: epochID},
		},
	}
}

// GroupMessageNotification builds the new-chat-message notification.
func GroupMessageNotification(userID, groupID, senderID string) models.Notification {
	return models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeMessage,
		Title:   "New message in your group",
		Message: "Your group has a new message.",
		Link:    "/groups/" + groupID + "/chat",
		Metadata: models.NotificationMetadata{
			Message: &models.MessageMetadata{GroupID: groupID, SenderID: senderID},
		},
	}
}
