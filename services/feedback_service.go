package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// FeedbackService records per-member group feedback. One row per
// (user, group): a resubmission is rejected with ErrDuplicateFeedback, never
// upserted over or duplicated. The history snapshot consumes these rows to
// keep poorly rated combinations apart in later epochs.
type FeedbackService struct {
	Dynamo *DynamoService
	Groups *GroupService
	Log    *zap.Logger

	Now func() time.Time
}

func (s *FeedbackService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit validates and stores one feedback record.
func (s *FeedbackService) Submit(ctx context.Context, fb models.Feedback) error {
	if fb.GroupID == "" || fb.UserID == "" {
		return fmt.Errorf("%w: groupId and userId are required", ErrInvalidInput)
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	switch fb.WouldMeetAgain {
	case models.MeetAgainYes, models.MeetAgainNo, models.MeetAgainUnsure:
	default:
		return fmt.Errorf("%w: wouldMeetAgain must be yes, no or unsure", ErrInvalidInput)
	}

	isMember, err := s.Groups.IsMember(ctx, fb.GroupID, fb.UserID)
	if err != nil {
		return fmt.Errorf("failed to verify group membership: %w", err)
	}
	if !isMember {
		return ErrNotParticipant
	}

	fb.CreatedAt = s.now().UTC().Format(time.RFC3339)
	err = s.Dynamo.PutItemIfNotExists(ctx, models.FeedbackTable, fb, "groupId")
	if errors.Is(err, ErrConditionFailed) {
		return ErrDuplicateFeedback
	}
	if err != nil {
		return fmt.Errorf("failed to store feedback: %w", err)
	}

	s.Log.Info("feedback recorded",
		zap.String("groupId", fb.GroupID),
		zap.String("userId", fb.UserID),
		zap.Int("rating", fb.Rating),
		zap.String("wouldMeetAgain", fb.WouldMeetAgain))
	return nil
}

// ListByGroup returns all feedback for a group.
func (s *FeedbackService) ListByGroup(ctx context.Context, groupID string) ([]models.Feedback, error) {
	items, err := s.Dynamo.QueryItems(ctx, models.FeedbackTable,
		"groupId = :groupId",
		map[string]types.AttributeValue{
			":groupId": &types.AttributeValueMemberS{Value: groupID},
		}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feedback: %w", err)
	}
	var feedback []models.Feedback
	if err := attributevalue.UnmarshalListOfMaps(items, &feedback); err != nil {
		return nil, fmt.Errorf("failed to parse feedback: %w", err)
	}
	return feedback, nil
}
