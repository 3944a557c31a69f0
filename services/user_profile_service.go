package services

import (
	"context"
	"fmt"
	"time"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/viccon/sturdyc"
	"go.uber.org/zap"
)

// UserProfileService owns the UserProfiles table. Reads go through an
// injected time-bounded cache keyed by user id; writes invalidate the entry.
type UserProfileService struct {
	Dynamo *DynamoService
	Cache  *sturdyc.Client[models.UserProfile]
	Log    *zap.Logger

	Now func() time.Time
}

// NewProfileCache builds the profile cache. Capacity and shard counts are
// sized for the expected matchable pool, TTL bounds staleness.
func NewProfileCache(ttl time.Duration) *sturdyc.Client[models.UserProfile] {
	const capacity = 10000
	const shards = 16
	const evictionPercentage = 10
	return sturdyc.New[models.UserProfile](capacity, shards, ttl, evictionPercentage)
}

func (s *UserProfileService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(userID string) string {
	return "profile:" + userID
}

// AddUserProfile stores a new (or re-onboarded) profile.
func (s *UserProfileService) AddUserProfile(ctx context.Context, profile models.UserProfile) (*models.UserProfile, error) {
	if profile.UserID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	now := s.now().UTC().Format(time.RFC3339)
	if profile.CreatedAt == "" {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now

	if err := s.Dynamo.PutItem(ctx, models.UserProfilesTable, profile); err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Delete(cacheKey(profile.UserID))
	}
	return &profile, nil
}

// GetUserProfile retrieves a user profile by ID, via the cache.
func (s *UserProfileService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if s.Cache == nil {
		profile, err := s.fetchProfile(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &profile, nil
	}
	profile, err := s.Cache.GetOrFetch(ctx, cacheKey(userID), func(ctx context.Context) (models.UserProfile, error) {
		return s.fetchProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (s *UserProfileService) fetchProfile(ctx context.Context, userID string) (models.UserProfile, error) {
	item, err := s.Dynamo.GetItem(ctx, models.UserProfilesTable, map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	})
	if err != nil {
		return models.UserProfile{}, err
	}
	var profile models.UserProfile
	if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
		return models.UserProfile{}, fmt.Errorf("failed to parse profile: %w", err)
	}
	return profile, nil
}

// UpdateUserProfile applies a partial attribute update and returns the new
// profile. Only the user mutates their own vector; identity fields are not
// updatable here.
func (s *UserProfileService) UpdateUserProfile(ctx context.Context, userID string, updates map[string]interface{}) (*models.UserProfile, error) {
	if len(updates) == 0 {
		return nil, fmt.Errorf("%w: no updates supplied", ErrInvalidInput)
	}
	delete(updates, "userId")

	updateExpression := "SET"
	expressionAttributeValues := map[string]types.AttributeValue{}
	expressionAttributeNames := map[string]string{}
	for field, value := range updates {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot marshal field %s", ErrInvalidInput, field)
		}
		updateExpression += " #" + field + " = :" + field + ","
		expressionAttributeValues[":"+field] = av
		expressionAttributeNames["#"+field] = field
	}
	updateExpression += " #updatedAt = :updatedAt"
	expressionAttributeValues[":updatedAt"] = &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339)}
	expressionAttributeNames["#updatedAt"] = "updatedAt"

	key := map[string]types.AttributeValue{
		"userId": &types.AttributeValueMemberS{Value: userID},
	}
	updatedItem, err := s.Dynamo.UpdateItem(ctx, models.UserProfilesTable, updateExpression, key, expressionAttributeValues, expressionAttributeNames)
	if err != nil {
		return nil, err
	}

	if s.Cache != nil {
		s.Cache.Delete(cacheKey(userID))
	}

	var updatedProfile models.UserProfile
	if err := attributevalue.UnmarshalMap(updatedItem, &updatedProfile); err != nil {
		return nil, fmt.Errorf("failed to parse updated profile: %w", err)
	}
	return &updatedProfile, nil
}

// SetMatchable toggles the soft-disable flag. Profiles are never deleted.
func (s *UserProfileService) SetMatchable(ctx context.Context, userID string, matchable bool) error {
	_, err := s.UpdateUserProfile(ctx, userID, map[string]interface{}{"matchable": matchable})
	return err
}
