package services

import (
	"context"
	"fmt"
	"sort"

	"beyondrounds_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"go.uber.org/zap"
)

// EligibilityService selects the users who may enter a matching epoch:
// matchable, onboarding complete, and a full attribute vector. It fails
// closed: a profile missing anything the scorer needs is excluded, never
// defaulted.
type EligibilityService struct {
	Dynamo *DynamoService
	Log    *zap.Logger
}

// EligibleUsers scans the profile pool and returns the eligible subset in
// ascending user-id order. Read only, no side effects.
func (s *EligibilityService) EligibleUsers(ctx context.Context) ([]models.UserProfile, error) {
	items, err := s.Dynamo.ScanAllItems(ctx, models.UserProfilesTable)
	if err != nil {
		return nil, fmt.Errorf("failed to scan user profiles: %w", err)
	}

	var eligible []models.UserProfile
	skipped := 0
	for _, item := range items {
		var profile models.UserProfile
		if err := attributevalue.UnmarshalMap(item, &profile); err != nil {
			// A malformed row is excluded, not defaulted.
			skipped++
			continue
		}
		if !profile.Matchable || !profile.OnboardingComplete || !profile.HasCompleteVector() {
			skipped++
			continue
		}
		eligible = append(eligible, profile)
	}

	sort.Slice(eligible, func(i, j int) bool { return eligible[i].UserID < eligible[j].UserID })

	s.Log.Info("eligibility pass complete",
		zap.Int("eligible", len(eligible)),
		zap.Int("excluded", skipped))
	return eligible, nil
}
