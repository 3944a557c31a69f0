package services

import (
	"math/rand"
	"testing"
	"time"

	"beyondrounds_server/config"
	"beyondrounds_server/models"

	"go.uber.org/zap"
)

// testNow pins every clock in the harness. 2026-08-28 falls in epoch
// 2026-W35.
var testNow = time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

const testEpoch = "2026-W35"

type testEnv struct {
	db            *fakeDynamo
	dynamo        *DynamoService
	eligibility   *EligibilityService
	history       *MatchHistoryService
	scorer        *Scorer
	partitioner   *Partitioner
	materializer  *MaterializerService
	notifications *NotificationService
	groups        *GroupService
	feedback      *FeedbackService
	runs          *MatchRunService
	actions       *MatchActionService
	chat          *GroupChatService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	db := newFakeDynamo()
	dynamo := &DynamoService{Client: db}
	weights := config.DefaultWeights()
	now := func() time.Time { return testNow }

	env := &testEnv{
		db:          db,
		dynamo:      dynamo,
		eligibility: &EligibilityService{Dynamo: dynamo, Log: log},
		history: &MatchHistoryService{
			Dynamo:               dynamo,
			Log:                  log,
			AvoidRatingThreshold: weights.AvoidRatingThreshold,
		},
		scorer: &Scorer{Weights: weights},
	}
	env.partitioner = &Partitioner{
		Scorer:         env.scorer,
		MinSize:        2,
		MaxSize:        4,
		CooldownEpochs: 6,
	}
	env.materializer = &MaterializerService{
		Dynamo:  dynamo,
		Log:     log,
		MinSize: 2,
		MaxSize: 4,
		Now:     now,
	}
	env.notifications = &NotificationService{Dynamo: dynamo, Log: log, Now: now}
	env.groups = &GroupService{Dynamo: dynamo, Log: log}
	env.feedback = &FeedbackService{Dynamo: dynamo, Groups: env.groups, Log: log, Now: now}
	env.runs = &MatchRunService{
		Dynamo:         dynamo,
		Eligibility:    env.eligibility,
		History:        env.history,
		Partitioner:    env.partitioner,
		Materializer:   env.materializer,
		Notifications:  env.notifications,
		Groups:         env.groups,
		Log:            log,
		CooldownEpochs: 6,
		TargetSize:     4,
		Rand:           rand.New(rand.NewSource(1)),
		Now:            now,
	}
	env.actions = &MatchActionService{
		Dynamo:        dynamo,
		Eligibility:   env.eligibility,
		Materializer:  env.materializer,
		Notifications: env.notifications,
		Log:           log,
		TargetSize:    4,
		Rand:          rand.New(rand.NewSource(1)),
		Now:           now,
	}
	env.chat = &GroupChatService{
		Dynamo:        dynamo,
		Groups:        env.groups,
		Notifications: env.notifications,
		Log:           log,
		Now:           now,
	}
	return env
}

// testProfile builds a complete, eligible profile. All test profiles share
// the same vector, so any pair scores identically unless a test overrides
// attributes.
func testProfile(id string) models.UserProfile {
	return models.UserProfile{
		UserID:              id,
		EmailID:             id + "@example.com",
		FullName:            "Dr. " + id,
		City:                "Berlin",
		Matchable:           true,
		OnboardingComplete:  true,
		Specialty:           "cardiology",
		CareerStage:         "attending",
		SpecialtyPreference: "no_preference",
		Gender:              "female",
		GenderPreference:    "no_preference",
		Interests:           map[string]int{"hiking": 3, "coffee": 2},
		ActivityLevel:       3,
		SocialEnergy:        3,
		ConversationStyle:   "deep",
		MeetingTimes:        []string{"weekend_morning", "weekday_evening"},
		MeetingFrequency:    "weekly",
		LookingFor:          []string{"friends"},
	}
}

// seedGroup stores a group and its memberships directly, bypassing the
// materializer.
func seedGroup(t *testing.T, db *fakeDynamo, groupID, epochID string, members ...string) {
	t.Helper()
	db.seed(t, models.GroupsTable, models.Group{
		GroupID:     groupID,
		EpochID:     epochID,
		Name:        "Seeded " + groupID,
		Status:      models.GroupStatusActive,
		MemberCount: len(members),
		CreatedAt:   testNow.Format(time.RFC3339),
	})
	for _, userID := range members {
		db.seed(t, models.GroupMembershipsTable, models.GroupMembership{
			GroupID:  groupID,
			UserID:   userID,
			Role:     models.RoleMember,
			EpochID:  epochID,
			JoinedAt: testNow.Format(time.RFC3339),
		})
	}
}
