package services

import (
	"context"
	"testing"

	"beyondrounds_server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibleUsersFiltersAndSorts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.db.seed(t, models.UserProfilesTable, testProfile("zed"))
	env.db.seed(t, models.UserProfilesTable, testProfile("adam"))

	paused := testProfile("paused")
	paused.Matchable = false
	env.db.seed(t, models.UserProfilesTable, paused)

	onboarding := testProfile("onboarding")
	onboarding.OnboardingComplete = false
	env.db.seed(t, models.UserProfilesTable, onboarding)

	incomplete := testProfile("incomplete")
	incomplete.Interests = nil
	env.db.seed(t, models.UserProfilesTable, incomplete)

	eligible, err := env.eligibility.EligibleUsers(ctx)
	require.NoError(t, err)

	ids := make([]string, 0, len(eligible))
	for _, p := range eligible {
		ids = append(ids, p.UserID)
	}
	assert.Equal(t, []string{"adam", "zed"}, ids)
}

func TestEligibleUsersEmptyPool(t *testing.T) {
	env := newTestEnv(t)
	eligible, err := env.eligibility.EligibleUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestHasCompleteVector(t *testing.T) {
	complete := testProfile("alice")
	assert.True(t, complete.HasCompleteVector())

	for name, mutate := range map[string]func(*models.UserProfile){
		"specialty":         func(p *models.UserProfile) { p.Specialty = "" },
		"careerStage":       func(p *models.UserProfile) { p.CareerStage = "" },
		"conversationStyle": func(p *models.UserProfile) { p.ConversationStyle = "" },
		"activityLevel":     func(p *models.UserProfile) { p.ActivityLevel = 0 },
		"socialEnergy":      func(p *models.UserProfile) { p.SocialEnergy = 0 },
		"interests":         func(p *models.UserProfile) { p.Interests = nil },
		"meetingTimes":      func(p *models.UserProfile) { p.MeetingTimes = nil },
		"lookingFor":        func(p *models.UserProfile) { p.LookingFor = nil },
	} {
		p := testProfile("alice")
		mutate(&p)
		assert.False(t, p.HasCompleteVector(), "expected incomplete vector without %s", name)
	}
}
