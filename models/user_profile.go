package models

// UserProfile defines the structure for user profiles. The matching
// attribute vector is filled in during onboarding; profiles are never hard
// deleted, only soft-disabled via the Matchable flag.
type UserProfile struct {
	UserID             string `dynamodbav:"userId" json:"userId"`
	EmailID            string `dynamodbav:"emailId,omitempty" json:"emailId,omitempty"`
	FullName           string `dynamodbav:"fullName,omitempty" json:"fullName,omitempty"`
	City               string `dynamodbav:"city,omitempty" json:"city,omitempty"`
	Matchable          bool   `dynamodbav:"matchable" json:"matchable"`
	OnboardingComplete bool   `dynamodbav:"onboardingComplete" json:"onboardingComplete"`

	Specialty           string `dynamodbav:"specialty,omitempty" json:"specialty,omitempty"`
	CareerStage         string `dynamodbav:"careerStage,omitempty" json:"careerStage,omitempty"`
	SpecialtyPreference string `dynamodbav:"specialtyPreference,omitempty" json:"specialtyPreference,omitempty"`
	Gender              string `dynamodbav:"gender,omitempty" json:"gender,omitempty"`
	GenderPreference    string `dynamodbav:"genderPreference,omitempty" json:"genderPreference,omitempty"`

	// Interests maps an interest name to the user's affinity for it (1-3).
	Interests map[string]int `dynamodbav:"interests,omitempty" json:"interests,omitempty"`

	ActivityLevel     int      `dynamodbav:"activityLevel,omitempty" json:"activityLevel,omitempty"`
	SocialEnergy      int      `dynamodbav:"socialEnergy,omitempty" json:"socialEnergy,omitempty"`
	ConversationStyle string   `dynamodbav:"conversationStyle,omitempty" json:"conversationStyle,omitempty"`
	MeetingTimes      []string `dynamodbav:"meetingTimes,omitempty" json:"meetingTimes,omitempty"`
	MeetingFrequency  string   `dynamodbav:"meetingFrequency,omitempty" json:"meetingFrequency,omitempty"`
	DietaryPreference string   `dynamodbav:"dietaryPreference,omitempty" json:"dietaryPreference,omitempty"`
	LifeStage         string   `dynamodbav:"lifeStage,omitempty" json:"lifeStage,omitempty"`
	LookingFor        []string `dynamodbav:"lookingFor,omitempty" json:"lookingFor,omitempty"`

	PhotoKey  string `dynamodbav:"photoKey,omitempty" json:"photoKey,omitempty"`
	CreatedAt string `dynamodbav:"createdAt,omitempty" json:"createdAt,omitempty"`
	UpdatedAt string `dynamodbav:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// HasCompleteVector reports whether every attribute the scorer depends on is
// present. Profiles missing any of these are excluded from matching, never
// defaulted.
func (p UserProfile) HasCompleteVector() bool {
	return p.Specialty != "" &&
		p.CareerStage != "" &&
		p.SpecialtyPreference != "" &&
		p.Gender != "" &&
		p.ConversationStyle != "" &&
		p.ActivityLevel > 0 &&
		p.SocialEnergy > 0 &&
		len(p.Interests) > 0 &&
		len(p.MeetingTimes) > 0 &&
		len(p.LookingFor) > 0
}

// UserProfilesTable is the DynamoDB table name for user profiles
const UserProfilesTable = "UserProfiles"
