package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all runtime settings, loaded once at startup from the
// environment. Matching weights are tunable without a redeploy.
type Config struct {
	Port      string
	AWSRegion string
	S3Bucket  string

	// MatchRunSecret guards the POST /api/matchruns trigger. Empty means the
	// trigger is disabled entirely.
	MatchRunSecret string

	// MatchCronSpec, when set, schedules an in-process weekly run in addition
	// to the external trigger (e.g. "0 16 * * THU").
	MatchCronSpec string

	// CooldownEpochs is the number of epochs two previously grouped users
	// must wait before they may be grouped again.
	CooldownEpochs int

	GroupMinSize    int
	GroupMaxSize    int
	GroupTargetSize int

	// ProposeMatches switches size-2 partition cells from direct group
	// creation to pending Match proposals requiring user acceptance.
	ProposeMatches bool

	// RecruitSeed seeds the random recruitment of extra group members.
	// Zero picks a time-based seed.
	RecruitSeed int64

	ProfileCacheTTL time.Duration

	Weights ScoreWeights
}

// ScoreWeights are the scorer's term weights. The sum of the positive
// weights is the maximum attainable raw score before normalization.
type ScoreWeights struct {
	Specialty         float64
	Interests         float64
	ActivityLevel     float64
	SocialEnergy      float64
	Availability      float64
	ConversationStyle float64
	LookingFor        float64

	// RepeatPenalty is subtracted when a pair was grouped before, outside
	// the cooldown window. Inside the window the pair is excluded outright.
	RepeatPenalty float64

	// AvoidRatingThreshold marks a past grouping as "avoid" when a member's
	// average feedback rating for it fell below this value.
	AvoidRatingThreshold float64
}

// DefaultWeights mirror the relative importance used by the product team;
// every value can be overridden via MATCH_WEIGHT_* env vars.
func DefaultWeights() ScoreWeights {
	return ScoreWeights{
		Specialty:            20,
		Interests:            25,
		ActivityLevel:        10,
		SocialEnergy:         10,
		Availability:         15,
		ConversationStyle:    10,
		LookingFor:           10,
		RepeatPenalty:        30,
		AvoidRatingThreshold: 3,
	}
}

// Load reads the configuration from the environment.
func Load() *Config {
	w := DefaultWeights()
	w.Specialty = getFloat("MATCH_WEIGHT_SPECIALTY", w.Specialty)
	w.Interests = getFloat("MATCH_WEIGHT_INTERESTS", w.Interests)
	w.ActivityLevel = getFloat("MATCH_WEIGHT_ACTIVITY", w.ActivityLevel)
	w.SocialEnergy = getFloat("MATCH_WEIGHT_SOCIAL", w.SocialEnergy)
	w.Availability = getFloat("MATCH_WEIGHT_AVAILABILITY", w.Availability)
	w.ConversationStyle = getFloat("MATCH_WEIGHT_CONVERSATION", w.ConversationStyle)
	w.LookingFor = getFloat("MATCH_WEIGHT_LOOKING_FOR", w.LookingFor)
	w.RepeatPenalty = getFloat("MATCH_REPEAT_PENALTY", w.RepeatPenalty)
	w.AvoidRatingThreshold = getFloat("MATCH_AVOID_RATING_THRESHOLD", w.AvoidRatingThreshold)

	return &Config{
		Port:            getString("PORT", "8080"),
		AWSRegion:       getString("AWS_REGION", "us-east-1"),
		S3Bucket:        getString("S3_BUCKET_NAME", ""),
		MatchRunSecret:  getString("MATCH_RUN_SECRET", ""),
		MatchCronSpec:   getString("MATCH_CRON_SPEC", ""),
		CooldownEpochs:  getInt("MATCH_COOLDOWN_EPOCHS", 6),
		GroupMinSize:    getInt("MATCH_GROUP_MIN_SIZE", 2),
		GroupMaxSize:    getInt("MATCH_GROUP_MAX_SIZE", 4),
		GroupTargetSize: getInt("MATCH_GROUP_TARGET_SIZE", 4),
		ProposeMatches:  getBool("MATCH_PROPOSE_MATCHES", false),
		RecruitSeed:     int64(getInt("MATCH_RECRUIT_SEED", 0)),
		ProfileCacheTTL: getDuration("PROFILE_CACHE_TTL", 5*time.Minute),
		Weights:         w,
	}
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
