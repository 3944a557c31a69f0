package models

// MatchRun records one epoch of the matching batch job. The row doubles as
// the epoch lock: it is created with a conditional put before any matching
// work starts, so two runs for the same epoch are mutually exclusive.
type MatchRun struct {
	EpochID     string `dynamodbav:"epochId" json:"epochId"`
	Status      string `dynamodbav:"status" json:"status"`
	StartedAt   string `dynamodbav:"startedAt" json:"startedAt"`
	CompletedAt string `dynamodbav:"completedAt,omitempty" json:"completedAt,omitempty"`

	GroupsCreated   int `dynamodbav:"groupsCreated" json:"groupsCreated"`
	MatchesProposed int `dynamodbav:"matchesProposed" json:"matchesProposed"`
	UsersMatched    int `dynamodbav:"usersMatched" json:"usersMatched"`
	UsersDeferred   int `dynamodbav:"usersDeferred" json:"usersDeferred"`
	MatchesExpired  int `dynamodbav:"matchesExpired" json:"matchesExpired"`
	NotifyErrors    int `dynamodbav:"notifyErrors" json:"notifyErrors"`

	Error string `dynamodbav:"error,omitempty" json:"error,omitempty"`
}

// MatchRunsTable is the DynamoDB table name for match run records
const MatchRunsTable = "MatchRuns"

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
