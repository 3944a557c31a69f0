package models

// Match is a proposed pairing between exactly two users for one epoch.
// User1ID always holds the lexicographically smaller id so that an unordered
// pair maps to a single row.
type Match struct {
	MatchID     string  `dynamodbav:"matchId" json:"matchId"`
	EpochID     string  `dynamodbav:"epochId" json:"epochId"`
	User1ID     string  `dynamodbav:"user1Id" json:"user1Id"`
	User2ID     string  `dynamodbav:"user2Id" json:"user2Id"`
	Status      string  `dynamodbav:"status" json:"status"`
	Score       float64 `dynamodbav:"score" json:"score"`
	User1Viewed bool    `dynamodbav:"user1Viewed" json:"user1Viewed"`
	User2Viewed bool    `dynamodbav:"user2Viewed" json:"user2Viewed"`

	// GroupID is set when the match is accepted and a group is created.
	GroupID    string `dynamodbav:"groupId,omitempty" json:"groupId,omitempty"`
	ResolvedBy string `dynamodbav:"resolvedBy,omitempty" json:"resolvedBy,omitempty"`
	CreatedAt  string `dynamodbav:"createdAt" json:"createdAt"`
	ResolvedAt string `dynamodbav:"resolvedAt,omitempty" json:"resolvedAt,omitempty"`
}

// Involves reports whether userID is a party to the match.
func (m Match) Involves(userID string) bool {
	return m.User1ID == userID || m.User2ID == userID
}

// Partner returns the other party of the match.
func (m Match) Partner(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// MatchesTable is the DynamoDB table name for matches
const MatchesTable = "Matches"

// GSIs on the Matches table, one per party column.
const (
	MatchUser1Index = "user1Id-index"
	MatchUser2Index = "user2Id-index"
	MatchEpochIndex = "epochId-index"
)
