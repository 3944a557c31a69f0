package models

// GroupMembership is the authoritative join between users and groups.
// Exactly one row per (groupId, userId); the table key enforces it.
type GroupMembership struct {
	GroupID  string `dynamodbav:"groupId" json:"groupId"`
	UserID   string `dynamodbav:"userId" json:"userId"`
	Role     string `dynamodbav:"role" json:"role"`
	EpochID  string `dynamodbav:"epochId,omitempty" json:"epochId,omitempty"`
	JoinedAt string `dynamodbav:"joinedAt" json:"joinedAt"`
}

// GroupMembershipsTable is the DynamoDB table name for group memberships
const GroupMembershipsTable = "GroupMemberships"

// MembershipUserIndex is the GSI keyed by userId, used to walk a user's
// grouping history.
const MembershipUserIndex = "userId-index"

const (
	RoleOwner  = "owner"
	RoleMember = "member"
)
