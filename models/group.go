package models

// Group is a durable social unit of 2-4 members. Chat history and feedback
// attach to it; groups are never hard-deleted.
type Group struct {
	GroupID     string `dynamodbav:"groupId" json:"groupId"`
	EpochID     string `dynamodbav:"epochId,omitempty" json:"epochId,omitempty"`
	Name        string `dynamodbav:"name" json:"name"`
	Description string `dynamodbav:"description,omitempty" json:"description,omitempty"`
	CreatorID   string `dynamodbav:"creatorId,omitempty" json:"creatorId,omitempty"`
	Status      string `dynamodbav:"status" json:"status"`
	MemberCount int    `dynamodbav:"memberCount" json:"memberCount"`
	CreatedAt   string `dynamodbav:"createdAt" json:"createdAt"`
}

// GroupsTable is the DynamoDB table name for groups
const GroupsTable = "Groups"

// GroupEpochIndex is the GSI used to look up the groups created in one epoch.
const GroupEpochIndex = "epochId-index"
