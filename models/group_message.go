package models

// GroupMessage is one chat message inside a group. CreatedAt is the sort key
// so messages come back in time order.
type GroupMessage struct {
	GroupID   string          `dynamodbav:"groupId" json:"groupId"`
	CreatedAt string          `dynamodbav:"createdAt" json:"createdAt"`
	MessageID string          `dynamodbav:"messageId" json:"messageId"`
	SenderID  string          `dynamodbav:"senderId" json:"senderId"`
	Content   string          `dynamodbav:"content" json:"content"`
	IsRead    map[string]bool `dynamodbav:"isRead,omitempty" json:"isRead,omitempty"`
	ReadCount int             `dynamodbav:"readCount" json:"readCount"`
}

// GroupMessagesTable is the DynamoDB table name for group chat messages
const GroupMessagesTable = "GroupMessages"
