package models

// Notification is a fire-and-forget message to one user. Only the read flag
// is ever mutated after creation.
type Notification struct {
	UserID         string               `dynamodbav:"userId" json:"userId"`
	NotificationID string               `dynamodbav:"notificationId" json:"notificationId"`
	Type           string               `dynamodbav:"type" json:"type"`
	Title          string               `dynamodbav:"title" json:"title"`
	Message        string               `dynamodbav:"message" json:"message"`
	Link           string               `dynamodbav:"link,omitempty" json:"link,omitempty"`
	Read           bool                 `dynamodbav:"read" json:"read"`
	Metadata       NotificationMetadata `dynamodbav:"metadata" json:"metadata"`
	CreatedAt      string               `dynamodbav:"createdAt" json:"createdAt"`
}

// NotificationMetadata is a tagged union keyed by the notification type:
// exactly one variant is populated.
type NotificationMetadata struct {
	Match    *MatchMetadata    `dynamodbav:"match,omitempty" json:"match,omitempty"`
	Group    *GroupMetadata    `dynamodbav:"group,omitempty" json:"group,omitempty"`
	Feedback *FeedbackMetadata `dynamodbav:"feedback,omitempty" json:"feedback,omitempty"`
	Message  *MessageMetadata  `dynamodbav:"message,omitempty" json:"message,omitempty"`
}

// MatchMetadata accompanies NotificationTypeMatch.
type MatchMetadata struct {
	MatchID   string  `dynamodbav:"matchId" json:"matchId"`
	PartnerID string  `dynamodbav:"partnerId" json:"partnerId"`
	Score     float64 `dynamodbav:"score,omitempty" json:"score,omitempty"`
}

// GroupMetadata accompanies NotificationTypeGroup.
type GroupMetadata struct {
	GroupID     string `dynamodbav:"groupId" json:"groupId"`
	EpochID     string `dynamodbav:"epochId,omitempty" json:"epochId,omitempty"`
	MemberCount int    `dynamodbav:"memberCount,omitempty" json:"memberCount,omitempty"`
}

// FeedbackMetadata accompanies feedback-due system notifications.
type FeedbackMetadata struct {
	GroupID string `dynamodbav:"groupId" json:"groupId"`
	EpochID string `dynamodbav:"epochId,omitempty" json:"epochId,omitempty"`
}

// MessageMetadata accompanies NotificationTypeMessage.
type MessageMetadata struct {
	GroupID  string `dynamodbav:"groupId" json:"groupId"`
	SenderID string `dynamodbav:"senderId" json:"senderId"`
}

// NotificationsTable is the DynamoDB table name for notifications
const NotificationsTable = "Notifications"
