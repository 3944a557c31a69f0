package models

// Feedback is one member's verdict on one group. The table key (groupId,
// userId) caps submissions at one per pair; resubmission is rejected.
type Feedback struct {
	GroupID        string `dynamodbav:"groupId" json:"groupId"`
	UserID         string `dynamodbav:"userId" json:"userId"`
	Rating         int    `dynamodbav:"rating" json:"rating"`
	WouldMeetAgain string `dynamodbav:"wouldMeetAgain" json:"wouldMeetAgain"`
	Comment        string `dynamodbav:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt      string `dynamodbav:"createdAt" json:"createdAt"`
}

// FeedbackTable is the DynamoDB table name for group feedback
const FeedbackTable = "Feedback"

// FeedbackUserIndex is the GSI keyed by userId.
const FeedbackUserIndex = "userId-index"

// WouldMeetAgain tri-state.
const (
	MeetAgainYes    = "yes"
	MeetAgainNo     = "no"
	MeetAgainUnsure = "unsure"
)
