package models

// Match statuses
const (
	MatchStatusPending  = "pending"
	MatchStatusAccepted = "accepted"
	MatchStatusRejected = "rejected"
	MatchStatusExpired  = "expired"
)

// Group statuses
const (
	GroupStatusActive   = "active"
	GroupStatusArchived = "archived"
)

// Notification types
const (
	NotificationTypeMatch   = "match"
	NotificationTypeGroup   = "group"
	NotificationTypeSystem  = "system"
	NotificationTypeMessage = "message"
)
