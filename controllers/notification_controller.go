package controllers

import (
	"net/http"
	"strconv"

	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// NotificationController handles a user's notification feed
type NotificationController struct {
	NotificationService *services.NotificationService
}

// NewNotificationController creates a new instance of NotificationController
func NewNotificationController(notificationService *services.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

// GetNotificationsByUser returns a user's notifications, newest first
func (c *NotificationController) GetNotificationsByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var limit int32
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = int32(parsed)
		}
	}
	notifications, err := c.NotificationService.ListByUser(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notifications)
}

// MarkNotificationRead flips a notification's read flag
func (c *NotificationController) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	userID := vars["userId"]
	notificationID := vars["notificationId"]

	if err := c.NotificationService.MarkRead(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message":        "Notification marked as read",
		"notificationId": notificationID,
	})
}
