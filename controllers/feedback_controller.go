package controllers

import (
	"encoding/json"
	"net/http"

	"beyondrounds_server/models"
	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// FeedbackController handles post-meetup group feedback
type FeedbackController struct {
	FeedbackService *services.FeedbackService
}

// NewFeedbackController creates a new instance of FeedbackController
func NewFeedbackController(feedbackService *services.FeedbackService) *FeedbackController {
	return &FeedbackController{FeedbackService: feedbackService}
}

// SubmitFeedback records one member's feedback for a group
func (c *FeedbackController) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var feedback models.Feedback
	if err := json.NewDecoder(r.Body).Decode(&feedback); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	feedback.GroupID = mux.Vars(r)["groupId"]

	if err := c.FeedbackService.Submit(r.Context(), feedback); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Feedback recorded",
		"groupId": feedback.GroupID,
	})
}

// GetFeedbackByGroup returns all feedback submitted for a group
func (c *FeedbackController) GetFeedbackByGroup(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	feedback, err := c.FeedbackService.ListByGroup(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedback)
}
