package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// GroupChatController handles messaging within a group
type GroupChatController struct {
	GroupChatService *services.GroupChatService
}

// NewGroupChatController creates a new instance of GroupChatController
func NewGroupChatController(groupChatService *services.GroupChatService) *GroupChatController {
	return &GroupChatController{GroupChatService: groupChatService}
}

// CreateGroupMessage posts a message to a group
func (c *GroupChatController) CreateGroupMessage(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	var body struct {
		SenderID string `json:"senderId"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.SenderID == "" {
		http.Error(w, "senderId and content are required", http.StatusBadRequest)
		return
	}

	message, err := c.GroupChatService.CreateGroupMessage(r.Context(), groupID, body.SenderID, body.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, message)
}

// GetGroupMessages returns a group's messages, oldest first
func (c *GroupChatController) GetGroupMessages(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	requesterID := r.URL.Query().Get("userId")
	if requesterID == "" {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	messages, err := c.GroupChatService.GetMessagesByGroupID(r.Context(), groupID, requesterID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// MarkGroupMessageRead records that a user has seen a message
func (c *GroupChatController) MarkGroupMessageRead(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	var body struct {
		CreatedAt string `json:"createdAt"`
		UserID    string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.CreatedAt == "" || body.UserID == "" {
		http.Error(w, "createdAt and userId are required", http.StatusBadRequest)
		return
	}

	if err := c.GroupChatService.MarkGroupMessageAsRead(r.Context(), groupID, body.CreatedAt, body.UserID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Message marked as read"})
}
