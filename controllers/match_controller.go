package controllers

import (
	"encoding/json"
	"net/http"

	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// MatchController handles match lookups and accept/reject actions
type MatchController struct {
	MatchActionService *services.MatchActionService
}

// NewMatchController creates a new instance of MatchController
func NewMatchController(matchActionService *services.MatchActionService) *MatchController {
	return &MatchController{MatchActionService: matchActionService}
}

// GetMatch returns one match by id
func (c *MatchController) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	match, err := c.MatchActionService.GetMatch(r.Context(), matchID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match)
}

// GetMatchesByUser returns all matches a user is party to
func (c *MatchController) GetMatchesByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	matches, err := c.MatchActionService.ListByUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches)
}

// AcceptMatch accepts a pending match and returns the resulting group id
func (c *MatchController) AcceptMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	userID, ok := decodeActingUser(w, r)
	if !ok {
		return
	}

	groupID, err := c.MatchActionService.Accept(r.Context(), matchID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Match accepted",
		"matchId": matchID,
		"groupId": groupID,
	})
}

// RejectMatch rejects a pending match
func (c *MatchController) RejectMatch(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	userID, ok := decodeActingUser(w, r)
	if !ok {
		return
	}

	if err := c.MatchActionService.Reject(r.Context(), matchID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Match rejected",
		"matchId": matchID,
	})
}

// MarkMatchViewed records that the acting user has seen the match
func (c *MatchController) MarkMatchViewed(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]
	userID, ok := decodeActingUser(w, r)
	if !ok {
		return
	}

	if err := c.MatchActionService.MarkViewed(r.Context(), matchID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Match marked as viewed",
		"matchId": matchID,
	})
}

func decodeActingUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, "userId is required", http.StatusBadRequest)
		return "", false
	}
	return body.UserID, true
}
