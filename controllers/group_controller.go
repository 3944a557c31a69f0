package controllers

import (
	"net/http"

	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// GroupController handles group lookups
type GroupController struct {
	GroupService *services.GroupService
}

// NewGroupController creates a new instance of GroupController
func NewGroupController(groupService *services.GroupService) *GroupController {
	return &GroupController{GroupService: groupService}
}

// GetGroup returns a group with its members
func (c *GroupController) GetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	group, err := c.GroupService.GetGroup(r.Context(), groupID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// GetGroupsByUser returns every group a user belongs to
func (c *GroupController) GetGroupsByUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	groups, err := c.GroupService.GroupsForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// GetGroupsByEpoch returns the groups created in one epoch
func (c *GroupController) GetGroupsByEpoch(w http.ResponseWriter, r *http.Request) {
	epochID := mux.Vars(r)["epochId"]
	groups, err := c.GroupService.GroupsByEpoch(r.Context(), epochID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}
