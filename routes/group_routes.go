package routes

import (
	"beyondrounds_server/controllers"
	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// RegisterGroupRoutes sets up routes for group lookups and feedback under /api/groups
func RegisterGroupRoutes(r *mux.Router, groupService *services.GroupService, feedbackService *services.FeedbackService) {
	controller := controllers.NewGroupController(groupService)
	feedbackController := controllers.NewFeedbackController(feedbackService)

	groupRouter := r.PathPrefix("/api/groups").Subrouter()
	groupRouter.HandleFunc("/user/{userId}", controller.GetGroupsByUser).Methods("GET")
	groupRouter.HandleFunc("/epoch/{epochId}", controller.GetGroupsByEpoch).Methods("GET")
	groupRouter.HandleFunc("/{groupId}", controller.GetGroup).Methods("GET")
	groupRouter.HandleFunc("/{groupId}/feedback", feedbackController.SubmitFeedback).Methods("POST")
	groupRouter.HandleFunc("/{groupId}/feedback", feedbackController.GetFeedbackByGroup).Methods("GET")
}
