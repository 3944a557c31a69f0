package routes

import (
	"beyondrounds_server/controllers"
	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// RegisterGroupChatRoutes sets up routes for group messaging under /api/groups/{groupId}/messages
func RegisterGroupChatRoutes(r *mux.Router, groupChatService *services.GroupChatService) {
	controller := controllers.NewGroupChatController(groupChatService)

	chatRouter := r.PathPrefix("/api/groups/{groupId}/messages").Subrouter()
	chatRouter.HandleFunc("", controller.CreateGroupMessage).Methods("POST")
	chatRouter.HandleFunc("", controller.GetGroupMessages).Methods("GET")
	chatRouter.HandleFunc("/read", controller.MarkGroupMessageRead).Methods("POST")
}
