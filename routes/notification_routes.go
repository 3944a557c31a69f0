package routes

import (
	"beyondrounds_server/controllers"
	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// RegisterNotificationRoutes sets up routes for notifications under /api/notifications
func RegisterNotificationRoutes(r *mux.Router, notificationService *services.NotificationService) {
	controller := controllers.NewNotificationController(notificationService)

	notificationRouter := r.PathPrefix("/api/notifications").Subrouter()
	notificationRouter.HandleFunc("/user/{userId}", controller.GetNotificationsByUser).Methods("GET")
	notificationRouter.HandleFunc("/user/{userId}/{notificationId}/read", controller.MarkNotificationRead).Methods("POST")
}
