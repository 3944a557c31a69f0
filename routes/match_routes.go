package routes

import (
	"beyondrounds_server/controllers"
	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRoutes sets up routes for match operations under /api/matches
func RegisterMatchRoutes(r *mux.Router, matchActionService *services.MatchActionService) {
	controller := controllers.NewMatchController(matchActionService)

	matchRouter := r.PathPrefix("/api/matches").Subrouter()
	matchRouter.HandleFunc("/user/{userId}", controller.GetMatchesByUser).Methods("GET")
	matchRouter.HandleFunc("/{matchId}", controller.GetMatch).Methods("GET")
	matchRouter.HandleFunc("/{matchId}/accept", controller.AcceptMatch).Methods("POST")
	matchRouter.HandleFunc("/{matchId}/reject", controller.RejectMatch).Methods("POST")
	matchRouter.HandleFunc("/{matchId}/viewed", controller.MarkMatchViewed).Methods("POST")
}
