package routes

import (
	"beyondrounds_server/controllers"
	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// RegisterMatchRunRoutes sets up routes for match run operations under /api/matchruns
func RegisterMatchRunRoutes(r *mux.Router, matchRunService *services.MatchRunService, secret string) {
	controller := controllers.NewMatchRunController(matchRunService, secret)

	runRouter := r.PathPrefix("/api/matchruns").Subrouter()
	runRouter.HandleFunc("", controller.TriggerMatchRun).Methods("POST")
	runRouter.HandleFunc("/{epochId}", controller.GetMatchRun).Methods("GET")
}
