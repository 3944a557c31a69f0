package controllers

import (
	"encoding/json"
	"net/http"

	"beyondrounds_server/services"

	"github.com/gorilla/mux"
)

// MatchRunController triggers and inspects weekly match runs
type MatchRunController struct {
	MatchRunService *services.MatchRunService
	Secret          string
}

// NewMatchRunController creates a new instance of MatchRunController
func NewMatchRunController(matchRunService *services.MatchRunService, secret string) *MatchRunController {
	return &MatchRunController{MatchRunService: matchRunService, Secret: secret}
}

// TriggerMatchRun starts the run for the given (or current) epoch. The
// caller must present the shared scheduler secret.
func (c *MatchRunController) TriggerMatchRun(w http.ResponseWriter, r *http.Request) {
	if c.Secret == "" || r.Header.Get("X-Match-Run-Secret") != c.Secret {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var body struct {
		EpochID string `json:"epochId"`
	}
	if r.Body != nil {
		// An empty body means "run the current epoch".
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	run, err := c.MatchRunService.RunEpoch(r.Context(), body.EpochID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetMatchRun returns the recorded summary for an epoch
func (c *MatchRunController) GetMatchRun(w http.ResponseWriter, r *http.Request) {
	epochID := mux.Vars(r)["epochId"]
	run, err := c.MatchRunService.GetRun(r.Context(), epochID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
