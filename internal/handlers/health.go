package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// Health reports liveness and database connectivity
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	status, err := a.health.Check(r.Context())
	if err != nil {
		a.log.Error("health check failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, status)
		return
	}
	respondJSON(w, http.StatusOK, status)
}
