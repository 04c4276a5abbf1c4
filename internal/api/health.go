// Package api provides the HTTP handlers for the zmeet API
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/navikt/zmeet/internal/log"
)

// HealthResponse represents the response for health check endpoints
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthLiveHandler handles Kubernetes liveness probe requests
func HealthLiveHandler(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, "UP")
}

// HealthReadyHandler handles Kubernetes readiness probe requests. The
// service is ready once the session store answers.
func HealthReadyHandler(store ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := store.Ping(ctx); err != nil {
				log.Warnf("Readiness check failed: %v", err)
				writeHealth(w, http.StatusServiceUnavailable, "DOWN")
				return
			}
		}
		writeHealth(w, http.StatusOK, "UP")
	}
}

func writeHealth(w http.ResponseWriter, status int, state string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(HealthResponse{Status: state})
}
