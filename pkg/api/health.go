package api

import (
	"context"
	"net/http"
	"time"

	"github.com/etcmint/mintgate/pkg/types"
)

const healthProbeTimeout = 5 * time.Second

type healthResponse struct {
	Status     string             `json:"status"`
	Version    string             `json:"version,omitempty"`
	Uptime     int64              `json:"uptime"`
	Blockchain *types.ChainStatus `json:"blockchain,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// handleHealth is the readiness probe. It sits outside the middleware
// pipeline: no auth, no rate-limit budget, no request correlation.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
	defer cancel()

	uptime := int64(time.Since(s.started).Seconds())

	status, err := s.chain.HealthCheck(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status: "unhealthy",
			Uptime: uptime,
			Error:  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "healthy",
		Version:    s.version,
		Uptime:     uptime,
		Blockchain: &status,
	})
}
