package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout is the maximum time allowed for all health probes to
// complete before the endpoint reports unhealthy.
const healthCheckTimeout = 2 * time.Second

// HealthProbe is a check against a critical dependency (database, queue,
// mail provider) that must be operational for the service to function.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// componentStatus represents the health state of a single subsystem.
type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// healthResponse is the JSON response body for the health check endpoint.
type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs all registered health probes sequentially under a shared
// deadline. Returns 200 OK when every probe reports healthy and 503
// otherwise. Mounted at GET /health with no authentication.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	components := make(map[string]componentStatus, len(s.HealthProbes))
	allHealthy := true

	for _, probe := range s.HealthProbes {
		if err := probe.Check(ctx); err != nil {
			allHealthy = false
			components[probe.Name()] = componentStatus{
				Status:  "unhealthy",
				Message: err.Error(),
			}
			continue
		}
		components[probe.Name()] = componentStatus{Status: "healthy"}
	}

	resp := healthResponse{Components: components}
	if allHealthy {
		resp.Status = "healthy"
		JSON(w, r, http.StatusOK, resp)
		return
	}
	resp.Status = "unhealthy"
	JSON(w, r, http.StatusServiceUnavailable, resp)
}
