package core

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// healthCheckTimeout bounds all probes together.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one critical dependency.
type HealthProbe interface {
	Name() string
	Check(ctx context.Context) error
}

// PingProbe adapts a ping function, such as (*pgxpool.Pool).Ping, to a
// HealthProbe.
type PingProbe struct {
	name string
	ping func(ctx context.Context) error
}

// NewPingProbe returns a probe named name that calls ping.
func NewPingProbe(name string, ping func(ctx context.Context) error) *PingProbe {
	return &PingProbe{name: name, ping: ping}
}

// Name is the component key reported in the health response.
func (p *PingProbe) Name() string { return p.name }

// Check runs the ping; a non-nil error marks the component unhealthy.
func (p *PingProbe) Check(ctx context.Context) error { return p.ping(ctx) }

type componentStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

type probeResult struct {
	name string
	err  error
}

// HandleHealth runs every probe concurrently. 200 when all pass, 503 when any
// fails or does not answer before the deadline.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy"})
		return
	}

	results := make(chan probeResult, len(s.HealthProbes))
	for _, probe := range s.HealthProbes {
		go func(p HealthProbe) {
			var err error
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("probe panicked: %v", rec)
				}
				results <- probeResult{name: p.Name(), err: err}
			}()
			err = p.Check(ctx)
		}(probe)
	}

	components := make(map[string]componentStatus, len(s.HealthProbes))
	for _, probe := range s.HealthProbes {
		components[probe.Name()] = componentStatus{Status: "unhealthy", Message: "health check timed out"}
	}

	healthy := true
wait:
	for pending := len(s.HealthProbes); pending > 0; pending-- {
		select {
		case res := <-results:
			if res.err != nil {
				healthy = false
				components[res.name] = componentStatus{Status: "unhealthy", Message: res.err.Error()}
				continue
			}
			components[res.name] = componentStatus{Status: "healthy"}
		case <-ctx.Done():
			healthy = false
			break wait
		}
	}
	if healthy {
		JSON(w, r, http.StatusOK, healthResponse{Status: "healthy", Components: components})
		return
	}
	s.Logger.WarnContext(r.Context(), "health check failed", "components", components)
	JSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Components: components})
}
