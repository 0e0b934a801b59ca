package gateway

import (
	"net/http"
	"strings"
	"time"

	"github.com/flemzord/tgrelay/internal/core"
)

// HealthServicePrefix is the service name prefix under which modules
// register a HealthReporter, e.g. "health.telegram".
const HealthServicePrefix = "health."

// ComponentHealth is one component's entry in the health report.
type ComponentHealth struct {
	Name      string `json:"name"`
	Available bool   `json:"available"`
	Detail    string `json:"detail,omitempty"`
}

// HealthReporter is implemented by modules that report their own health.
type HealthReporter interface {
	Health() ComponentHealth
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status     string            `json:"status"` // "ok" or "degraded"
	Uptime     int64             `json:"uptime_seconds"`
	Components []ComponentHealth `json:"components"`
}

// collectReporters resolves every registered HealthReporter, sorted by service name.
func collectReporters(ctx *core.AppContext) []HealthReporter {
	if ctx == nil {
		return nil
	}
	var out []HealthReporter
	for _, name := range ctx.ServicesWithPrefix(HealthServicePrefix) {
		if r, ok := core.LookupService[HealthReporter](ctx, name); ok {
			out = append(out, r)
		}
	}
	return out
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 if every component is available, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{
			Status:     "ok",
			Components: []ComponentHealth{},
		}
		if !g.startedAt.IsZero() {
			resp.Uptime = int64(time.Since(g.startedAt).Seconds())
		}

		var reporters []HealthReporter
		if g.reporters != nil {
			reporters = g.reporters()
		}
		for _, r := range reporters {
			h := r.Health()
			if h.Name == "" {
				continue
			}
			h.Name = strings.TrimPrefix(h.Name, HealthServicePrefix)
			resp.Components = append(resp.Components, h)
			if !h.Available {
				resp.Status = "degraded"
			}
		}

		code := http.StatusOK
		if resp.Status == "degraded" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, resp)
	}
}
