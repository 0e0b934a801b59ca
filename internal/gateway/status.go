package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flemzord/tgrelay/internal/core"
)

// linkJSON is one chat/channel pair in the status report.
type linkJSON struct {
	ChatID  int64  `json:"chat_id"`
	Channel string `json:"channel"`
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	Uptime     int64             `json:"uptime_seconds"`
	Links      []linkJSON        `json:"links"`
	Components []ComponentHealth `json:"components"`
	Modules    []string          `json:"modules"`
}

// handleStatus returns an http.HandlerFunc for GET /status.
func (g *Gateway) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			Uptime:     int64(time.Since(g.startedAt).Seconds()),
			Links:      []linkJSON{},
			Components: []ComponentHealth{},
			Modules:    []string{},
		}

		if g.links != nil {
			for _, l := range g.links.Links() {
				resp.Links = append(resp.Links, linkJSON{ChatID: l.ChatID, Channel: l.Channel})
			}
		}
		if g.reporters != nil {
			for _, r := range g.reporters() {
				resp.Components = append(resp.Components, r.Health())
			}
		}
		for _, m := range core.GetModules() {
			resp.Modules = append(resp.Modules, string(m.ID))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
