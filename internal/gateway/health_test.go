package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flemzord/tgrelay/internal/core"
)

func TestHealth_AllHealthy(t *testing.T) {
	t.Parallel()

	g := &Gateway{
		startedAt: time.Now().Add(-90 * time.Second),
		reporters: staticReporters(
			fakeReporter{ComponentHealth{Name: "irc", Available: true, Detail: "connected"}},
			fakeReporter{ComponentHealth{Name: "telegram", Available: true}},
		),
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	g.handleHealth().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if len(resp.Components) != 2 {
		t.Errorf("components = %d, want 2", len(resp.Components))
	}
	if resp.Uptime < 90 {
		t.Errorf("uptime = %d, want >= 90", resp.Uptime)
	}
}

func TestHealth_Degraded(t *testing.T) {
	t.Parallel()

	g := &Gateway{
		reporters: staticReporters(
			fakeReporter{ComponentHealth{Name: "irc", Available: false, Detail: "disconnected"}},
			fakeReporter{ComponentHealth{Name: "telegram", Available: true}},
		),
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	g.handleHealth().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want %q", resp.Status, "degraded")
	}
}

func TestHealth_NoReporters(t *testing.T) {
	t.Parallel()

	g := &Gateway{}
	rr := httptest.NewRecorder()
	g.handleHealth().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCollectReporters(t *testing.T) {
	t.Parallel()

	ctx := core.NewAppContext(discardLogger(), t.TempDir())
	ctx.RegisterService(HealthServicePrefix+"telegram", fakeReporter{ComponentHealth{Name: "telegram"}})
	ctx.RegisterService(HealthServicePrefix+"irc", fakeReporter{ComponentHealth{Name: "irc"}})
	ctx.RegisterService(HealthServicePrefix+"bogus", "not a reporter")
	ctx.RegisterService("metrics", struct{}{})

	got := collectReporters(ctx)
	if len(got) != 2 {
		t.Fatalf("reporters = %d, want 2", len(got))
	}
	if got[0].Health().Name != "irc" || got[1].Health().Name != "telegram" {
		t.Errorf("order = %q, %q; want irc, telegram", got[0].Health().Name, got[1].Health().Name)
	}

	if collectReporters(nil) != nil {
		t.Error("collectReporters(nil) should be nil")
	}
}
