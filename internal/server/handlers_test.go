package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/joshp123/dknhome/internal/core"
	"github.com/prometheus/client_golang/prometheus"
)

type fakePlugin struct{}

func (fakePlugin) ID() string { return "demo" }

func (fakePlugin) Manifest() core.Manifest {
	return core.Manifest{PluginID: "demo", DisplayName: "Demo", Version: "0.1.0"}
}

func (fakePlugin) Dashboards() []core.Dashboard {
	return []core.Dashboard{{Name: "demo", JSON: []byte("{}")}}
}

func (fakePlugin) Collectors() []prometheus.Collector { return nil }

func (fakePlugin) Health() core.HealthStatus { return core.HealthHealthy }

func (fakePlugin) HealthMessage() string { return "" }

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", rec.Body.String())
	}
}

func TestRegistryHandlerList(t *testing.T) {
	handler := RegistryHandler(core.NewRegistry([]core.Plugin{fakePlugin{}}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Plugins []core.PluginSummary `json:"plugins"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Plugins) != 1 || body.Plugins[0].PluginID != "demo" {
		t.Fatalf("unexpected plugins: %+v", body.Plugins)
	}
}

func TestRegistryHandlerDescribe(t *testing.T) {
	handler := RegistryHandler(core.NewRegistry([]core.Plugin{fakePlugin{}}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/demo", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Plugin core.PluginDescriptor `json:"plugin"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Plugin.PluginID != "demo" {
		t.Fatalf("unexpected plugin: %+v", body.Plugin)
	}
	if len(body.Plugin.Dashboards) != 1 || body.Plugin.Dashboards[0].Path != "/dashboards/demo/demo.json" {
		t.Fatalf("unexpected dashboards: %+v", body.Plugin.Dashboards)
	}
}

func TestRegistryHandlerUnknown(t *testing.T) {
	handler := RegistryHandler(core.NewRegistry(nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["error"] == "" {
		t.Fatalf("expected error message, got %v", body)
	}
}

func TestDashboardsHandler(t *testing.T) {
	handler := DashboardsHandler(map[string][]byte{
		"/dashboards/demo/demo.json": []byte(`{"title":"demo"}`),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboards/demo/demo.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("content type = %q", got)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboards/missing.json", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
