package dkn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-logr/logr"

	"github.com/joshp123/dknhome/internal/rate"
)

type fakeEvent struct {
	Param string `json:"param"`
	Value any    `json:"value"`
}

// fakeAPI serves the login, installations, and events endpoints for a
// single device and records every command it receives.
type fakeAPI struct {
	srv *httptest.Server

	mu     sync.Mutex
	logins int
	lists  int
	events []fakeEvent
	device DeviceData
}

func newFakeAPI(t *testing.T, device DeviceData) *fakeAPI {
	f := &fakeAPI{device: device}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/auth/login":
			if r.Method != http.MethodPost {
				t.Errorf("expected POST to login, got %s", r.Method)
			}
			f.mu.Lock()
			f.logins++
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"token":"test-token"}`)
		case r.URL.Path == "/api/v1/installations":
			assertAuth(t, r)
			f.mu.Lock()
			f.lists++
			device := f.device
			f.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			payload, _ := json.Marshal([]installation{{ID: "site-1", Name: "Home", Devices: []DeviceData{device}}})
			_, _ = w.Write(payload)
		case strings.HasPrefix(r.URL.Path, "/api/v1/devices/") && strings.HasSuffix(r.URL.Path, "/events"):
			assertAuth(t, r)
			var event fakeEvent
			if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
				t.Errorf("decode event body: %v", err)
			}
			f.mu.Lock()
			f.events = append(f.events, event)
			f.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) newClient() *Client {
	cfg := Config{BaseURL: f.srv.URL, Email: "user@example.com", Password: "hunter2"}
	return NewClient(cfg, testRateLimits(), logr.Discard())
}

func (f *fakeAPI) recordedEvents() []fakeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fakeEvent(nil), f.events...)
}

func (f *fakeAPI) setDevice(device DeviceData) {
	f.mu.Lock()
	f.device = device
	f.mu.Unlock()
}

func (f *fakeAPI) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func testRateLimits() rate.Declaration {
	return rate.Provider("dkn").MaxRequestsPer(rate.Minute, 1000)
}

func assertAuth(t *testing.T, r *http.Request) {
	t.Helper()
	if auth := r.Header.Get("Authorization"); auth != "Bearer test-token" {
		t.Errorf("unexpected auth header: %s", auth)
	}
}

func testDevice() DeviceData {
	return DeviceData{
		Mac:             "AA:BB:CC:DD:EE:FF",
		Name:            "Living Room",
		Firmware:        "1.0.1",
		Brand:           "ADEQ71",
		Power:           true,
		Mode:            2,
		RealMode:        2,
		WorkTemp:        21.3,
		SetpointAirCool: 24.0,
		SetpointAirHeat: 20.0,
		SetpointAirAuto: 22.0,
		SpeedState:      2,
		MinLimitCold:    18,
		MaxLimitCold:    30,
		MinLimitHeat:    16,
		MaxLimitHeat:    28,
		Connected:       true,
		MachineReady:    true,
		RSSI:            -61,
		SSID:            "attic",
	}
}

func TestClientDevices(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	client := f.newClient()

	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if devices[0].Mac() != "AA:BB:CC:DD:EE:FF" || devices[0].Name() != "Living Room" {
		t.Fatalf("unexpected device: %s / %s", devices[0].Mac(), devices[0].Name())
	}
	if f.loginCount() != 1 {
		t.Fatalf("expected a single login, got %d", f.loginCount())
	}

	// Second call serves from the handle cache.
	if _, err := client.Devices(context.Background()); err != nil {
		t.Fatalf("Devices again: %v", err)
	}
	f.mu.Lock()
	lists := f.lists
	f.mu.Unlock()
	if lists != 1 {
		t.Fatalf("expected 1 list fetch, got %d", lists)
	}
}

func TestClientReloginOn401(t *testing.T) {
	var logins, listAttempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			logins++
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"token":"token-%d"}`, logins)
		case "/api/v1/installations":
			listAttempts++
			if r.Header.Get("Authorization") != "Bearer token-2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `[{"_id":"site-1","name":"Home","devices":[{"mac":"AA:BB:CC:DD:EE:FF","name":"Living Room"}]}]`)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Email: "user@example.com", Password: "hunter2"}, testRateLimits(), logr.Discard())

	devices, err := client.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(devices))
	}
	if logins != 2 {
		t.Fatalf("expected re-login after 401, got %d logins", logins)
	}
	if listAttempts != 2 {
		t.Fatalf("expected exactly one retry, got %d attempts", listAttempts)
	}
}

func TestClientLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Email: "user@example.com", Password: "wrong"}, testRateLimits(), logr.Discard())

	err := client.Login(context.Background())
	if err == nil {
		t.Fatal("expected login error")
	}
	if !strings.Contains(err.Error(), "check email and password") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"token":"test-token"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = io.WriteString(w, "boom")
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Email: "user@example.com", Password: "hunter2"}, testRateLimits(), logr.Discard())

	_, err := client.Devices(context.Background())
	var statusErr HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError || statusErr.Body != "boom" {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestSendEventBody(t *testing.T) {
	var rawBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v1/auth/login":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"token":"test-token"}`)
		case r.URL.Path == "/api/v1/devices/AA:BB:CC:DD:EE:FF/events":
			assertAuth(t, r)
			body, _ := io.ReadAll(r.Body)
			rawBody = string(body)
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, Email: "user@example.com", Password: "hunter2"}, testRateLimits(), logr.Discard())

	if err := client.sendEvent(context.Background(), "AA:BB:CC:DD:EE:FF", "power", true); err != nil {
		t.Fatalf("sendEvent: %v", err)
	}
	if rawBody != `{"param":"power","value":true}` {
		t.Fatalf("unexpected event body: %s", rawBody)
	}
}

func TestRefreshPreservesHandles(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	client := f.newClient()
	ctx := context.Background()

	devices, err := client.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices: %v", err)
	}
	handle := devices[0]

	fired := false
	handle.SetUpdateCallback(func() { fired = true })

	updated := testDevice()
	updated.Name = "Bedroom"
	updated.WorkTemp = 19.5
	f.setDevice(updated)

	if err := client.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	again, err := client.Devices(ctx)
	if err != nil {
		t.Fatalf("Devices after refresh: %v", err)
	}
	if again[0] != handle {
		t.Fatal("refresh must keep existing device handles")
	}
	if handle.Name() != "Bedroom" {
		t.Fatalf("name = %q, want Bedroom", handle.Name())
	}
	if !fired {
		t.Fatal("refresh should fire the update callback")
	}
}

func TestApplyEventUnknownDevice(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	client := f.newClient()

	if _, err := client.Devices(context.Background()); err != nil {
		t.Fatalf("Devices: %v", err)
	}

	if err := client.applyEvent("00:00:00:00:00:00", []byte(`{"power":false}`)); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestApplyEventMergesPartialState(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	client := f.newClient()

	if _, err := client.Devices(context.Background()); err != nil {
		t.Fatalf("Devices: %v", err)
	}
	device, ok := client.Device("AA:BB:CC:DD:EE:FF")
	if !ok {
		t.Fatal("device missing")
	}

	if err := client.applyEvent("AA:BB:CC:DD:EE:FF", []byte(`{"work_temp":25.5}`)); err != nil {
		t.Fatalf("applyEvent: %v", err)
	}

	state := device.State()
	if state.WorkTemp != 25.5 {
		t.Fatalf("work_temp = %v, want 25.5", state.WorkTemp)
	}
	if !state.Power || state.Mode != 2 || state.Name != "Living Room" {
		t.Fatalf("patch must preserve unrelated fields: %+v", state)
	}
}
