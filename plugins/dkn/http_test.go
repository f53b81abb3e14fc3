package dkn

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func testMux(t *testing.T, f *fakeAPI) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	Plugin{client: f.newClient()}.RegisterHTTP(mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHTTPListDevices(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	mux := testMux(t, f)

	rec := doRequest(mux, http.MethodGet, "/api/v1/dkn/devices", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var out struct {
		Devices []DeviceSummary `json:"devices"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Devices) != 1 {
		t.Fatalf("expected 1 device, got %d", len(out.Devices))
	}
	device := out.Devices[0]
	if device.Mac != "AA:BB:CC:DD:EE:FF" || device.HVACMode != "cool" || device.HVACAction != "cooling" {
		t.Errorf("unexpected summary: %+v", device)
	}
	if device.TargetTemperature == nil || *device.TargetTemperature != 24.0 {
		t.Errorf("target = %v, want 24.0", device.TargetTemperature)
	}
	if !device.Available {
		t.Error("device should be available")
	}
}

func TestHTTPGetDevice(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	mux := testMux(t, f)

	rec := doRequest(mux, http.MethodGet, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Device DeviceSummary `json:"device"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.Device.Name != "Living Room" {
		t.Errorf("name = %q", out.Device.Name)
	}

	rec = doRequest(mux, http.MethodGet, "/api/v1/dkn/devices/00:00:00:00:00:00", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d for unknown mac", rec.Code)
	}
}

func TestHTTPSetMode(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	mux := testMux(t, f)

	rec := doRequest(mux, http.MethodPost, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF/mode", `{"mode":"heat"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	want := []fakeEvent{{Param: "mode", Value: float64(3)}}
	if got := f.recordedEvents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}

	rec = doRequest(mux, http.MethodPost, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF/mode", `{"mode":"soup"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d for unknown mode", rec.Code)
	}
}

func TestHTTPSetTemperature(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	mux := testMux(t, f)

	rec := doRequest(mux, http.MethodPost, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF/temperature", `{"temperature":22.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	want := []fakeEvent{{Param: "setpoint_air_cool", Value: 22.5}}
	if got := f.recordedEvents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}

	rec = doRequest(mux, http.MethodPost, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF/temperature", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d for missing temperature", rec.Code)
	}
}

func TestHTTPSetTemperatureConflict(t *testing.T) {
	device := testDevice()
	device.Mode = 4
	f := newFakeAPI(t, device)
	mux := testMux(t, f)

	rec := doRequest(mux, http.MethodPost, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF/temperature", `{"temperature":22.5}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 for fan only mode", rec.Code)
	}
}

func TestHTTPSetFan(t *testing.T) {
	f := newFakeAPI(t, testDevice())
	mux := testMux(t, f)

	rec := doRequest(mux, http.MethodPost, "/api/v1/dkn/devices/AA:BB:CC:DD:EE:FF/fan", `{"fan_mode":"medium"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}
	want := []fakeEvent{{Param: "speed_state", Value: float64(4)}}
	if got := f.recordedEvents(); !reflect.DeepEqual(got, want) {
		t.Fatalf("events = %+v, want %+v", got, want)
	}
}

func TestHTTPUnconfigured(t *testing.T) {
	mux := http.NewServeMux()
	Plugin{}.RegisterHTTP(mux)

	rec := doRequest(mux, http.MethodGet, "/api/v1/dkn/devices", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
