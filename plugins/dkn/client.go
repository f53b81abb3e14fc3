package dkn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/joshp123/dknhome/internal/rate"
)

const (
	loginPath         = "/api/v1/auth/login"
	installationsPath = "/api/v1/installations"
	eventsPathF       = "/api/v1/devices/%s/events"
)

// HTTPStatusError reports a non-success response from the DKN API.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("dkn api error %d", e.StatusCode)
	}
	return fmt.Sprintf("dkn api error %d: %s", e.StatusCode, e.Body)
}

// eventRequest is the command body for the device events endpoint.
type eventRequest struct {
	Param string `json:"param"`
	Value any    `json:"value"`
}

// Client talks to the DKN Cloud NA REST API and owns the device
// handles shared by the bridge, the push socket, and the collectors.
type Client struct {
	baseURL    string
	email      string
	password   string
	httpClient *http.Client
	log        logr.Logger

	mu          sync.Mutex
	token       string
	lastRefresh time.Time
	devices     map[string]*Device
	order       []string
}

func NewClient(cfg Config, decl rate.Declaration, log logr.Logger) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		email:      cfg.Email,
		password:   cfg.Password,
		httpClient: rate.WrapHTTP(decl, &http.Client{Timeout: 15 * time.Second}),
		log:        log,
		devices:    make(map[string]*Device),
	}
}

// Login exchanges the account credentials for a session token. The
// token is stored for subsequent requests; callers normally rely on
// the transparent re-login in doJSON instead of calling this directly.
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+loginPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("login: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("read login response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		loginsTotal.WithLabelValues("rejected").Inc()
		return fmt.Errorf("dkn login rejected: check email and password")
	}
	if resp.StatusCode >= 300 {
		loginsTotal.WithLabelValues("error").Inc()
		return HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out loginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("decode login response: %w", err)
	}
	if out.Token == "" {
		loginsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("login response missing token")
	}

	c.mu.Lock()
	c.token = out.Token
	c.mu.Unlock()

	loginsTotal.WithLabelValues("ok").Inc()
	c.log.V(1).Info("logged in", "email", c.email)
	return nil
}

// authToken returns the current session token, logging in first when
// none is held. The socket dialer uses it for its handshake.
func (c *Client) authToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token != "" {
		return token, nil
	}

	if err := c.Login(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	token = c.token
	c.mu.Unlock()
	return token, nil
}

// invalidateToken drops the session token if it still matches the one
// that was rejected. A token won by a concurrent login stays.
func (c *Client) invalidateToken(stale string) {
	c.mu.Lock()
	if c.token == stale {
		c.token = ""
	}
	c.mu.Unlock()
}

// Refresh fetches all installations and merges their device state into
// the handle cache. New units get fresh handles; known units keep
// their handle and callbacks and receive the full state.
func (c *Client) Refresh(ctx context.Context) error {
	var installations []installation
	if err := c.doJSON(ctx, http.MethodGet, installationsPath, nil, &installations); err != nil {
		return fmt.Errorf("fetch installations: %w", err)
	}

	type update struct {
		device *Device
		data   DeviceData
	}
	var updates []update

	c.mu.Lock()
	for _, inst := range installations {
		for _, data := range inst.Devices {
			if data.Mac == "" {
				continue
			}
			device, ok := c.devices[data.Mac]
			if !ok {
				c.devices[data.Mac] = newDevice(c, data)
				c.order = append(c.order, data.Mac)
				continue
			}
			updates = append(updates, update{device: device, data: data})
		}
	}
	c.lastRefresh = time.Now()
	c.mu.Unlock()

	// Device state swaps happen outside c.mu; update callbacks may
	// call back into the client.
	for _, u := range updates {
		u.device.replace(u.data)
	}
	return nil
}

// Devices returns handles for all known units, fetching them on first
// use. Order is stable across refreshes.
func (c *Client) Devices(ctx context.Context) ([]*Device, error) {
	c.mu.Lock()
	loaded := !c.lastRefresh.IsZero()
	c.mu.Unlock()

	if !loaded {
		if err := c.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	devices := make([]*Device, 0, len(c.order))
	for _, mac := range c.order {
		devices = append(devices, c.devices[mac])
	}
	return devices, nil
}

// Device returns the handle for one unit by MAC.
func (c *Client) Device(mac string) (*Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	device, ok := c.devices[mac]
	return device, ok
}

// sendEvent posts one parameter change for a unit. The API accepts
// the event and pushes the resulting state over the socket.
func (c *Client) sendEvent(ctx context.Context, mac, param string, value any) error {
	path := fmt.Sprintf(eventsPathF, url.PathEscape(mac))
	if err := c.doJSON(ctx, http.MethodPost, path, eventRequest{Param: param, Value: value}, nil); err != nil {
		commandsTotal.WithLabelValues(param, "error").Inc()
		return fmt.Errorf("send %s event: %w", param, err)
	}
	commandsTotal.WithLabelValues(param, "ok").Inc()
	return nil
}

// applyEvent merges a partial state frame from the socket into the
// matching device handle.
func (c *Client) applyEvent(mac string, data []byte) error {
	c.mu.Lock()
	device, ok := c.devices[mac]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("update for unknown device %s", mac)
	}
	return device.applyPatch(data)
}

// snapshot copies the current state of every known unit.
func (c *Client) snapshot() []DeviceData {
	c.mu.Lock()
	devices := make([]*Device, 0, len(c.order))
	for _, mac := range c.order {
		devices = append(devices, c.devices[mac])
	}
	c.mu.Unlock()

	out := make([]DeviceData, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.State())
	}
	return out
}

// doJSON performs an authenticated request. A 401 invalidates the
// session and retries exactly once with a fresh login.
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	token, err := c.authToken(ctx)
	if err != nil {
		return err
	}

	status, data, err := c.doAuthed(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		c.invalidateToken(token)
		token, err = c.authToken(ctx)
		if err != nil {
			return err
		}
		status, data, err = c.doAuthed(ctx, method, path, body, token)
		if err != nil {
			return err
		}
	}

	if status >= 300 {
		return HTTPStatusError{StatusCode: status, Body: strings.TrimSpace(string(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) doAuthed(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
