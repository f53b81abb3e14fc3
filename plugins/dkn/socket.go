package dkn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"
)

const (
	socketPath     = "/api/v1/devices/events"
	initialBackoff = time.Second
	maxBackoff     = 2 * time.Minute
)

// socket consumes the push stream and feeds updates into the client.
type socket struct {
	client *Client
	log    logr.Logger
}

func newSocket(client *Client, log logr.Logger) *socket {
	return &socket{client: client, log: log}
}

// run dials, reads until failure, and redials with capped exponential
// backoff until ctx is canceled. State is refreshed after every
// successful connect to cover updates missed while disconnected.
func (s *socket) run(ctx context.Context) {
	backoff := initialBackoff
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error(err, "socket dial failed", "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		socketConnectsTotal.Inc()
		s.log.Info("socket connected")

		if err := s.client.Refresh(ctx); err != nil {
			s.log.Error(err, "refresh after socket connect failed")
		}

		s.read(ctx, conn)
	}
}

func (s *socket) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := s.client.authToken(ctx)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := dialer.DialContext(ctx, s.client.socketURL(), header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			s.client.invalidateToken(token)
		}
		return nil, fmt.Errorf("dial socket: %w", err)
	}
	return conn, nil
}

func (s *socket) read(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Error(err, "socket read failed")
			}
			return
		}

		var event deviceEvent
		if err := json.Unmarshal(data, &event); err != nil {
			s.log.V(1).Info("skipping malformed socket frame", "error", err.Error())
			continue
		}
		if event.Event != "device-update" || event.Mac == "" {
			continue
		}

		pushEventsTotal.Inc()
		if err := s.client.applyEvent(event.Mac, event.Data); err != nil {
			s.log.V(1).Info("dropping socket update", "mac", event.Mac, "error", err.Error())
		}
	}
}

// socketURL converts the API base URL to the websocket endpoint.
func (c *Client) socketURL() string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + socketPath
}
