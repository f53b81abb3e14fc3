package dkn

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Device is the long-lived handle for one unit. The cached state is
// replaced wholesale on refresh and patched field by field on socket
// updates; the handle itself survives both.
type Device struct {
	client *Client

	mu       sync.Mutex
	data     DeviceData
	onUpdate func()
}

func newDevice(client *Client, data DeviceData) *Device {
	return &Device{client: client, data: data}
}

// Mac returns the unit MAC, the API's device identifier.
func (d *Device) Mac() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data.Mac
}

// Name returns the user-assigned unit name.
func (d *Device) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data.Name
}

// State returns a copy of the current unit state.
func (d *Device) State() DeviceData {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.data
}

// SetUpdateCallback registers the function invoked after every state
// change. One callback per device; a later call replaces the earlier.
func (d *Device) SetUpdateCallback(cb func()) {
	d.mu.Lock()
	d.onUpdate = cb
	d.mu.Unlock()
}

// applyPatch merges a partial JSON state into the cached state. Fields
// absent from the patch keep their value.
func (d *Device) applyPatch(patch []byte) error {
	d.mu.Lock()
	if err := json.Unmarshal(patch, &d.data); err != nil {
		d.mu.Unlock()
		return fmt.Errorf("apply device update: %w", err)
	}
	cb := d.onUpdate
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// replace swaps in a full state snapshot from a refresh.
func (d *Device) replace(data DeviceData) {
	d.mu.Lock()
	d.data = data
	cb := d.onUpdate
	d.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// Setter proxies. Parameter names are the wire field names; the API
// echoes accepted values back over the socket rather than in the
// command response.

func (d *Device) SetPower(ctx context.Context, on bool) error {
	return d.client.sendEvent(ctx, d.Mac(), "power", on)
}

func (d *Device) SetModeCode(ctx context.Context, code int) error {
	return d.client.sendEvent(ctx, d.Mac(), "mode", code)
}

func (d *Device) SetFanCode(ctx context.Context, code int) error {
	return d.client.sendEvent(ctx, d.Mac(), "speed_state", code)
}

func (d *Device) SetSetpoint(ctx context.Context, field string, value float64) error {
	return d.client.sendEvent(ctx, d.Mac(), field, value)
}
