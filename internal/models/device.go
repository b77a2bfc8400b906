package models

import (
	"sort"
	"sync"
)

// Device is a simulated smart-home device.
type Device struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	State string `json:"state"`
}

// DefaultDevices returns the training environment's device catalogue.
func DefaultDevices() []Device {
	return []Device{
		{Name: "light1", Type: "light", State: "off"},
		{Name: "light2", Type: "light", State: "off"},
		{Name: "thermostat", Type: "thermostat", State: "20°C"},
		{Name: "lock", Type: "lock", State: "locked"},
	}
}

// DeviceCatalog holds the display state of known devices.
// State changes are cosmetic and are not persisted.
type DeviceCatalog struct {
	mu      sync.RWMutex
	devices map[string]Device
}

// NewDeviceCatalog creates a catalog seeded with the given devices.
func NewDeviceCatalog(devices []Device) *DeviceCatalog {
	c := &DeviceCatalog{devices: make(map[string]Device, len(devices))}
	for _, d := range devices {
		c.devices[d.Name] = d
	}
	return c
}

// List returns all devices sorted by name.
func (c *DeviceCatalog) List() []Device {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a device by name.
func (c *DeviceCatalog) Get(name string) (Device, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.devices[name]
	return d, ok
}

// SetState updates the display state of a known device.
// Unknown devices are ignored and false is returned.
func (c *DeviceCatalog) SetState(name, state string) bool {
	if state == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.devices[name]
	if !ok {
		return false
	}
	d.State = state
	c.devices[name] = d
	return true
}
