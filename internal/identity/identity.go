// Package identity resolves a device's stable identity for the lifetime of
// the process. LanForge keeps no state on disk, so a device that never
// set LANFORGE_DEVICE_ID gets a fresh one synthesized once and held for
// as long as the process runs.
package identity

import "github.com/google/uuid"

// Resolve returns deviceID unchanged if non-empty, otherwise synthesizes a
// new one.
func Resolve(deviceID string) string {
	if deviceID != "" {
		return deviceID
	}
	return uuid.New().String()
}

// NewClientID mints a fresh, coordinator-assigned client identifier.
// Client IDs are ephemeral per connection, unlike DeviceID.
func NewClientID() string {
	return uuid.New().String()
}

// NewRoomID mints a fresh, coordinator-assigned room identifier.
func NewRoomID() string {
	return uuid.New().String()
}

// NewRequestID mints a client-chosen request correlation identifier for a
// wire frame.
func NewRequestID() string {
	return uuid.New().String()
}
