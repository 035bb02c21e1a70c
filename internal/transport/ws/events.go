package ws

import (
	"tensosense-server-go/internal/domain/telemetry"
)

// Wire tags of server-to-client messages.
const (
	TypeInitialData        = "initial_data"
	TypeAccelerationData   = "acceleration_data"
	TypeTensionData        = "tension_data"
	TypeDeviceConnected    = "device_connected"
	TypeDeviceDisconnected = "device_disconnected"
)

// InitialSnapshot is sent to a new session, and only to it, right after it registers.
type InitialSnapshot struct {
	Type string       `json:"type"`
	Data SnapshotData `json:"data"`
}

type SnapshotData struct {
	Acceleration     []telemetry.Sample `json:"acceleration"`
	Tension          []telemetry.Sample `json:"tension"`
	ConnectedDevices int                `json:"connectedDevices"`
}

// SampleAdded announces an accepted sample. Its type tag names the kind.
type SampleAdded struct {
	Type  string           `json:"type"`
	Data  telemetry.Sample `json:"data"`
	Stats SampleStats      `json:"stats"`
}

type SampleStats struct {
	TotalDevices int `json:"totalDevices"`
	// TotalDataPoints is the sending session's cumulative sample count.
	TotalDataPoints int64 `json:"totalDataPoints"`
	LastUpdate      int64 `json:"lastUpdate"`
}

type DeviceConnected struct {
	Type             string `json:"type"`
	DeviceID         string `json:"deviceId"`
	ConnectedDevices int    `json:"connectedDevices"`
	Username         string `json:"username"`
}

type DeviceDisconnected struct {
	Type             string `json:"type"`
	DeviceID         string `json:"deviceId"`
	ConnectedDevices int    `json:"connectedDevices"`
}

func sampleType(kind telemetry.Kind) string {
	if kind == telemetry.KindTension {
		return TypeTensionData
	}
	return TypeAccelerationData
}
