package eventbus

import "time"

// Lifecycle topics published by the broadcast hub.
const (
	EventDeviceConnected    = "device:connected"
	EventDeviceDisconnected = "device:disconnected"
	EventDeviceEvicted      = "device:evicted"
	EventSampleAccepted     = "sample:accepted"
)

// DeviceTopics are the session lifecycle topics kept in the audit trail.
var DeviceTopics = []string{
	EventDeviceConnected,
	EventDeviceDisconnected,
	EventDeviceEvicted,
}

// DeviceEventData describes a session lifecycle transition.
type DeviceEventData struct {
	SessionID        string    `json:"session_id"`
	Username         string    `json:"username,omitempty"`
	ConnectedDevices int       `json:"connected_devices"`
	SampleCount      int64     `json:"sample_count,omitempty"`
	At               time.Time `json:"at"`
}

// SampleEventData describes one accepted sample.
type SampleEventData struct {
	SessionID string    `json:"session_id"`
	Username  string    `json:"username,omitempty"`
	Kind      string    `json:"kind"`
	Value     float64   `json:"value"`
	At        time.Time `json:"at"`
}
