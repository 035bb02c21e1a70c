// Package telemetry holds the sample model, the acceleration/tension
// classifier, the bounded retention buffer and inbound message decoding.
package telemetry

import "time"

// Kind tells which retention buffer a sample belongs to.
type Kind string

const (
	KindAcceleration Kind = "acceleration"
	KindTension      Kind = "tension"
)

// ParseKind accepts the wire names of a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindAcceleration, KindTension:
		return Kind(s), true
	default:
		return "", false
	}
}

// Sample is one accepted reading. It is never mutated once appended.
type Sample struct {
	// Time is the device timestamp in fractional seconds.
	Time      float64   `json:"time"`
	Value     float64   `json:"value"`
	Kind      Kind      `json:"kind"`
	DeviceID  string    `json:"deviceId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}
