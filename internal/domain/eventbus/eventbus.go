// Package eventbus carries internal lifecycle notifications between the hub
// and its observers. Buses are constructed explicitly and passed around.
package eventbus

// Publisher is the side of the bus the hub depends on.
type Publisher interface {
	PublishAsync(topic string, args ...interface{}) bool
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishAsync(string, ...interface{}) bool { return false }
