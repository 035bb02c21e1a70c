package eventbus

import (
	"fmt"
	"sync"
	"sync/atomic"

	evbus "github.com/asaskevich/EventBus"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
)

// Logger is the logging contract used by the bus and the audit handler.
type Logger interface {
	WarnTag(tag, msg string, args ...interface{})
	DebugTag(tag, msg string, args ...interface{})
	InfoTag(tag, msg string, args ...interface{})
}

// AsyncEventBus dispatches events on a fixed worker pool so publishers never
// run subscriber code on their own goroutine.
type AsyncEventBus struct {
	bus       evbus.Bus
	workerNum int
	workChan  chan asyncEvent
	stopChan  chan struct{}
	wg        sync.WaitGroup
	inflight  sync.WaitGroup
	logger    Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	dropped atomic.Int64
}

type asyncEvent struct {
	topic string
	args  []interface{}
}

// NewAsyncEventBus creates an async bus. logger may be nil.
func NewAsyncEventBus(workerNum, queueSize int, logger Logger) *AsyncEventBus {
	if workerNum <= 0 {
		workerNum = defaultWorkers
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	return &AsyncEventBus{
		bus:       evbus.New(),
		workerNum: workerNum,
		workChan:  make(chan asyncEvent, queueSize),
		stopChan:  make(chan struct{}),
		logger:    logger,
	}
}

// Start launches the workers. Calling it twice is a no-op.
func (aeb *AsyncEventBus) Start() {
	aeb.mu.Lock()
	defer aeb.mu.Unlock()
	if aeb.started || aeb.stopped {
		return
	}
	aeb.started = true
	for i := 0; i < aeb.workerNum; i++ {
		aeb.wg.Add(1)
		go aeb.worker()
	}
}

// Stop rejects new events, drains the queue and waits for the workers.
func (aeb *AsyncEventBus) Stop() {
	aeb.mu.Lock()
	if aeb.stopped {
		aeb.mu.Unlock()
		return
	}
	aeb.stopped = true
	started := aeb.started
	close(aeb.stopChan)
	aeb.mu.Unlock()

	if !started {
		// nobody will consume what is queued
		for {
			select {
			case <-aeb.workChan:
				aeb.inflight.Done()
			default:
				return
			}
		}
	}
	aeb.wg.Wait()
}

func (aeb *AsyncEventBus) worker() {
	defer aeb.wg.Done()

	for {
		select {
		case event := <-aeb.workChan:
			aeb.dispatch(event)
		case <-aeb.stopChan:
			for {
				select {
				case event := <-aeb.workChan:
					aeb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (aeb *AsyncEventBus) dispatch(event asyncEvent) {
	defer aeb.inflight.Done()
	defer func() {
		if r := recover(); r != nil && aeb.logger != nil {
			aeb.logger.WarnTag("EventBus", "subscriber of %s panicked: %s", event.topic, fmt.Sprint(r))
		}
	}()
	aeb.bus.Publish(event.topic, event.args...)
}

// Publish runs subscribers on the caller's goroutine.
func (aeb *AsyncEventBus) Publish(topic string, args ...interface{}) {
	aeb.bus.Publish(topic, args...)
}

// PublishAsync queues the event; it reports false when the bus is stopped or
// the queue is full, in which case the event is dropped.
func (aeb *AsyncEventBus) PublishAsync(topic string, args ...interface{}) bool {
	aeb.mu.RLock()
	defer aeb.mu.RUnlock()
	if aeb.stopped {
		return false
	}

	aeb.inflight.Add(1)
	select {
	case aeb.workChan <- asyncEvent{topic: topic, args: args}:
		return true
	default:
		aeb.inflight.Done()
		if n := aeb.dropped.Add(1); aeb.logger != nil && (n == 1 || n%100 == 0) {
			aeb.logger.WarnTag("EventBus", "queue full, dropped %d events (last %s)", n, topic)
		}
		return false
	}
}

// Subscribe registers fn for topic. fn's parameters must match what the topic publishes.
func (aeb *AsyncEventBus) Subscribe(topic string, fn interface{}) error {
	return aeb.bus.Subscribe(topic, fn)
}

// Unsubscribe removes a handler.
func (aeb *AsyncEventBus) Unsubscribe(topic string, handler interface{}) error {
	return aeb.bus.Unsubscribe(topic, handler)
}

// HasCallback reports whether topic has subscribers.
func (aeb *AsyncEventBus) HasCallback(topic string) bool {
	return aeb.bus.HasCallback(topic)
}

// Dropped counts events rejected because the queue was full.
func (aeb *AsyncEventBus) Dropped() int64 {
	return aeb.dropped.Load()
}

// WaitAsync blocks until every queued event has been dispatched.
func (aeb *AsyncEventBus) WaitAsync() {
	aeb.inflight.Wait()
}
