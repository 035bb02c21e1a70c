package ws

import (
	"sync"
	"time"

	"tensosense-server-go/internal/utils"
)

const (
	DefaultIdleTimeout   = 60 * time.Second
	DefaultSweepInterval = 30 * time.Second
)

// Reaper periodically evicts sessions that have stopped sending samples.
type Reaper struct {
	hub      *Hub
	timeout  time.Duration
	interval time.Duration
	logger   *utils.Logger

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReaper creates a reaper; zero durations fall back to 60s idle and a 30s sweep.
func NewReaper(hub *Hub, timeout, interval time.Duration, logger *utils.Logger) *Reaper {
	if timeout <= 0 {
		timeout = DefaultIdleTimeout
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Reaper{
		hub:      hub,
		timeout:  timeout,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sweep loop. Subsequent calls are no-ops.
func (r *Reaper) Start() {
	r.startOnce.Do(func() {
		go r.loop()
	})
}

func (r *Reaper) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Sweep()
		case <-r.stop:
			return
		}
	}
}

// Sweep runs one eviction pass and returns the evicted sessions.
func (r *Reaper) Sweep() []SessionInfo {
	evicted := r.hub.EvictIdle(r.timeout)
	if len(evicted) > 0 {
		r.logger.DebugTag("Reaper", "sweep evicted %d session(s)", len(evicted))
	}
	return evicted
}

// Stop ends the sweep loop and waits for it to exit.
func (r *Reaper) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	started := true
	r.startOnce.Do(func() { started = false })
	if started {
		<-r.done
	}
}
