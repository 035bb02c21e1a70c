package ws

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"tensosense-server-go/internal/domain/auth/model"
	"tensosense-server-go/internal/domain/eventbus"
	"tensosense-server-go/internal/domain/telemetry"
	"tensosense-server-go/internal/utils"
)

// HubOptions configures retention, classification and collaborators.
type HubOptions struct {
	Capacity      int
	SnapshotLimit int
	Threshold     float64
	Registry      *Registry
	Publisher     eventbus.Publisher
	Logger        *utils.Logger
	Clock         func() time.Time
}

// Hub is the shared ingestion state: the session registry, the two retention
// buffers and the fan-out to every live session. One mutex serializes
// membership changes with buffer appends so a joining session's snapshot and
// the broadcasts it receives never overlap or leave gaps.
type Hub struct {
	mu sync.Mutex

	registry      *Registry
	acceleration  *telemetry.Buffer
	tension       *telemetry.Buffer
	classifier    telemetry.Classifier
	snapshotLimit int
	lastUpdate    time.Time

	publisher eventbus.Publisher
	logger    *utils.Logger
	now       func() time.Time
}

// NewHub builds a hub with empty buffers.
func NewHub(opts HubOptions) *Hub {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry(RegistryOptions{Clock: opts.Clock})
	}
	if opts.Publisher == nil {
		opts.Publisher = eventbus.NopPublisher{}
	}
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = telemetry.DefaultCapacity
	}
	limit := opts.SnapshotLimit
	if limit <= 0 || limit > capacity {
		limit = capacity
	}

	return &Hub{
		registry:      opts.Registry,
		acceleration:  telemetry.NewBuffer(capacity),
		tension:       telemetry.NewBuffer(capacity),
		classifier:    telemetry.NewClassifier(opts.Threshold),
		snapshotLimit: limit,
		publisher:     opts.Publisher,
		logger:        opts.Logger,
		now:           opts.Clock,
	}
}

// Registry exposes the session registry.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Buffer returns the retention buffer for kind.
func (h *Hub) Buffer(kind telemetry.Kind) *telemetry.Buffer {
	if kind == telemetry.KindTension {
		return h.tension
	}
	return h.acceleration
}

// Join registers conn, sends it the initial snapshot and announces it to
// every session, itself included.
func (h *Hub) Join(conn Sender, identity model.Identity) (SessionInfo, error) {
	h.mu.Lock()
	info, err := h.registry.Register(conn, identity)
	if err != nil {
		h.mu.Unlock()
		return SessionInfo{}, err
	}
	devices := h.registry.Len()

	snapshot := InitialSnapshot{
		Type: TypeInitialData,
		Data: SnapshotData{
			Acceleration:     h.acceleration.Snapshot(h.snapshotLimit),
			Tension:          h.tension.Snapshot(h.snapshotLimit),
			ConnectedDevices: devices,
		},
	}
	if payload, err := sonic.Marshal(snapshot); err != nil {
		h.logger.ErrorTag("Hub", "encode initial snapshot failed: %v", err)
	} else if err := conn.Send(payload); err != nil {
		h.logger.WarnTag("Hub", "initial snapshot to %s failed: %v", info.ID, err)
	}

	h.broadcastLocked(DeviceConnected{
		Type:             TypeDeviceConnected,
		DeviceID:         info.ID,
		ConnectedDevices: devices,
		Username:         info.Username,
	})
	h.mu.Unlock()

	h.logger.InfoTag("Hub", "device %s connected as %s, %d online", info.ID, info.Username, devices)
	h.publisher.PublishAsync(eventbus.EventDeviceConnected, eventbus.DeviceEventData{
		SessionID:        info.ID,
		Username:         info.Username,
		ConnectedDevices: devices,
		At:               info.CreatedAt,
	})
	return info, nil
}

// Ingest classifies a reading from sessionID, retains it and broadcasts it.
// Readings from sessions that are no longer registered are rejected.
func (h *Hub) Ingest(sessionID string, reading telemetry.Reading) (telemetry.Sample, error) {
	h.mu.Lock()
	info, ok := h.registry.Get(sessionID)
	if !ok {
		h.mu.Unlock()
		return telemetry.Sample{}, ErrSessionNotFound
	}

	now := h.now()
	sample := telemetry.Sample{
		Time:      reading.Time,
		Value:     reading.Value,
		Kind:      reading.Kind,
		DeviceID:  info.ID,
		Username:  info.Username,
		Timestamp: now,
	}
	if sample.Time == 0 {
		sample.Time = utils.UnixSeconds(now)
	}
	if sample.Kind == "" {
		sample.Kind = h.classifier.Classify(sample.Value)
	}

	h.Buffer(sample.Kind).Append(sample)
	count, _ := h.registry.Touch(sessionID)
	h.lastUpdate = now

	h.broadcastLocked(SampleAdded{
		Type: sampleType(sample.Kind),
		Data: sample,
		Stats: SampleStats{
			TotalDevices:    h.registry.Len(),
			TotalDataPoints: count,
			LastUpdate:      now.UnixMilli(),
		},
	})
	h.mu.Unlock()

	h.publisher.PublishAsync(eventbus.EventSampleAccepted, eventbus.SampleEventData{
		SessionID: sample.DeviceID,
		Username:  sample.Username,
		Kind:      string(sample.Kind),
		Value:     sample.Value,
		At:        now,
	})
	return sample, nil
}

// Leave unregisters sessionID and announces the departure. It returns
// ErrSessionNotFound, and broadcasts nothing, when the session was already
// removed by eviction.
func (h *Hub) Leave(sessionID string) (SessionInfo, error) {
	h.mu.Lock()
	info, err := h.registry.Unregister(sessionID)
	if err != nil {
		h.mu.Unlock()
		return SessionInfo{}, err
	}
	devices := h.registry.Len()
	h.broadcastLocked(DeviceDisconnected{
		Type:             TypeDeviceDisconnected,
		DeviceID:         info.ID,
		ConnectedDevices: devices,
	})
	h.mu.Unlock()

	h.logger.InfoTag("Hub", "device %s disconnected after %d samples, %d online", info.ID, info.SampleCount, devices)
	h.publisher.PublishAsync(eventbus.EventDeviceDisconnected, eventbus.DeviceEventData{
		SessionID:        info.ID,
		Username:         info.Username,
		ConnectedDevices: devices,
		SampleCount:      info.SampleCount,
		At:               h.now(),
	})
	return info, nil
}

// EvictIdle closes and removes every session silent for longer than idle and
// broadcasts a disconnect for each.
func (h *Hub) EvictIdle(idle time.Duration) []SessionInfo {
	h.mu.Lock()
	evicted := h.registry.EvictIdleOlderThan(idle)
	devices := h.registry.Len()
	for _, info := range evicted {
		h.broadcastLocked(DeviceDisconnected{
			Type:             TypeDeviceDisconnected,
			DeviceID:         info.ID,
			ConnectedDevices: devices,
		})
	}
	h.mu.Unlock()

	now := h.now()
	for _, info := range evicted {
		h.logger.InfoTag("Reaper", "evicted idle device %s (last seen %s)", info.ID, info.LastSeen.Format(time.RFC3339))
		h.publisher.PublishAsync(eventbus.EventDeviceEvicted, eventbus.DeviceEventData{
			SessionID:        info.ID,
			Username:         info.Username,
			ConnectedDevices: devices,
			SampleCount:      info.SampleCount,
			At:               now,
		})
	}
	return evicted
}

// Broadcast encodes event once and sends it to every live session. It
// returns the number of successful deliveries.
func (h *Hub) Broadcast(event any) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.broadcastLocked(event)
}

func (h *Hub) broadcastLocked(event any) int {
	payload, err := sonic.Marshal(event)
	if err != nil {
		h.logger.ErrorTag("Hub", "encode broadcast failed: %v", err)
		return 0
	}

	delivered := 0
	for _, t := range h.registry.targets() {
		if err := t.conn.Send(payload); err != nil {
			h.logger.DebugTag("Hub", "send to %s failed: %v", t.id, err)
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll closes every session's connection with code. The sessions leave
// the registry once their read loops observe the close.
func (h *Hub) CloseAll(code int, reason string) {
	h.mu.Lock()
	targets := h.registry.targets()
	h.mu.Unlock()

	for _, t := range targets {
		_ = t.conn.Close(code, reason)
	}
}

// Stats is the polled summary of the hub.
type Stats struct {
	ConnectedDevices        int           `json:"connectedDevices"`
	TotalAccelerationPoints int           `json:"totalAccelerationPoints"`
	TotalTensionPoints      int           `json:"totalTensionPoints"`
	LastUpdate              *int64        `json:"lastUpdate"`
	Devices                 []DeviceStats `json:"devices"`
}

type DeviceStats struct {
	DeviceID  string    `json:"deviceId"`
	Username  string    `json:"username"`
	DataCount int64     `json:"dataCount"`
	LastSeen  time.Time `json:"lastSeen"`
	Connected bool      `json:"connected"`
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessions := h.registry.ListActive()
	devices := make([]DeviceStats, 0, len(sessions))
	for _, s := range sessions {
		devices = append(devices, DeviceStats{
			DeviceID:  s.ID,
			Username:  s.Username,
			DataCount: s.SampleCount,
			LastSeen:  s.LastSeen,
			Connected: true,
		})
	}
	return Stats{
		ConnectedDevices:        len(sessions),
		TotalAccelerationPoints: h.acceleration.Len(),
		TotalTensionPoints:      h.tension.Len(),
		LastUpdate:              utils.UnixMillis(h.lastUpdate),
		Devices:                 devices,
	}
}

// History is the polled recent-data view.
type History struct {
	Data             any    `json:"data"`
	ConnectedDevices int    `json:"connectedDevices"`
	LastUpdate       *int64 `json:"lastUpdate"`
}

// History returns the newest limit samples of kind, or of both kinds keyed
// by name when kind is empty.
func (h *Hub) History(kind telemetry.Kind, limit int) History {
	h.mu.Lock()
	defer h.mu.Unlock()

	var data any
	switch kind {
	case telemetry.KindAcceleration, telemetry.KindTension:
		data = h.Buffer(kind).Snapshot(limit)
	default:
		data = map[string][]telemetry.Sample{
			string(telemetry.KindAcceleration): h.acceleration.Snapshot(limit),
			string(telemetry.KindTension):      h.tension.Snapshot(limit),
		}
	}
	return History{
		Data:             data,
		ConnectedDevices: h.registry.Len(),
		LastUpdate:       utils.UnixMillis(h.lastUpdate),
	}
}
