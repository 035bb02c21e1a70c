package eventbus

import (
	"context"
	"sync"
	"time"

	"tensosense-server-go/internal/domain/eventbus/repository"
	"tensosense-server-go/internal/platform/observability"
)

const auditStoreTimeout = 5 * time.Second

// AuditHandler observes hub lifecycle events: it logs them, counts them,
// emits metrics and, when a repository is set, records device transitions.
type AuditHandler struct {
	logger Logger
	repo   repository.EventRepository

	mu     sync.Mutex
	counts map[string]int64
}

// NewAuditHandler creates an audit handler. Both arguments may be nil.
func NewAuditHandler(logger Logger, repo repository.EventRepository) *AuditHandler {
	return &AuditHandler{
		logger: logger,
		repo:   repo,
		counts: make(map[string]int64),
	}
}

// Register subscribes the handler to every hub topic on bus.
func (h *AuditHandler) Register(bus *AsyncEventBus) error {
	for _, topic := range DeviceTopics {
		topic := topic
		if err := bus.Subscribe(topic, func(data DeviceEventData) {
			h.HandleDevice(topic, data)
		}); err != nil {
			return err
		}
	}
	return bus.Subscribe(EventSampleAccepted, h.HandleSample)
}

// HandleDevice processes one lifecycle transition.
func (h *AuditHandler) HandleDevice(topic string, data DeviceEventData) {
	h.bump(topic)
	observability.Count(context.Background(), "hub."+topic, map[string]string{"username": data.Username})

	if h.logger != nil {
		h.logger.DebugTag("EventBus", "%s session=%s user=%s devices=%d",
			topic, data.SessionID, data.Username, data.ConnectedDevices)
	}
	if h.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditStoreTimeout)
	defer cancel()
	err := h.repo.Store(ctx, repository.Event{
		EventType: topic,
		SessionID: data.SessionID,
		Username:  data.Username,
		Data: map[string]any{
			"connectedDevices": data.ConnectedDevices,
			"sampleCount":      data.SampleCount,
		},
		CreatedAt: data.At,
	})
	if err != nil && h.logger != nil {
		h.logger.WarnTag("EventBus", "audit store failed for %s: %v", data.SessionID, err)
	}
}

// HandleSample counts an accepted sample. Samples are not persisted.
func (h *AuditHandler) HandleSample(data SampleEventData) {
	h.bump(EventSampleAccepted)
	observability.RecordMetric(context.Background(), "hub.sample.value", data.Value, map[string]string{"kind": data.Kind})
}

// Counts returns how many events of each topic were handled.
func (h *AuditHandler) Counts() map[string]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]int64, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

func (h *AuditHandler) bump(topic string) {
	h.mu.Lock()
	h.counts[topic]++
	h.mu.Unlock()
}
