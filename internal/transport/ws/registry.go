package ws

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tensosense-server-go/internal/domain/auth/model"
)

const maxIDAttempts = 3

// SessionInfo is a read-only snapshot of a registered session.
type SessionInfo struct {
	ID          string    `json:"deviceId"`
	UserID      int64     `json:"userId"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"createdAt"`
	LastSeen    time.Time `json:"lastSeen"`
	SampleCount int64     `json:"dataCount"`
}

type session struct {
	info SessionInfo
	conn Sender
}

type target struct {
	id   string
	conn Sender
}

// Registry owns every live session, keyed by session id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
	newID    func() string
}

// RegistryOptions lets tests pin the clock and the id generator.
type RegistryOptions struct {
	Clock func() time.Time
	NewID func() string
}

func NewRegistry(opts RegistryOptions) *Registry {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = NewSessionID
	}
	return &Registry{
		sessions: make(map[string]*session),
		now:      opts.Clock,
		newID:    opts.NewID,
	}
}

// NewSessionID returns a fresh "device_<uuid>" identifier.
func NewSessionID() string {
	return "device_" + uuid.NewString()
}

// Register stores a new session for conn. The id is regenerated on collision
// a few times before ErrDuplicateSession is returned.
func (r *Registry) Register(conn Sender, identity model.Identity) (SessionInfo, error) {
	if conn == nil {
		return SessionInfo{}, fmt.Errorf("register: nil connection")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := r.newID()
		if _, exists := r.sessions[id]; exists {
			continue
		}
		now := r.now()
		s := &session{
			info: SessionInfo{
				ID:        id,
				UserID:    identity.ID,
				Username:  identity.Username,
				Role:      identity.Role,
				CreatedAt: now,
				LastSeen:  now,
			},
			conn: conn,
		}
		r.sessions[id] = s
		return s.info, nil
	}
	return SessionInfo{}, ErrDuplicateSession
}

// Touch bumps last-seen and the sample count and returns the new count.
// Unknown ids are ignored.
func (r *Registry) Touch(id string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return 0, false
	}
	s.info.LastSeen = r.now()
	s.info.SampleCount++
	return s.info.SampleCount, true
}

// Unregister removes the session and returns its final snapshot.
func (r *Registry) Unregister(id string) (SessionInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	delete(r.sessions, id)
	return s.info, nil
}

func (r *Registry) Get(id string) (SessionInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return SessionInfo{}, false
	}
	return s.info, true
}

// ListActive returns snapshots ordered by creation time.
func (r *Registry) ListActive() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.info)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// EvictIdleOlderThan closes and removes every session silent for longer
// than idle. Close errors are ignored.
func (r *Registry) EvictIdleOlderThan(idle time.Duration) []SessionInfo {
	r.mu.Lock()
	now := r.now()
	var evicted []SessionInfo
	var conns []Sender
	for id, s := range r.sessions {
		if now.Sub(s.info.LastSeen) > idle {
			evicted = append(evicted, s.info)
			conns = append(conns, s.conn)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close(CloseGoingAway, "idle timeout")
	}
	sort.Slice(evicted, func(i, j int) bool { return evicted[i].ID < evicted[j].ID })
	return evicted
}

func (r *Registry) targets() []target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]target, 0, len(r.sessions))
	for id, s := range r.sessions {
		out = append(out, target{id: id, conn: s.conn})
	}
	return out
}
