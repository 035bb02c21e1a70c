package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"tensosense-server-go/internal/domain/auth/model"
)

type fakeSender struct {
	mu     sync.Mutex
	msgs   [][]byte
	fail   bool
	closed bool
	code   int
	reason string
}

func (f *fakeSender) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail || f.closed {
		return errors.New("send failed")
	}
	f.msgs = append(f.msgs, payload)
	return nil
}

func (f *fakeSender) Close(code int, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.code = code
		f.reason = reason
	}
	return nil
}

// types returns the "type" field of every received frame.
func (f *fakeSender) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.msgs))
	for _, m := range f.msgs {
		var env struct {
			Type string `json:"type"`
		}
		_ = sonic.Unmarshal(m, &env)
		out = append(out, env.Type)
	}
	return out
}

func (f *fakeSender) message(i int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[i]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type staticVerifier struct {
	token    string
	identity model.Identity
}

func (v staticVerifier) Verify(token string) (model.Identity, error) {
	if token == "" || token != v.token {
		return model.Identity{}, errors.New("invalid token")
	}
	return v.identity, nil
}

var testIdentity = model.Identity{ID: 2, Username: "tensosense", Role: "user"}
