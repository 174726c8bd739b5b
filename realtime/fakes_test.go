package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errFakeClosed = errors.New("fake socket closed")

type fakeSocket struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (s *fakeSocket) ReadMessage() ([]byte, error) {
	select {
	case b := <-s.in:
		return b, nil
	case <-s.closed:
		return nil, errFakeClosed
	}
}

func (s *fakeSocket) WriteMessage(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, append([]byte(nil), b...))
	return nil
}

func (s *fakeSocket) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *fakeSocket) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.written...)
}

// fakeDialer hands out the scripted results in order; once the script is
// exhausted every dial fails.
type fakeDialer struct {
	mu     sync.Mutex
	script []func() (Socket, error)
	tokens []string
}

func (d *fakeDialer) Dial(ctx context.Context, url, token string) (Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens = append(d.tokens, token)
	n := len(d.tokens) - 1
	if n < len(d.script) {
		return d.script[n]()
	}
	return nil, errors.New("connection refused")
}

func (d *fakeDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

func succeed(s Socket) func() (Socket, error) {
	return func() (Socket, error) { return s, nil }
}

type fakeTimer struct {
	d time.Duration
	c chan time.Time
}

func (t fakeTimer) fire() { t.c <- time.Now() }

type fakeClock struct {
	requests chan fakeTimer
}

func newFakeClock() *fakeClock { return &fakeClock{requests: make(chan fakeTimer, 16)} }

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.requests <- fakeTimer{d: d, c: ch}
	return ch
}

func (c *fakeClock) next(t *testing.T) fakeTimer {
	t.Helper()
	select {
	case tm := <-c.requests:
		return tm
	case <-time.After(2 * time.Second):
		t.Fatal("expected a reconnect delay to be scheduled")
		return fakeTimer{}
	}
}

func (c *fakeClock) expectIdle(t *testing.T) {
	t.Helper()
	select {
	case tm := <-c.requests:
		t.Fatalf("unexpected reconnect delay scheduled: %v", tm.d)
	case <-time.After(50 * time.Millisecond):
	}
}

func collectStatuses(m *Manager) chan ConnectionStatus {
	ch := make(chan ConnectionStatus, 64)
	m.OnConnectionChange(func(st ConnectionStatus) { ch <- st })
	return ch
}

func expectStatus(t *testing.T, ch <-chan ConnectionStatus, state State, attempt int) ConnectionStatus {
	t.Helper()
	select {
	case st := <-ch:
		require.Equal(t, state, st.State, "state")
		require.Equal(t, attempt, st.Attempt, "attempt")
		return st
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", state)
		return ConnectionStatus{}
	}
}

func waitDone(t *testing.T, m *Manager) {
	t.Helper()
	select {
	case <-m.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("supervision loop did not stop")
	}
}
