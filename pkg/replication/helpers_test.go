package replication

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.nanomsg.org/mangos/v3"
	"go.uber.org/goleak"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
)

// verifyNoLeaks fails the test if goroutines started during it outlive its cleanups
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })
}

// fakeSocket records calls and blocks Recv until closed or the deadline passes
type fakeSocket struct {
	mu        sync.Mutex
	closed    bool
	closeCh   chan struct{}
	deadline  time.Duration
	listenErr error
	listened  []string
	dialed    []string
	sent      int
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{closeCh: make(chan struct{}), deadline: 10 * time.Millisecond}
}

func (s *fakeSocket) Send([]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mangos.ErrClosed
	}
	s.sent++
	return nil
}

func (s *fakeSocket) Recv() ([]byte, error) {
	s.mu.Lock()
	d := s.deadline
	s.mu.Unlock()

	select {
	case <-s.closeCh:
		return nil, mangos.ErrClosed
	case <-time.After(d):
		return nil, mangos.ErrRecvTimeout
	}
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return mangos.ErrClosed
	}
	s.closed = true
	close(s.closeCh)
	return nil
}

func (s *fakeSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *fakeSocket) SetRecvDeadline(d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deadline = d
	return nil
}

func (s *fakeSocket) SetSendDeadline(time.Duration) error { return nil }

func (s *fakeSocket) Listen(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listened = append(s.listened, addr)
	return s.listenErr
}

func (s *fakeSocket) Dial(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dialed = append(s.dialed, addr)
	return nil
}

func (s *fakeSocket) Subscribe([]byte) error { return nil }

// fakeFactory hands out fakeSockets and remembers them
type fakeFactory struct {
	mu        sync.Mutex
	pubs      []*fakeSocket
	subs      []*fakeSocket
	listenErr error
}

func (f *fakeFactory) NewPubSocket() (ListenSocket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := newFakeSocket()
	s.listenErr = f.listenErr
	f.pubs = append(f.pubs, s)
	return s, nil
}

func (f *fakeFactory) NewSubSocket() (SubscribeSocket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := newFakeSocket()
	f.subs = append(f.subs, s)
	return s, nil
}

func (f *fakeFactory) NewReqSocket() (DialSocket, error) {
	return nil, errors.New("not used")
}

func (f *fakeFactory) NewRepSocket() (ListenSocket, error) {
	return nil, errors.New("not used")
}

func testReplicationConfig(scheme string) Config {
	return Config{
		Scheme:            scheme,
		HeartbeatInterval: 20 * time.Millisecond,
		MasterTimeout:     120 * time.Millisecond,
	}
}

func newTestManager(t *testing.T, siteID int, peers []string, config Config, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithLogger(logging.NewNopLogger()), WithMetrics(nil)}, opts...)
	m, err := NewManager(siteID, peers, config, opts...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Stop() })
	return m
}
