// Package replication starts and stops this site's replication role.
//
// A master publishes MasterAnnouncement heartbeats on a PUB socket at its
// replication address. A client subscribes to every peer and reports the
// first announcement of each new master, and the silence of a known one.
package replication

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/metrics"
	"github.com/dd0wney/cluso-repmgr/pkg/repmgr"
)

// Manager runs the replication role of one site.
//
// Concurrent Safety:
// 1. Role changes and socket ownership are protected by mu
// 2. Background loops never take mu; they get their sockets and callbacks as arguments
// 3. Callbacks run on the watch loop without any Manager lock held
type Manager struct {
	siteID  int
	peers   []string
	config  Config
	factory SocketFactory

	mu     sync.Mutex
	role   repmgr.Role
	active bool
	addr   string
	pub    ListenSocket
	sub    SubscribeSocket
	stopCh chan struct{}
	wg     sync.WaitGroup

	onNewMaster  func(siteID int)
	onMasterLost func()

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// ManagerOption customizes a Manager
type ManagerOption func(*Manager)

// WithSocketFactory replaces the mangos socket factory
func WithSocketFactory(factory SocketFactory) ManagerOption {
	return func(m *Manager) {
		m.factory = factory
	}
}

// WithLogger sets the manager's logger
func WithLogger(logger logging.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics sets the registry announcements are counted in; nil disables metrics
func WithMetrics(registry *metrics.Registry) ManagerOption {
	return func(m *Manager) {
		m.metricsRegistry = registry
	}
}

// NewManager creates a role manager for siteID. peers are the replication
// addresses of every other site.
func NewManager(siteID int, peers []string, config Config, opts ...ManagerOption) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid replication config: %w", err)
	}

	m := &Manager{
		siteID:          siteID,
		peers:           append([]string(nil), peers...),
		config:          config,
		factory:         NewNNGSocketFactory(),
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(logging.Component("replication"), logging.Site(siteID))
	return m, nil
}

// OnNewMaster registers the callback for the first announcement of a new master.
// It takes effect at the next StartRole.
func (m *Manager) OnNewMaster(fn func(siteID int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onNewMaster = fn
}

// OnMasterLost registers the callback for a known master going silent.
// It takes effect at the next StartRole.
func (m *Manager) OnMasterLost(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onMasterLost = fn
}

// StartRole switches this site to role at addr. addr is copied.
// Restarting the active role at the same address is a no-op.
func (m *Manager) StartRole(addr []byte, role repmgr.Role) error {
	if len(addr) == 0 {
		return ErrEmptyAddress
	}
	address := string(addr)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active && m.role == role && m.addr == address {
		return nil
	}
	if err := m.stopLocked(); err != nil {
		m.logger.Warn("previous role did not stop cleanly", logging.Error(err))
	}

	var err error
	switch role {
	case repmgr.RoleMaster:
		err = m.startMasterLocked(address)
	case repmgr.RoleClient:
		err = m.startClientLocked()
	default:
		err = fmt.Errorf("%w: %d", ErrUnknownRole, int(role))
	}
	if err != nil {
		m.logger.Error("replication role start failed", logging.String("role", role.String()), logging.Error(err))
		return err
	}

	m.role = role
	m.addr = address
	m.active = true
	m.logger.Info("replication role started", logging.String("role", role.String()), logging.Addr(address))
	return nil
}

// Role returns the active role and whether any role is running
func (m *Manager) Role() (repmgr.Role, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.role, m.active
}

// Stop closes the sockets and waits for the background loops
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.stopLocked()
	m.active = false
	return err
}

func (m *Manager) stopLocked() error {
	if m.stopCh == nil {
		return nil
	}
	close(m.stopCh)
	m.stopCh = nil

	cleanup := NewResourceCleanup(m.logger)
	if m.pub != nil {
		cleanup.Add(m.pub, "announcement publisher")
		m.pub = nil
	}
	if m.sub != nil {
		cleanup.Add(m.sub, "announcement subscriber")
		m.sub = nil
	}
	err := cleanup.CloseAll()

	m.wg.Wait()
	m.active = false
	return err
}

func (m *Manager) recordAnnouncement(direction string) {
	if m.metricsRegistry != nil {
		m.metricsRegistry.RecordAnnouncement(direction)
	}
}

// Ensure Manager serves the coordinator
var _ repmgr.Transport = (*Manager)(nil)
