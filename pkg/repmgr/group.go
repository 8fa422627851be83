package repmgr

import (
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/metrics"
)

// Group is the shared election state of one replication environment.
//
// Concurrent Safety:
// 1. Every field below mu is read and written with mu held
// 2. At most one coordinator task exists; the entry point enforces it
// 3. The coordinator calls the vote and role primitives without mu
// 4. Event listeners run on their own goroutines, never under mu
type Group struct {
	mu            sync.Mutex
	checkElection *wakeup

	masterEID       int
	foundMaster     bool
	operationNeeded Operation
	shuttingDown    bool
	electThread     *Runnable

	config   Config
	collab   Collaborators
	listener func(Event)
	events   sync.WaitGroup

	logger          logging.Logger
	metricsRegistry *metrics.Registry
}

// Option customizes a Group
type Option func(*Group)

// WithLogger sets the group's logger
func WithLogger(logger logging.Logger) Option {
	return func(g *Group) {
		g.logger = logger
	}
}

// WithMetrics sets the registry the group reports to; nil disables metrics
func WithMetrics(registry *metrics.Registry) Option {
	return func(g *Group) {
		g.metricsRegistry = registry
	}
}

// NewGroup creates the state for one replication group. No task runs until
// the first InitElection.
func NewGroup(config Config, collab Collaborators, opts ...Option) (*Group, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid group config: %w", err)
	}
	if err := collab.validate(); err != nil {
		return nil, err
	}

	g := &Group{
		masterEID:       InvalidEID,
		config:          config,
		collab:          collab,
		logger:          logging.DefaultLogger(),
		metricsRegistry: metrics.DefaultRegistry(),
	}
	g.checkElection = newWakeup(&g.mu)
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(logging.Component("repmgr"), logging.Site(config.SiteID))

	return g, nil
}

// Lock acquires the group lock, as required by InitElectionLocked
func (g *Group) Lock() {
	g.mu.Lock()
}

// Unlock releases the group lock
func (g *Group) Unlock() {
	g.mu.Unlock()
}

// OnEvent registers the listener for role changes and coordinator failures.
// The listener is invoked asynchronously. Shutdown waits for running
// listeners, so a listener must not call Shutdown itself; hand that off to
// another goroutine.
func (g *Group) OnEvent(listener func(Event)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.listener = listener
}

// SiteID returns this site's environment ID
func (g *Group) SiteID() int {
	return g.config.SiteID
}

// MasterID returns the current master, or InvalidEID
func (g *Group) MasterID() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.masterEID
}

// IsMaster reports whether this site is the master
func (g *Group) IsMaster() bool {
	return g.MasterID() == g.config.SiteID
}

// FoundMaster reports whether any master has ever been known to this site
func (g *Group) FoundMaster() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.foundMaster
}

// Running reports whether a coordinator task is live
func (g *Group) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.electThread != nil && !g.electThread.Finished()
}

// SetMaster records the master announced by the replication layer and wakes
// the coordinator so it can stand down.
func (g *Group) SetMaster(eid int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if eid == g.masterEID {
		return
	}
	g.masterEID = eid
	if eid != InvalidEID {
		g.foundMaster = true
		if eid != g.config.SiteID {
			g.logger.Info("new master", logging.Master(eid))
			g.dispatchLocked(Event{Type: EventNewMaster, MasterID: eid})
		}
	}
	if g.metricsRegistry != nil {
		g.metricsRegistry.SetMasterKnown(eid != InvalidEID)
	}
	g.checkElection.Broadcast()
}

// MasterLost forgets the current master and asks for an election
func (g *Group) MasterLost() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Warn("master lost", logging.Master(g.masterEID))
	g.masterEID = InvalidEID
	if g.metricsRegistry != nil {
		g.metricsRegistry.SetMasterKnown(false)
	}
	return g.InitElectionLocked(OpElection)
}

// Shutdown stops the coordinator and returns the result of its last task.
// A task inside the vote or role primitive finishes that call first.
func (g *Group) Shutdown() error {
	g.mu.Lock()
	g.shuttingDown = true
	g.checkElection.Broadcast()
	h := g.electThread
	g.electThread = nil
	g.mu.Unlock()

	var err error
	if h != nil {
		err = h.Join()
	}
	g.events.Wait()

	g.logger.Info("replication group shut down")
	return err
}

// dispatchLocked hands ev to the listener on its own goroutine
func (g *Group) dispatchLocked(ev Event) {
	if g.listener == nil {
		return
	}
	listener := g.listener
	g.goLocked(func() { listener(ev) })
}

// goLocked runs fn in the background unless the group is shutting down.
// Shutdown waits for every such goroutine.
func (g *Group) goLocked(fn func()) {
	if g.shuttingDown {
		return
	}
	g.events.Add(1)
	go func() {
		defer g.events.Done()
		fn()
	}()
}

func (g *Group) emit(ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dispatchLocked(ev)
}
