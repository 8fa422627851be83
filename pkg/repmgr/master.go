package repmgr

import (
	"github.com/valyala/bytebufferpool"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
)

// BecomeMaster makes this site the master: it records itself as master,
// starts the transport in the master role and stashes a new generation.
// Failures are returned unchanged. After a failure MasterID reverts to
// InvalidEID while FoundMaster stays true, so the next coordinator pass runs
// a new election rather than exiting on a master that never started.
// The caller must not hold the group lock.
func (g *Group) BecomeMaster() error {
	g.mu.Lock()
	g.masterEID = g.config.SiteID
	g.foundMaster = true
	g.checkElection.Broadcast()
	g.mu.Unlock()

	if g.metricsRegistry != nil {
		g.metricsRegistry.SetMasterKnown(true)
	}

	timer := logging.StartTimer(g.logger, "became master")

	gen, err := g.startMaster()
	if err != nil {
		timer.EndError(err)
		g.abandonMastership()
		return err
	}

	if g.metricsRegistry != nil {
		g.metricsRegistry.SetRole(RoleMaster.String())
		g.metricsRegistry.Generation.Set(float64(gen))
	}
	timer.End(logging.Generation(gen))
	g.emit(Event{Type: EventMaster, MasterID: g.config.SiteID, Generation: gen})
	return nil
}

func (g *Group) startMaster() (uint64, error) {
	addr, err := g.collab.Addresses.PrepareAddress()
	if err != nil {
		return 0, err
	}
	err = g.collab.Transport.StartRole(addr.B, RoleMaster)
	bytebufferpool.Put(addr)
	if err != nil {
		return 0, err
	}

	return g.collab.Generations.StashGeneration()
}

func (g *Group) abandonMastership() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.masterEID == g.config.SiteID {
		g.masterEID = InvalidEID
	}
	if g.metricsRegistry != nil {
		g.metricsRegistry.SetMasterKnown(false)
	}
}
