package repmgr

import (
	"errors"
	"fmt"
	"time"

	"github.com/valyala/bytebufferpool"

	"github.com/dd0wney/cluso-repmgr/pkg/logging"
	"github.com/dd0wney/cluso-repmgr/pkg/metrics"
)

// InitElection locks the group and calls InitElectionLocked
func (g *Group) InitElection(op Operation) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.InitElectionLocked(op)
}

// InitElectionLocked starts the coordinator task, or wakes the running one,
// with op as its next operation. A newer request overwrites an unconsumed
// older one.
//
// Caller must hold the group lock.
func (g *Group) InitElectionLocked(op Operation) error {
	mustBeKnown(op)
	if g.shuttingDown {
		return ErrShuttingDown
	}

	g.operationNeeded = op
	switch {
	case g.electThread == nil:
		return g.startElectionThreadLocked("started")

	case g.electThread.Finished():
		if err := g.electThread.Join(); err != nil {
			g.logger.Warn("reaped failed election thread", logging.Error(err))
		}
		g.electThread = nil
		return g.startElectionThreadLocked("restarted")

	default:
		g.checkElection.Broadcast()
		if g.metricsRegistry != nil {
			g.metricsRegistry.CoordinatorSignalsTotal.Inc()
		}
		return nil
	}
}

func (g *Group) startElectionThreadLocked(reason string) error {
	var h *Runnable
	h = NewRunnable(func() error {
		return g.runElectionThread(h)
	})
	if err := h.Start(); err != nil {
		return fmt.Errorf("start election thread: %w", err)
	}
	g.electThread = h

	if g.metricsRegistry != nil {
		g.metricsRegistry.RecordCoordinatorStart(reason)
		g.metricsRegistry.SetCoordinatorRunning(true)
	}
	return nil
}

func (g *Group) runElectionThread(h *Runnable) error {
	g.logger.Debug("starting election thread")

	err := g.electMain(h)
	if err != nil {
		g.logger.Error("election thread failed", logging.Error(err))
		g.threadFailure(h, err)
	}

	if g.metricsRegistry != nil {
		g.metricsRegistry.SetCoordinatorRunning(false)
	}
	g.logger.Debug("election thread is exiting")
	return err
}

// threadFailure marks a failed task finished under the lock so the next
// entry point call reaps it, then reports the failure.
func (g *Group) threadFailure(h *Runnable, err error) {
	if g.metricsRegistry != nil {
		g.metricsRegistry.CoordinatorFailuresTotal.Inc()
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	h.markFinished()
	g.dispatchLocked(Event{Type: EventCoordinatorFailed, Err: err})
	if g.config.AutoRestart {
		g.goLocked(func() { g.restartAfterFailure(h) })
	}
}

// restartAfterFailure starts a new task once RetryWait has passed since the
// failure. Shutdown, or an entry point call that reaps the failed task first,
// cancels the restart.
func (g *Group) restartAfterFailure(failed *Runnable) {
	g.mu.Lock()
	defer g.mu.Unlock()

	deadline := WaitDeadline(time.Now(), g.config.RetryWait)
	for !g.shuttingDown && g.electThread == failed {
		if !g.checkElection.WaitUntil(deadline) {
			break
		}
	}
	// someone else already reaped it
	if g.shuttingDown || g.electThread != failed {
		return
	}

	op := g.operationNeeded
	if op == OpNone {
		op = NextOperation(OpNone, g.config.InitPolicy, g.foundMaster)
	}
	g.logger.Info("restarting election thread", logging.Operation(op.String()))
	if err := g.InitElectionLocked(op); err != nil && !errors.Is(err, ErrShuttingDown) {
		g.logger.Error("restart of election thread failed", logging.Error(err))
	}
}

// electMain is the coordinator loop. It returns nil once a master is known
// or the group shuts down, and an error when a primitive fails.
func (g *Group) electMain(h *Runnable) error {
	lastOp := OpNone

	g.mu.Lock()
	toDo := g.operationNeeded
	g.operationNeeded = OpNone
	g.mu.Unlock()

	for {
		switch toDo {
		case OpElection:
			if err := g.runElection(); err != nil {
				return err
			}
			lastOp = OpElection
		case OpRepStart:
			if err := g.startClient(); err != nil {
				return err
			}
			lastOp = OpRepStart
		case OpNone:
			// first time through, someone else already did the rep start
			lastOp = OpNone
		default:
			panic(fmt.Sprintf("repmgr: unknown operation %d", int(toDo)))
		}

		g.mu.Lock()
		g.waitForChangeLocked()

		done := g.masterEID != InvalidEID || g.shuttingDown
		if done {
			h.markFinished()
		} else {
			toDo = g.nextOperationLocked(lastOp)
		}
		g.mu.Unlock()

		if done {
			return nil
		}
	}
}

// waitForChangeLocked blocks until an operation is requested, the group shuts
// down, a master becomes known, or the retry wait elapses.
func (g *Group) waitForChangeLocked() {
	deadline := WaitDeadline(time.Now(), g.config.RetryWait)
	for g.operationNeeded == OpNone && !g.shuttingDown && g.masterEID == InvalidEID {
		if !g.checkElection.WaitUntil(deadline) {
			if g.metricsRegistry != nil {
				g.metricsRegistry.RecordCoordinatorWait(true)
			}
			return
		}
	}
	if g.metricsRegistry != nil {
		g.metricsRegistry.RecordCoordinatorWait(false)
	}
}

func (g *Group) nextOperationLocked(lastOp Operation) Operation {
	if op := g.operationNeeded; op != OpNone {
		g.operationNeeded = OpNone
		return op
	}
	return NextOperation(lastOp, g.config.InitPolicy, g.foundMaster)
}

// NextOperation derives what the coordinator does when nothing was requested.
// After an election the site announces itself as a client; otherwise it holds
// an election, unless the client policy forbids it before any master is seen.
func NextOperation(lastOp Operation, policy InitPolicy, foundMaster bool) Operation {
	if lastOp == OpElection {
		return OpRepStart
	}
	if policy == PolicyClient && !foundMaster {
		return OpRepStart
	}
	return OpElection
}

// VotesNeeded sizes an election. A site with no history under the full
// election policy insists on every site's vote.
func VotesNeeded(policy InitPolicy, foundMaster bool, nsites int) int {
	if policy == PolicyFullElection && !foundMaster {
		return nsites
	}
	return Majority(nsites)
}

// Majority returns the smallest strict majority of nsites
func Majority(nsites int) int {
	if nsites <= 0 {
		return 1
	}
	return nsites/2 + 1
}

func (g *Group) runElection() error {
	nsites := g.collab.Sites.SiteCount()

	g.mu.Lock()
	nvotes := VotesNeeded(g.config.InitPolicy, g.foundMaster, nsites)
	g.mu.Unlock()

	g.logger.Info("running election", logging.Votes(nsites, nvotes))
	start := time.Now()
	winner, err := g.collab.Elector.Elect(nsites, nvotes)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrUnavailable):
		g.logger.Debug("election unavailable", logging.Votes(nsites, nvotes), logging.Latency(elapsed))
		g.recordElection(metrics.ResultUnavailable, elapsed)
		return nil

	case err != nil:
		g.logger.Error("unexpected election failure", logging.Error(err))
		g.recordElection(metrics.ResultFailed, elapsed)
		return fmt.Errorf("%w: %w", ErrUnexpectedElection, err)
	}

	if winner != g.config.SiteID {
		g.logger.Info("election chose another site", logging.Master(winner), logging.Latency(elapsed))
		g.recordElection(metrics.ResultLost, elapsed)
		return nil
	}

	g.recordElection(metrics.ResultWon, elapsed)
	if err := g.BecomeMaster(); err != nil {
		return fmt.Errorf("become master: %w", err)
	}
	return nil
}

func (g *Group) startClient() error {
	addr, err := g.collab.Addresses.PrepareAddress()
	if err != nil {
		return fmt.Errorf("prepare address: %w", err)
	}
	err = g.collab.Transport.StartRole(addr.B, RoleClient)
	bytebufferpool.Put(addr)
	if err != nil {
		g.logger.Error("rep_start as client failed", logging.Error(err))
		return fmt.Errorf("rep_start client: %w", err)
	}

	if g.metricsRegistry != nil {
		g.metricsRegistry.SetRole(RoleClient.String())
	}
	g.logger.Debug("replication started as client")
	g.emit(Event{Type: EventClient})
	return nil
}

func (g *Group) recordElection(result string, elapsed time.Duration) {
	if g.metricsRegistry != nil {
		g.metricsRegistry.RecordElection(result, elapsed)
	}
}

func mustBeKnown(op Operation) {
	switch op {
	case OpNone, OpElection, OpRepStart:
	default:
		panic(fmt.Sprintf("repmgr: unknown operation %d", int(op)))
	}
}
