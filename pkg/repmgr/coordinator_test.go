package repmgr

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eventually = 2 * time.Second

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNextOperation(t *testing.T) {
	tests := []struct {
		name        string
		lastOp      Operation
		policy      InitPolicy
		foundMaster bool
		want        Operation
	}{
		{"after election always rep start", OpElection, PolicyFullElection, false, OpRepStart},
		{"after election under client policy", OpElection, PolicyClient, true, OpRepStart},
		{"after rep start elects", OpRepStart, PolicyFullElection, false, OpElection},
		{"after nothing elects", OpNone, PolicyFullElection, true, OpElection},
		{"client policy without master stays client", OpRepStart, PolicyClient, false, OpRepStart},
		{"client policy without master from nothing", OpNone, PolicyClient, false, OpRepStart},
		{"client policy after master found elects", OpRepStart, PolicyClient, true, OpElection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextOperation(tt.lastOp, tt.policy, tt.foundMaster))
		})
	}
}

func TestVotesNeeded(t *testing.T) {
	assert.Equal(t, 3, VotesNeeded(PolicyFullElection, false, 3))
	assert.Equal(t, 2, VotesNeeded(PolicyFullElection, true, 3))
	assert.Equal(t, 2, VotesNeeded(PolicyClient, false, 3))
	assert.Equal(t, 3, VotesNeeded(PolicyClient, true, 5))
	assert.Equal(t, 1, Majority(0))
	assert.Equal(t, 1, Majority(1))
	assert.Equal(t, 4, Majority(7))
}

func TestWinningElectionBecomesMaster(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector(electOutcome{winner: 1}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)

	assert.Equal(t, 1, g.MasterID())
	assert.True(t, g.IsMaster())
	assert.True(t, g.FoundMaster())

	masters := f.transport.Calls(RoleMaster)
	require.Len(t, masters, 1)
	assert.Equal(t, "10.0.0.1:5001", masters[0].addr)
	assert.Empty(t, f.transport.Calls(RoleClient))

	calls := f.elector.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 3, calls[0].nsites)
	assert.Equal(t, 3, calls[0].nvotes)

	require.NoError(t, g.Shutdown())
	assert.True(t, f.hasEvent(EventMaster))
	assert.Equal(t, float64(1), counterValue(t, f.registry.ElectionsTotal.WithLabelValues("won")))
}

func TestNoQuorumKeepsRetryingWithinRetryWait(t *testing.T) {
	const retry = 50 * time.Millisecond
	f := newFixture(t, testConfig(1, PolicyFullElection, retry), 3, newFakeElector())
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return len(f.elector.Calls()) >= 3 }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	elections := f.elector.Calls()
	for _, c := range elections {
		assert.Equal(t, 3, c.nvotes, "no master found yet, every election must be unanimous")
	}
	assert.False(t, g.FoundMaster())
	assert.Equal(t, InvalidEID, g.MasterID())

	// elections alternate with client starts, one retry wait apart
	clients := f.transport.Calls(RoleClient)
	require.GreaterOrEqual(t, len(clients), 2)
	var stamps []time.Time
	for i := range elections {
		stamps = append(stamps, elections[i].at)
		if i < len(clients) {
			stamps = append(stamps, clients[i].at)
		}
	}
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.Less(t, gap, retry+250*time.Millisecond, "gap %d too long", i)
	}
}

func TestFoundMasterUsesMajority(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector())
	g := f.group

	g.SetMaster(2)
	require.True(t, g.FoundMaster())

	require.NoError(t, g.MasterLost())
	require.Eventually(t, func() bool { return len(f.elector.Calls()) >= 1 }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	assert.Equal(t, 2, f.elector.Calls()[0].nvotes)
	assert.True(t, f.hasEvent(EventNewMaster))
}

func TestClientPolicyNeverElectsBeforeMaster(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyClient, 20*time.Millisecond), 3, newFakeElector())
	g := f.group

	require.NoError(t, g.InitElection(OpRepStart))
	require.Eventually(t, func() bool { return len(f.transport.Calls(RoleClient)) >= 3 }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	assert.Empty(t, f.elector.Calls())
	assert.True(t, f.hasEvent(EventClient))
}

func TestInitElectionSignalsRunningThread(t *testing.T) {
	elector := newFakeElector()
	elector.block = make(chan struct{})
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, elector)
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return len(elector.Calls()) == 1 }, eventually, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, g.InitElection(OpRepStart))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "entry point must not wait for the task")
	assert.True(t, g.Running())
	assert.Equal(t, float64(1), counterValue(t, f.registry.CoordinatorSignalsTotal))

	close(elector.block)
	// the queued rep start wins over the derived next step
	require.Eventually(t, func() bool { return len(f.transport.Calls(RoleClient)) >= 1 }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())
}

func TestInitElectionReapsFinishedThread(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector(electOutcome{winner: 1}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)

	g.Lock()
	first := g.electThread
	err := g.InitElectionLocked(OpElection)
	second := g.electThread
	g.Unlock()
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.ErrorIs(t, first.Join(), ErrAlreadyJoined, "the finished task must already be joined")
	require.Eventually(t, func() bool { return len(f.elector.Calls()) == 2 }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	assert.Equal(t, float64(1), counterValue(t, f.registry.CoordinatorStartsTotal.WithLabelValues("started")))
	assert.Equal(t, float64(1), counterValue(t, f.registry.CoordinatorStartsTotal.WithLabelValues("restarted")))
}

func TestMailboxLastWriterWins(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector())
	g := f.group

	g.Lock()
	require.NoError(t, g.InitElectionLocked(OpElection))
	require.NoError(t, g.InitElectionLocked(OpRepStart))
	g.Unlock()

	require.Eventually(t, func() bool { return len(f.transport.Calls(RoleClient)) == 1 }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	clients := f.transport.Calls(RoleClient)
	calls := f.elector.Calls()
	if len(calls) > 0 {
		assert.True(t, clients[0].at.Before(calls[0].at), "rep start must run before any election")
	}
}

func TestShutdownWakesWaitingThread(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, 10*time.Second), 3, newFakeElector())
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return len(f.elector.Calls()) == 1 }, eventually, 5*time.Millisecond)

	start := time.Now()
	require.NoError(t, g.Shutdown())
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, g.Running())

	assert.ErrorIs(t, g.InitElection(OpElection), ErrShuttingDown)
}

func TestSetMasterEndsThread(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyClient, 10*time.Second), 3, newFakeElector())
	g := f.group

	require.NoError(t, g.InitElection(OpRepStart))
	require.Eventually(t, func() bool { return len(f.transport.Calls(RoleClient)) == 1 }, eventually, 5*time.Millisecond)

	g.SetMaster(3)
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	assert.Equal(t, 3, g.MasterID())
	assert.False(t, g.IsMaster())
	assert.True(t, f.hasEvent(EventNewMaster))
}

func TestUnexpectedElectionFailureIsFatal(t *testing.T) {
	boom := errors.New("vote primitive exploded")
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector(electOutcome{err: boom}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)

	err := g.Shutdown()
	assert.ErrorIs(t, err, ErrUnexpectedElection)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.elector.Calls(), 1, "protocol failures are not retried by the task")
	assert.True(t, f.hasEvent(EventCoordinatorFailed))
	assert.Equal(t, float64(1), counterValue(t, f.registry.CoordinatorFailuresTotal))
}

func TestFailedThreadIsReapedByEntryPoint(t *testing.T) {
	boom := errors.New("transient transport fault")
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3,
		newFakeElector(electOutcome{err: boom}, electOutcome{winner: 1}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, g.IsMaster, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())
}

func TestAutoRestartAfterFailure(t *testing.T) {
	cfg := testConfig(1, PolicyFullElection, 50*time.Millisecond)
	cfg.AutoRestart = true
	boom := errors.New("vote primitive exploded")
	f := newFixture(t, cfg, 3, newFakeElector(electOutcome{err: boom}, electOutcome{winner: 1}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, g.IsMaster, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	assert.Len(t, f.elector.Calls(), 2)
	assert.True(t, f.hasEvent(EventCoordinatorFailed))
	assert.True(t, f.hasEvent(EventMaster))
}

func TestAutoRestartKeepsClientPolicy(t *testing.T) {
	cfg := testConfig(2, PolicyClient, 20*time.Millisecond)
	cfg.AutoRestart = true
	f := newFixture(t, cfg, 3, newFakeElector(electOutcome{winner: 2}))
	f.transport.clientErr = errors.New("client socket refused")
	f.transport.clientFailures = 1
	g := f.group

	require.NoError(t, g.InitElection(OpRepStart))
	require.Eventually(t, func() bool {
		return len(f.transport.Calls(RoleClient)) >= 3
	}, eventually, 5*time.Millisecond)
	require.NoError(t, g.Shutdown())

	assert.True(t, f.hasEvent(EventCoordinatorFailed))
	assert.Empty(t, f.elector.Calls(), "a client policy site without a master never elects")
	assert.Empty(t, f.transport.Calls(RoleMaster))
	assert.False(t, g.IsMaster())
}

func TestAutoRestartWaitsRetryInterval(t *testing.T) {
	retry := 100 * time.Millisecond
	cfg := testConfig(1, PolicyFullElection, retry)
	cfg.AutoRestart = true
	boom := errors.New("vote primitive exploded")
	f := newFixture(t, cfg, 3, newFakeElector(electOutcome{err: boom}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	time.Sleep(350 * time.Millisecond)

	err := g.Shutdown()
	assert.ErrorIs(t, err, ErrUnexpectedElection)

	calls := f.elector.Calls()
	require.GreaterOrEqual(t, len(calls), 2, "the failed task is restarted")
	assert.LessOrEqual(t, len(calls), 5, "restarts are spaced by the retry wait")
	for i := 1; i < len(calls); i++ {
		assert.GreaterOrEqual(t, calls[i].at.Sub(calls[i-1].at), retry)
	}

	time.Sleep(2 * retry)
	assert.Len(t, f.elector.Calls(), len(calls), "no restart after shutdown")
}

func TestShutdownCancelsPendingRestart(t *testing.T) {
	cfg := testConfig(1, PolicyFullElection, time.Hour)
	cfg.AutoRestart = true
	f := newFixture(t, cfg, 3, newFakeElector(electOutcome{err: errors.New("vote primitive exploded")}))
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return f.hasEvent(EventCoordinatorFailed) }, eventually, 5*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- g.Shutdown() }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrUnexpectedElection)
	case <-time.After(eventually):
		t.Fatal("shutdown blocked on the pending restart")
	}
	assert.Len(t, f.elector.Calls(), 1)
}

func TestBecomeMasterFailurePropagates(t *testing.T) {
	refused := errors.New("listen refused")
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector(electOutcome{winner: 1}))
	f.transport.masterErr = refused
	g := f.group

	require.NoError(t, g.InitElection(OpElection))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)

	err := g.Shutdown()
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, InvalidEID, g.MasterID())
	assert.True(t, g.FoundMaster(), "found master is never cleared")
	assert.Equal(t, uint64(0), f.gens.gen, "generation is only stashed on success")
}

func TestBecomeMasterDirectly(t *testing.T) {
	f := newFixture(t, testConfig(2, PolicyClient, time.Second), 3, newFakeElector())
	g := f.group

	require.NoError(t, g.BecomeMaster())
	require.NoError(t, g.BecomeMaster())

	assert.True(t, g.IsMaster())
	assert.Equal(t, uint64(2), f.gens.gen, "every mastership bumps the generation")
	require.Len(t, f.transport.Calls(RoleMaster), 2)
	assert.Equal(t, "10.0.0.1:5002", f.transport.Calls(RoleMaster)[0].addr)
	require.NoError(t, g.Shutdown())
}

func TestGenerationFailurePropagates(t *testing.T) {
	diskFull := errors.New("disk full")
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 1, newFakeElector())
	f.gens.err = diskFull

	assert.ErrorIs(t, f.group.BecomeMaster(), diskFull)
	assert.False(t, f.group.IsMaster())
	require.NoError(t, f.group.Shutdown())
}

func TestRepStartFailureIsFatal(t *testing.T) {
	down := errors.New("transport down")
	f := newFixture(t, testConfig(1, PolicyClient, time.Second), 3, newFakeElector())
	f.transport.clientErr = down
	g := f.group

	require.NoError(t, g.InitElection(OpRepStart))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)

	assert.ErrorIs(t, g.Shutdown(), down)
	assert.Len(t, f.transport.Calls(RoleClient), 1)
}

func TestAddressFailureIsFatal(t *testing.T) {
	noRoute := errors.New("no route")
	g, err := NewGroup(testConfig(1, PolicyClient, time.Second), Collaborators{
		Elector:     newFakeElector(),
		Sites:       fakeSites(3),
		Transport:   &fakeTransport{},
		Addresses:   fakeAddresses{err: noRoute},
		Generations: &fakeGenerations{},
	}, WithMetrics(nil))
	require.NoError(t, err)

	require.NoError(t, g.InitElection(OpRepStart))
	require.Eventually(t, func() bool { return !g.Running() }, eventually, 5*time.Millisecond)
	assert.ErrorIs(t, g.Shutdown(), noRoute)
}

func TestUnknownOperationPanics(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector())

	assert.Panics(t, func() { _ = f.group.InitElection(Operation(42)) })
	require.NoError(t, f.group.Shutdown())
}

func TestNewGroupValidation(t *testing.T) {
	_, err := NewGroup(Config{SiteID: 1, RetryWait: 0}, Collaborators{})
	assert.ErrorIs(t, err, ErrInvalidRetryWait)

	_, err = NewGroup(testConfig(1, PolicyFullElection, time.Second), Collaborators{Elector: newFakeElector()})
	assert.ErrorIs(t, err, ErrMissingCollaborator)
}

func TestListenerCanHandOffShutdown(t *testing.T) {
	f := newFixture(t, testConfig(1, PolicyFullElection, time.Second), 3, newFakeElector())
	g := f.group

	done := make(chan error, 1)
	g.OnEvent(func(ev Event) {
		if ev.Type == EventMaster {
			go func() { done <- g.Shutdown() }()
		}
	})
	require.NoError(t, g.BecomeMaster())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(eventually):
		t.Fatal("shutdown from a listener hand-off did not return")
	}
}
