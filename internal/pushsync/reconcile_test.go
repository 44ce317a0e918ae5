package pushsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStateTotality(t *testing.T) {
	cases := []struct {
		hasLocal  bool
		hasRemote bool
		want      ReconcileCase
	}{
		{true, false, CaseReregister},
		{false, true, CasePurgeRemote},
		{true, true, CaseConsistent},
		{false, false, CaseInactive},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, classifyState(tc.hasLocal, tc.hasRemote),
			"hasLocal=%v hasRemote=%v", tc.hasLocal, tc.hasRemote)
	}
}

func TestReconcileReregistersLostRemote(t *testing.T) {
	reg := &fakeRegistry{status: RemoteStatus{Subscribed: false, Count: 0}}
	plat := &fakePlatform{}
	plat.sub = &Subscription{
		Endpoint: "https://push.example/abc",
		Keys:     SubscriptionKeys{P256dh: "p", Auth: "a"},
	}
	e := newTestEngine(reg, plat, &fakePrompter{})
	e.mu.Lock()
	e.state.Subscribed = true
	e.mu.Unlock()

	e.Reconcile(context.Background())

	require.Len(t, reg.registerCalls, 1)
	assert.Equal(t, "https://push.example/abc", reg.registerCalls[0].Endpoint)
	assert.Zero(t, reg.unregisterAllCalls)
	assert.True(t, e.Status().Subscribed, "local state stays authoritative through re-registration")
	assert.Equal(t, PhaseSynced, e.Status().Phase)
}

func TestReconcilePurgesOrphanedRemote(t *testing.T) {
	reg := &fakeRegistry{status: RemoteStatus{Subscribed: true, Count: 1}}
	plat := &fakePlatform{} // no local subscription
	e := newTestEngine(reg, plat, &fakePrompter{})
	e.mu.Lock()
	e.state.Subscribed = true
	e.mu.Unlock()

	e.Reconcile(context.Background())

	assert.Equal(t, 1, reg.unregisterAllCalls)
	assert.Empty(t, reg.registerCalls)
	assert.False(t, e.Status().Subscribed)
}

func TestReconcileConsistentMakesNoWrites(t *testing.T) {
	reg := &fakeRegistry{status: RemoteStatus{Subscribed: true, Count: 1}}
	plat := &fakePlatform{}
	plat.sub = &Subscription{Endpoint: "https://push.example/abc"}
	e := newTestEngine(reg, plat, &fakePrompter{})

	e.Reconcile(context.Background())

	_, registers, unregisters, purges := reg.counts()
	assert.Zero(t, registers)
	assert.Zero(t, unregisters)
	assert.Zero(t, purges)
	assert.Equal(t, PhaseSynced, e.Status().Phase)
}

func TestReconcileInactiveMakesNoWrites(t *testing.T) {
	reg := &fakeRegistry{status: RemoteStatus{}}
	plat := &fakePlatform{}
	e := newTestEngine(reg, plat, &fakePrompter{})

	e.Reconcile(context.Background())

	_, registers, unregisters, purges := reg.counts()
	assert.Zero(t, registers)
	assert.Zero(t, unregisters)
	assert.Zero(t, purges)
}

func TestReconcileTreatsStatusFailureAsNoRemote(t *testing.T) {
	// An unreachable registry must read as "no remote record", so a device
	// holding a subscription re-registers instead of erroring out.
	reg := &fakeRegistry{statusErr: assert.AnError}
	plat := &fakePlatform{}
	plat.sub = &Subscription{Endpoint: "https://push.example/abc"}
	e := newTestEngine(reg, plat, &fakePrompter{})

	e.Reconcile(context.Background())

	require.Len(t, reg.registerCalls, 1)
	assert.Zero(t, reg.unregisterAllCalls)
}

func TestReconcileSwallowsCorrectiveFailures(t *testing.T) {
	reg := &fakeRegistry{
		status:           RemoteStatus{Subscribed: true, Count: 1},
		unregisterAllErr: assert.AnError,
	}
	plat := &fakePlatform{}
	e := newTestEngine(reg, plat, &fakePrompter{})
	e.mu.Lock()
	e.state.Subscribed = true
	e.mu.Unlock()

	e.Reconcile(context.Background())

	// The flag still flips: local absence is the truth regardless of
	// whether the registry heard about it.
	assert.False(t, e.Status().Subscribed)
	assert.Equal(t, PhaseSyncFailed, e.Status().Phase)
}

func TestReconcileCorrectiveFailuresShareTerminalPhase(t *testing.T) {
	// Both corrective actions end the cycle the same way when they fail:
	// the phase reads SyncFailed, never Synced.
	t.Run("re-register", func(t *testing.T) {
		reg := &fakeRegistry{registerErr: assert.AnError}
		plat := &fakePlatform{}
		plat.sub = &Subscription{Endpoint: "https://push.example/abc"}
		e := newTestEngine(reg, plat, &fakePrompter{})

		e.Reconcile(context.Background())

		assert.Equal(t, PhaseSyncFailed, e.Status().Phase)
	})

	t.Run("purge-remote", func(t *testing.T) {
		reg := &fakeRegistry{
			status:           RemoteStatus{Subscribed: true, Count: 1},
			unregisterAllErr: assert.AnError,
		}
		plat := &fakePlatform{}
		e := newTestEngine(reg, plat, &fakePrompter{})

		e.Reconcile(context.Background())

		assert.Equal(t, PhaseSyncFailed, e.Status().Phase)
	})
}

func TestReconcileSingleFlight(t *testing.T) {
	reg := &fakeRegistry{
		statusStarted: make(chan struct{}, 1),
		statusRelease: make(chan struct{}),
	}
	plat := &fakePlatform{}
	e := newTestEngine(reg, plat, &fakePrompter{})

	done := make(chan struct{})
	go func() {
		e.Reconcile(context.Background())
		close(done)
	}()

	// Wait until the first cycle is mid-flight, then ask again.
	select {
	case <-reg.statusStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("first reconcile never reached the status check")
	}
	e.Reconcile(context.Background()) // must drop immediately

	close(reg.statusRelease)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("first reconcile never finished")
	}

	statusCalls, _, _, _ := reg.counts()
	assert.Equal(t, 1, statusCalls, "second reconcile must be a dropped no-op")
}
