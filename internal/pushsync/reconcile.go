package pushsync

import "context"

// Reconcile compares the device subscription against the registry record and
// corrects whichever side is stale. It is best-effort by contract: nothing is
// reported to the caller, failures are logged and left for the next cycle.
// At most one cycle runs at a time; a request arriving while one is in
// flight is dropped, not queued.
func (e *Engine) Reconcile(ctx context.Context) {
	if e.closed.Load() {
		return
	}
	if !e.syncing.CompareAndSwap(false, true) {
		reconcileDropped.Inc()
		return
	}
	defer e.syncing.Store(false)

	e.publish(func(s *Snapshot) { s.Phase = PhaseSyncing })

	sub, err := e.platform.Current(ctx)
	if err != nil {
		e.log.Printf("pushsync: reconcile: local subscription check failed: %v", err)
		reconcileFailures.Inc()
		e.publish(func(s *Snapshot) { s.Phase = PhaseSyncFailed })
		return
	}
	hasLocal := sub != nil

	// A registry that cannot answer (down, unauthenticated, slow) is treated
	// the same as a registry with no record. That can disguise a persistently
	// broken registry as a quiet steady state, but it keeps local state
	// available instead of surfacing every network hiccup.
	hasRemote := false
	if status, err := await(ctx, statusBudget, "subscription status check", e.registry.Status); err != nil {
		e.log.Printf("pushsync: reconcile: status check failed, assuming no remote record: %v", err)
	} else {
		hasRemote = status.Subscribed
	}

	c := classifyState(hasLocal, hasRemote)
	reconcileCycles.WithLabelValues(c.String()).Inc()

	switch c {
	case CaseReregister:
		err := awaitErr(ctx, registerBudget, "subscription registration", func(ctx context.Context) error {
			return e.registry.Register(ctx, *sub)
		})
		if err != nil {
			e.log.Printf("pushsync: reconcile: re-register failed, deferring to next cycle: %v", err)
			reconcileFailures.Inc()
			e.publish(func(s *Snapshot) { s.Phase = PhaseSyncFailed })
			return
		}

	case CasePurgeRemote:
		// No local endpoint to target, so the whole account record goes.
		// The flag flips either way: local absence is the truth regardless
		// of whether the registry heard about it.
		err := awaitErr(ctx, unregisterBudget, "stale registration cleanup", e.registry.UnregisterAll)
		e.publish(func(s *Snapshot) { s.Subscribed = false })
		e.setHint(false)
		if err != nil {
			e.log.Printf("pushsync: reconcile: remote cleanup failed, deferring to next cycle: %v", err)
			reconcileFailures.Inc()
			e.publish(func(s *Snapshot) { s.Phase = PhaseSyncFailed })
			return
		}

	case CaseConsistent, CaseInactive:
		// Both sides already agree; the published flag is correct as-is.
	}

	e.publish(func(s *Snapshot) { s.Phase = PhaseSynced })
}
