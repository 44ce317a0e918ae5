package pushsync

// Phase is the engine's position in its startup lifecycle. The UI is free to
// render from PhaseReady on; the background sync phases never block it.
type Phase int

const (
	PhaseUnsupported Phase = iota
	PhaseRegistering
	PhaseReady
	PhaseSyncing
	PhaseSynced
	PhaseSyncFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUnsupported:
		return "unsupported"
	case PhaseRegistering:
		return "registering"
	case PhaseReady:
		return "ready"
	case PhaseSyncing:
		return "syncing"
	case PhaseSynced:
		return "synced"
	case PhaseSyncFailed:
		return "sync_failed"
	default:
		return "unknown"
	}
}

// ReconcileCase classifies the (hasLocal, hasRemote) pair into the corrective
// action a cycle must take. Exactly one case applies to any pair.
type ReconcileCase int

const (
	// CaseReregister: the device holds a subscription the registry has lost.
	CaseReregister ReconcileCase = iota
	// CasePurgeRemote: the registry holds records for a device that no
	// longer has a subscription to back them.
	CasePurgeRemote
	// CaseConsistent: both sides agree the device is subscribed.
	CaseConsistent
	// CaseInactive: neither side has anything; only an explicit subscribe
	// changes that.
	CaseInactive
)

func (c ReconcileCase) String() string {
	switch c {
	case CaseReregister:
		return "reregister"
	case CasePurgeRemote:
		return "purge_remote"
	case CaseConsistent:
		return "consistent"
	case CaseInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

func classifyState(hasLocal, hasRemote bool) ReconcileCase {
	switch {
	case hasLocal && !hasRemote:
		return CaseReregister
	case !hasLocal && hasRemote:
		return CasePurgeRemote
	case hasLocal && hasRemote:
		return CaseConsistent
	default:
		return CaseInactive
	}
}
