// Package pushsync keeps three views of a device's push subscription
// consistent: the platform's own subscription, the remote registry's record
// of it, and the in-memory state the UI renders from. The platform is
// authoritative for "can this device receive pushes"; the registry is
// corrected to match it, never the other way around.
package pushsync

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const defaultSyncDelay = 2 * time.Second

// Snapshot is the externally observable engine state.
type Snapshot struct {
	Supported  bool
	Subscribed bool
	Loading    bool
	Phase      Phase
	Err        error
}

// Config wires an Engine. Registry, Platform and Prompter are required;
// everything else has a working zero value.
type Config struct {
	Registry Registry
	Platform Platform
	Prompter Prompter

	// Cache, when set, persists the subscribed flag across restarts so the
	// first paint after Start has a hint before the local check lands.
	Cache FlagCache

	// OnChange, when set, is called with every published snapshot. Calls
	// stop after Close even if a background cycle is still finishing.
	OnChange func(Snapshot)

	// SyncDelay is how long after startup the first background reconcile
	// waits, leaving the foreground free to finish painting.
	SyncDelay time.Duration

	Logger *log.Logger
}

// Engine owns the subscription lifecycle for one device. All mutable flags
// that used to float free in the original UI layer live here as fields so
// the single-flight and teardown guarantees hold without shared globals.
type Engine struct {
	registry  Registry
	platform  Platform
	prompter  Prompter
	cache     FlagCache
	onChange  func(Snapshot)
	syncDelay time.Duration
	log       *log.Logger

	registered atomic.Bool // platform channel came up in Start
	syncing    atomic.Bool // single-flight guard for Reconcile
	closed     atomic.Bool // teardown: no publishes once set

	mu    sync.Mutex
	state Snapshot
}

// New builds an Engine. It does nothing until Start.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	delay := cfg.SyncDelay
	if delay <= 0 {
		delay = defaultSyncDelay
	}
	return &Engine{
		registry:  cfg.Registry,
		platform:  cfg.Platform,
		prompter:  cfg.Prompter,
		cache:     cfg.Cache,
		onChange:  cfg.OnChange,
		syncDelay: delay,
		log:       logger,
	}
}

// Status returns the current snapshot.
func (e *Engine) Status() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Close tears the engine down. In-flight work may keep running, but no
// state is published and no callbacks fire after Close returns.
func (e *Engine) Close() {
	e.closed.Store(true)
}

// publish applies mutate under the lock and notifies the listener, unless
// the engine has been closed.
func (e *Engine) publish(mutate func(*Snapshot)) {
	if e.closed.Load() {
		return
	}
	e.mu.Lock()
	mutate(&e.state)
	snap := e.state
	e.mu.Unlock()
	if e.onChange != nil && !e.closed.Load() {
		e.onChange(snap)
	}
}

func (e *Engine) cachedHint() bool {
	if e.cache == nil {
		return false
	}
	return e.cache.SubscribedHint()
}

func (e *Engine) setHint(v bool) {
	if e.cache != nil {
		e.cache.SetSubscribedHint(v)
	}
}

// Start brings the engine to a known local state without touching the
// network. Unsupported platforms complete immediately as unsubscribed.
// Otherwise the push channel is registered, a single fast local check is
// published, and only then is one background reconcile scheduled, after
// SyncDelay. A failed channel registration still completes startup, with
// the error recorded, so callers are never stuck waiting.
func (e *Engine) Start(ctx context.Context) {
	if !e.platform.Supported() {
		e.publish(func(s *Snapshot) {
			s.Supported = false
			s.Subscribed = false
			s.Phase = PhaseUnsupported
		})
		return
	}

	e.publish(func(s *Snapshot) {
		s.Supported = true
		s.Subscribed = e.cachedHint()
		s.Phase = PhaseRegistering
	})

	if err := e.platform.Register(ctx); err != nil {
		e.log.Printf("pushsync: push channel registration failed: %v", err)
		e.publish(func(s *Snapshot) {
			s.Err = err
			s.Phase = PhaseReady
		})
		return
	}
	e.registered.Store(true)

	sub, err := e.platform.Current(ctx)
	if err != nil {
		e.log.Printf("pushsync: local subscription check failed: %v", err)
		sub = nil
	}
	hasLocal := sub != nil

	e.publish(func(s *Snapshot) {
		s.Subscribed = hasLocal
		s.Err = nil
		s.Phase = PhaseReady
	})
	e.setHint(hasLocal)

	go func() {
		t := time.NewTimer(e.syncDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
		e.Reconcile(ctx)
	}()
}
