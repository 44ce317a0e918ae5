package pushsync

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnsupported      = errors.New("push notifications are not supported on this device")
	ErrNotRegistered    = errors.New("push channel is not registered")
	ErrPermissionDenied = errors.New("notification permission was denied")
	ErrNotConfigured    = errors.New("push notifications are not configured on the server")
)

// Subscribe walks the full opt-in flow: permission prompt, key fetch, local
// subscription create (or reuse, so calling twice is harmless), remote
// registration. Any step's failure aborts the rest and is returned to the
// caller; the loading flag is reset on every exit path.
func (e *Engine) Subscribe(ctx context.Context) (err error) {
	if !e.platform.Supported() {
		e.publish(func(s *Snapshot) { s.Err = ErrUnsupported })
		return ErrUnsupported
	}
	if !e.registered.Load() {
		e.publish(func(s *Snapshot) { s.Err = ErrNotRegistered })
		return ErrNotRegistered
	}

	e.publish(func(s *Snapshot) {
		s.Loading = true
		s.Err = nil
	})
	defer func() {
		e.publish(func(s *Snapshot) {
			s.Loading = false
			s.Err = err
		})
	}()

	perm, perr := await(ctx, permissionBudget, "notification permission prompt",
		func(ctx context.Context) (Permission, error) { return e.prompter.Request(ctx) })
	if perr != nil {
		subscribeFailures.WithLabelValues("permission").Inc()
		err = fmt.Errorf("requesting permission: %w", perr)
		return err
	}
	if perm != PermissionGranted {
		subscribeFailures.WithLabelValues("permission").Inc()
		err = ErrPermissionDenied
		return err
	}

	keyStr, kerr := await(ctx, keyFetchBudget, "application key fetch", e.registry.PublicKey)
	if kerr != nil {
		subscribeFailures.WithLabelValues("key_fetch").Inc()
		err = fmt.Errorf("fetching application key: %w", kerr)
		return err
	}
	if keyStr == "" {
		subscribeFailures.WithLabelValues("key_fetch").Inc()
		err = ErrNotConfigured
		return err
	}

	key, derr := DecodeApplicationKey(keyStr)
	if derr != nil {
		subscribeFailures.WithLabelValues("key_decode").Inc()
		err = derr
		return err
	}

	sub, serr := e.platform.Current(ctx)
	if serr != nil {
		subscribeFailures.WithLabelValues("local_check").Inc()
		err = fmt.Errorf("reading subscription: %w", serr)
		return err
	}
	if sub == nil {
		sub, serr = await(ctx, createBudget, "subscription creation",
			func(ctx context.Context) (*Subscription, error) { return e.platform.Create(ctx, key) })
		if serr != nil {
			subscribeFailures.WithLabelValues("create").Inc()
			err = fmt.Errorf("creating subscription: %w", serr)
			return err
		}
	}

	rerr := awaitErr(ctx, registerBudget, "subscription registration", func(ctx context.Context) error {
		return e.registry.Register(ctx, *sub)
	})
	if rerr != nil {
		// The platform subscription now exists unregistered; the next
		// reconcile cycle re-registers it.
		subscribeFailures.WithLabelValues("register").Inc()
		err = fmt.Errorf("registering subscription: %w", rerr)
		return err
	}

	e.publish(func(s *Snapshot) { s.Subscribed = true })
	e.setHint(true)
	return nil
}

// Unsubscribe destroys the local subscription and then tells the registry.
// The local outcome wins: once the platform subscription is gone the
// operation succeeds even if the registry could not be told, since the next
// reconcile cycle purges the orphaned record. With no local subscription it
// still clears any remote leftovers, best-effort.
func (e *Engine) Unsubscribe(ctx context.Context) (err error) {
	e.publish(func(s *Snapshot) {
		s.Loading = true
		s.Err = nil
	})
	defer func() {
		e.publish(func(s *Snapshot) {
			s.Loading = false
			s.Err = err
		})
	}()

	sub, serr := e.platform.Current(ctx)
	if serr != nil {
		err = fmt.Errorf("reading subscription: %w", serr)
		return err
	}

	if sub != nil {
		if derr := e.platform.Destroy(ctx); derr != nil {
			err = fmt.Errorf("removing subscription: %w", derr)
			return err
		}
		rerr := awaitErr(ctx, unregisterBudget, "subscription removal", func(ctx context.Context) error {
			return e.registry.Unregister(ctx, *sub)
		})
		if rerr != nil {
			e.log.Printf("pushsync: remote unregister failed, deferring to next cycle: %v", rerr)
		}
	} else {
		rerr := awaitErr(ctx, unregisterBudget, "stale registration cleanup", e.registry.UnregisterAll)
		if rerr != nil {
			e.log.Printf("pushsync: remote cleanup failed, deferring to next cycle: %v", rerr)
		}
	}

	e.publish(func(s *Snapshot) { s.Subscribed = false })
	e.setHint(false)
	return nil
}
