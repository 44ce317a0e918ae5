package pushsync

import "context"

// Subscription is a transient read-only copy of the device's push
// subscription. The platform owns the real one; the engine only ever holds
// a snapshot long enough to mirror it into the registry.
type Subscription struct {
	Endpoint       string
	Keys           SubscriptionKeys
	ExpirationTime *int64
}

// SubscriptionKeys is the cryptographic material the server needs to encrypt
// payloads for this device.
type SubscriptionKeys struct {
	P256dh string
	Auth   string
}

// RemoteStatus is the registry's view of this account's subscriptions.
type RemoteStatus struct {
	Subscribed bool `json:"is_subscribed"`
	Count      int  `json:"subscription_count"`
}

// Registry is the server-side subscription registry the engine reconciles
// against. Implementations must honor the context; the engine wraps every
// call in its own deadline and never retries internally.
type Registry interface {
	PublicKey(ctx context.Context) (string, error)
	Register(ctx context.Context, sub Subscription) error
	Unregister(ctx context.Context, sub Subscription) error
	Status(ctx context.Context) (RemoteStatus, error)
	UnregisterAll(ctx context.Context) error
}

// Platform is the device-local push machinery: it owns the one subscription
// a device can hold. Current returns nil when no subscription exists.
type Platform interface {
	Supported() bool
	Register(ctx context.Context) error
	Current(ctx context.Context) (*Subscription, error)
	Create(ctx context.Context, applicationKey []byte) (*Subscription, error)
	Destroy(ctx context.Context) error
}

// Permission is the user's answer to the notification prompt.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Prompter asks the user for notification permission.
type Prompter interface {
	Request(ctx context.Context) (Permission, error)
	Current() Permission
}

// FlagCache persists a boolean "subscription active" hint across restarts so
// the first paint has something to show before the local check completes.
type FlagCache interface {
	SubscribedHint() bool
	SetSubscribedHint(bool)
}
