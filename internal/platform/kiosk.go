// Package platform implements the device side of push subscriptions for
// dedicated appliances: guard-station kiosks, lobby panels, concierge
// terminals. A browser gets all of this from its push manager; an appliance
// has to carry its own, so the kiosk mints a P-256 key pair and auth secret
// for payload encryption, derives its endpoint from the push gateway URL,
// and persists the lot so a restart sees the same subscription.
package platform

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/GenturixHub/genturix-push/internal/pushsync"
)

var deviceBucket = []byte("device")

var (
	keyDeviceID     = []byte("id")
	keySubscription = []byte("subscription")
	keySubscribed   = []byte("subscribed_hint")
)

type storedSubscription struct {
	Endpoint       string `json:"endpoint"`
	P256dh         string `json:"p256dh"`
	Auth           string `json:"auth"`
	PrivateKey     []byte `json:"private_key"`
	ExpirationTime *int64 `json:"expirationTime"`
}

// Kiosk owns the single push subscription a device can hold.
type Kiosk struct {
	db       *bolt.DB
	gateway  string
	deviceID string

	mu  sync.Mutex
	sub *pushsync.Subscription
}

// Open loads (or initializes) kiosk state from the bolt file at path.
// gatewayURL is where minted endpoints point; an empty gateway makes the
// platform report itself unsupported.
func Open(path, gatewayURL string) (*Kiosk, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening device state: %w", err)
	}

	k := &Kiosk{db: db, gateway: strings.TrimRight(gatewayURL, "/")}

	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(deviceBucket)
		if err != nil {
			return err
		}
		id := b.Get(keyDeviceID)
		if id == nil {
			id = []byte(uuid.NewString())
			if err := b.Put(keyDeviceID, id); err != nil {
				return err
			}
		}
		k.deviceID = string(id)

		if raw := b.Get(keySubscription); raw != nil {
			var stored storedSubscription
			if err := json.Unmarshal(raw, &stored); err != nil {
				// Unreadable state is treated as "no subscription".
				return b.Delete(keySubscription)
			}
			k.sub = &pushsync.Subscription{
				Endpoint:       stored.Endpoint,
				Keys:           pushsync.SubscriptionKeys{P256dh: stored.P256dh, Auth: stored.Auth},
				ExpirationTime: stored.ExpirationTime,
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading device state: %w", err)
	}

	return k, nil
}

// DeviceID is the stable identity minted on first open.
func (k *Kiosk) DeviceID() string { return k.deviceID }

func (k *Kiosk) Close() error { return k.db.Close() }

func (k *Kiosk) Supported() bool { return k.gateway != "" }

// Register brings up the push channel. For an appliance that means checking
// it has a usable gateway to point endpoints at; there is no service worker
// equivalent to wait on.
func (k *Kiosk) Register(ctx context.Context) error {
	if k.gateway == "" {
		return fmt.Errorf("no push gateway configured")
	}
	if _, err := url.ParseRequestURI(k.gateway); err != nil {
		return fmt.Errorf("invalid push gateway %q: %w", k.gateway, err)
	}
	return nil
}

func (k *Kiosk) Current(ctx context.Context) (*pushsync.Subscription, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.sub == nil {
		return nil, nil
	}
	cp := *k.sub
	return &cp, nil
}

// Create mints a new subscription bound to applicationKey. The key must be a
// valid uncompressed P-256 point; anything else is rejected outright, the
// same hard failure a browser push manager produces for a bad VAPID key.
func (k *Kiosk) Create(ctx context.Context, applicationKey []byte) (*pushsync.Subscription, error) {
	if _, err := ecdh.P256().NewPublicKey(applicationKey); err != nil {
		return nil, fmt.Errorf("application key rejected: %w", err)
	}

	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating subscription keys: %w", err)
	}
	auth := make([]byte, 16)
	if _, err := rand.Read(auth); err != nil {
		return nil, fmt.Errorf("generating auth secret: %w", err)
	}

	stored := storedSubscription{
		Endpoint:   k.gateway + "/push/" + k.deviceID,
		P256dh:     pushsync.EncodeApplicationKey(priv.PublicKey().Bytes()),
		Auth:       pushsync.EncodeApplicationKey(auth),
		PrivateKey: priv.Bytes(),
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	err = k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(deviceBucket).Put(keySubscription, raw)
	})
	if err != nil {
		return nil, fmt.Errorf("persisting subscription: %w", err)
	}

	k.mu.Lock()
	k.sub = &pushsync.Subscription{
		Endpoint: stored.Endpoint,
		Keys:     pushsync.SubscriptionKeys{P256dh: stored.P256dh, Auth: stored.Auth},
	}
	cp := *k.sub
	k.mu.Unlock()
	return &cp, nil
}

func (k *Kiosk) Destroy(ctx context.Context) error {
	err := k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(deviceBucket).Delete(keySubscription)
	})
	if err != nil {
		return fmt.Errorf("removing subscription: %w", err)
	}
	k.mu.Lock()
	k.sub = nil
	k.mu.Unlock()
	return nil
}

// SubscribedHint and SetSubscribedHint implement pushsync.FlagCache on the
// same bolt file, so the flag survives restarts alongside the subscription.
func (k *Kiosk) SubscribedHint() bool {
	var hint bool
	k.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(deviceBucket).Get(keySubscribed)
		hint = len(v) == 1 && v[0] == 1
		return nil
	})
	return hint
}

func (k *Kiosk) SetSubscribedHint(v bool) {
	val := []byte{0}
	if v {
		val = []byte{1}
	}
	k.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(deviceBucket).Put(keySubscribed, val)
	})
}
