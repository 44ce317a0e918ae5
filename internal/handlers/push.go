package handlers

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"

	"github.com/GenturixHub/genturix-push/internal/models"

	"github.com/SherClockHolmes/webpush-go"
)

var (
	vapidPrivateKey string
	vapidPublicKey  string
	vapidSubscriber string
)

func init() {
	// Check for VAPID keys in env, or generate them
	vapidPrivateKey = os.Getenv("VAPID_PRIVATE_KEY")
	vapidPublicKey = os.Getenv("VAPID_PUBLIC_KEY")

	if vapidPrivateKey == "" || vapidPublicKey == "" {
		log.Println("VAPID keys not found in environment. Generating new keys...")
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatal("Failed to generate VAPID keys:", err)
		}
		vapidPrivateKey = privateKey
		vapidPublicKey = publicKey
		log.Printf("Generated VAPID Keys:\nVAPID_PRIVATE_KEY=%s\nVAPID_PUBLIC_KEY=%s\n(Add these to your .env file to persist them)", privateKey, publicKey)
	}

	vapidSubscriber = os.Getenv("VAPID_SUBSCRIBER")
	if vapidSubscriber == "" {
		vapidSubscriber = "mailto:admin@genturix.local"
	}
}

// principal is the authenticated party behind a registry request, either
// a logged-in user or a provisioned device presenting its token.
type principal struct {
	UserID   int
	DeviceID int
}

func (p principal) valid() bool { return p.UserID != 0 || p.DeviceID != 0 }

func (h *Handler) resolvePrincipal(r *http.Request) principal {
	if token := r.Header.Get("X-Device-Token"); token != "" {
		device, err := h.Admin.GetDeviceByToken(r.Context(), token)
		if err == nil {
			return principal{DeviceID: device.ID}
		}
		return principal{}
	}

	userID, _, _ := GetCurrentUser(r)
	return principal{UserID: userID}
}

// GetVAPIDKeyHandler returns the public VAPID key
func (h *Handler) GetVAPIDKeyHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"publicKey": vapidPublicKey,
	})
}

// PushSubscriptionsHandler registers or removes a single subscription
// depending on the method.
func (h *Handler) PushSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	p := h.resolvePrincipal(r)
	if !p.valid() {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
		ExpirationTime *int64 `json:"expirationTime"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Endpoint == "" {
		http.Error(w, "Endpoint is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodPost:
		sub := models.PushSubscription{
			Endpoint:       req.Endpoint,
			P256dh:         req.Keys.P256dh,
			Auth:           req.Keys.Auth,
			ExpirationTime: req.ExpirationTime,
		}
		if p.UserID != 0 {
			sub.UserID = sql.NullInt64{Int64: int64(p.UserID), Valid: true}
		} else {
			sub.DeviceID = sql.NullInt64{Int64: int64(p.DeviceID), Valid: true}
		}

		if err := h.Admin.SavePushSubscription(r.Context(), sub); err != nil {
			log.Printf("Failed to save subscription: %v", err)
			http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
			return
		}
	case http.MethodDelete:
		if err := h.Admin.DeletePushSubscription(r.Context(), req.Endpoint); err != nil {
			log.Printf("Failed to delete subscription: %v", err)
			http.Error(w, "Failed to delete subscription", http.StatusInternalServerError)
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// PushStatusHandler reports whether the caller has any registered
// subscriptions, and how many.
func (h *Handler) PushStatusHandler(w http.ResponseWriter, r *http.Request) {
	p := h.resolvePrincipal(r)
	if !p.valid() {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var (
		count int
		err   error
	)
	if p.UserID != 0 {
		count, err = h.Admin.CountPushSubscriptionsForUser(r.Context(), p.UserID)
	} else {
		count, err = h.Admin.CountPushSubscriptionsForDevice(r.Context(), p.DeviceID)
	}
	if err != nil {
		log.Printf("Failed to count subscriptions: %v", err)
		http.Error(w, "Failed to query subscriptions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"is_subscribed":      count > 0,
		"subscription_count": count,
	})
}

// PushUnregisterAllHandler removes every subscription the caller owns.
func (h *Handler) PushUnregisterAllHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := h.resolvePrincipal(r)
	if !p.valid() {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var err error
	if p.UserID != 0 {
		err = h.Admin.DeletePushSubscriptionsForUser(r.Context(), p.UserID)
	} else {
		err = h.Admin.DeletePushSubscriptionsForDevice(r.Context(), p.DeviceID)
	}
	if err != nil {
		log.Printf("Failed to purge subscriptions: %v", err)
		http.Error(w, "Failed to purge subscriptions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

// RunPushWorker consumes the event channel and fans each event out to
// the relevant subscriptions. Blocks until ctx is cancelled.
func (h *Handler) RunPushWorker(ctx context.Context) {
	pubsub := h.Events.Subscribe(ctx)
	defer pubsub.Close()

	log.Println("Push worker started")
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			log.Println("Push worker stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event models.SecurityEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Push worker: bad event payload: %v", err)
				continue
			}
			h.deliverEvent(ctx, event)
		}
	}
}

func (h *Handler) deliverEvent(ctx context.Context, event models.SecurityEvent) {
	var (
		subs []models.PushSubscription
		err  error
	)
	if event.UnitID != 0 {
		subs, err = h.Admin.GetPushSubscriptionsForUnit(ctx, event.UnitID)
	} else {
		subs, err = h.Admin.GetPushSubscriptions(ctx)
	}
	if err != nil {
		log.Printf("Failed to get subscriptions: %v", err)
		return
	}

	payload, err := json.Marshal(map[string]any{
		"title":   event.Title,
		"body":    event.Message,
		"level":   event.Level,
		"source":  event.Source,
		"unit_id": event.UnitID,
	})
	if err != nil {
		log.Printf("Failed to encode push payload: %v", err)
		return
	}

	for _, sub := range subs {
		h.sendPush(ctx, sub, payload)
	}
}

func (h *Handler) sendPush(ctx context.Context, sub models.PushSubscription, payload []byte) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}

	resp, err := webpush.SendNotification(payload, s, &webpush.Options{
		Subscriber:      vapidSubscriber,
		VAPIDPublicKey:  vapidPublicKey,
		VAPIDPrivateKey: vapidPrivateKey,
		TTL:             30,
	})
	if err != nil {
		pushesSent.WithLabelValues("error").Inc()
		log.Printf("Failed to send push to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The push service no longer knows this endpoint. Prune it so the
		// next reconcile on the client side sees a clean slate.
		pushesSent.WithLabelValues("gone").Inc()
		if err := h.Admin.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			log.Printf("Failed to prune dead subscription %s: %v", sub.Endpoint, err)
		} else {
			pushesPruned.Inc()
		}
	case resp.StatusCode >= 400:
		pushesSent.WithLabelValues("rejected").Inc()
		log.Printf("Push service rejected %s: %s", sub.Endpoint, resp.Status)
	default:
		pushesSent.WithLabelValues("ok").Inc()
	}
}
