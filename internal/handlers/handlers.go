package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/GenturixHub/genturix-push/internal/store"
)

type Handler struct {
	Events store.EventStore
	Admin  store.AdminStore
}

func NewHandler(events store.EventStore, admin store.AdminStore) *Handler {
	return &Handler{
		Events: events,
		Admin:  admin,
	}
}

// EventsHandler returns the current security event feed
func (h *Handler) EventsHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.Events.GetEvents(r.Context())
	if err != nil {
		log.Println("Failed to get events:", err)
		http.Error(w, "Failed to get events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"events": events, "count": len(events)})
}

// SSEHandler streams new security events as they are published
func (h *Handler) SSEHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	// Subscribe to Redis channel
	pubsub := h.Events.Subscribe(r.Context())
	defer pubsub.Close()

	ch := pubsub.Channel()

	fmt.Fprintf(w, "data: %s\n\n", "connected")
	w.(http.Flusher).Flush()

	for {
		select {
		case msg := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", msg.Payload)
			w.(http.Flusher).Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// WebhookHandler ingests security events from sensors, panic buttons and
// monitoring systems. Payloads vary by vendor, so field names are probed.
func (h *Handler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if !validateSharedSecret(r) {
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	// Try JSON first
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		// Fallback: form/query
		if err := r.ParseForm(); err == nil && len(r.Form) > 0 {
			payload = make(map[string]any)
			for k, v := range r.Form {
				if len(v) > 0 {
					payload[k] = v[0]
				}
			}
		} else {
			payload = map[string]any{"raw": "unparseable payload"}
		}
	}

	source := getString(payload["source"])
	if source == "" {
		source = r.URL.Query().Get("source")
	}
	if source == "" {
		source = "unknown"
	}

	level := getString(payload["level"])
	if level == "" {
		level = getString(payload["severity"])
	}
	if level == "" {
		level = "info"
	}

	title := getString(payload["title"])
	if title == "" {
		title = getString(payload["event"])
	}
	if title == "" {
		title = "Security event"
	}

	var message string
	for _, key := range []string{"message", "description", "detail"} {
		if v, ok := payload[key]; ok {
			message = getString(v)
			if message != "" {
				break
			}
		}
	}
	if message == "" {
		buf, _ := json.MarshalIndent(payload, "", "  ")
		message = string(buf)
	}

	unitID := 0
	if v, ok := payload["unit_id"]; ok {
		if f, ok := v.(float64); ok {
			unitID = int(f)
		}
	}

	e, err := h.Events.AddEvent(r.Context(), source, level, title, message, unitID)
	if err != nil {
		log.Println("Failed to add event:", err)
		http.Error(w, "Failed to add event", http.StatusInternalServerError)
		return
	}
	eventsIngested.Inc()

	resp := map[string]any{
		"status":     "ok",
		"id":         e.ID,
		"created_at": e.CreatedAt.Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// SearchHandler filters the event feed by free text, level and source
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	level := r.URL.Query().Get("level")
	source := r.URL.Query().Get("source")

	events, err := h.Events.SearchEvents(r.Context(), query, level, source)
	if err != nil {
		log.Println("Search error:", err)
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// PurgeEventsHandler wipes the event feed (admin only, wired behind middleware)
func (h *Handler) PurgeEventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.Events.PurgeAllEvents(r.Context()); err != nil {
		log.Printf("Failed to purge events: %v", err)
		http.Error(w, "Failed to purge events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"success": true})
}

func getString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case float64:
		// json numbers
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
