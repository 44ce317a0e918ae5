package main

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/GenturixHub/genturix-push/internal/pushsync"
)

// statusHandler exposes the engine snapshot for local health checks, so an
// operator on the device can see where the subscription lifecycle stands
// without reading logs.
func statusHandler(status func() pushsync.Snapshot) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		s := status()
		resp := map[string]any{
			"supported":  s.Supported,
			"subscribed": s.Subscribed,
			"loading":    s.Loading,
			"phase":      s.Phase.String(),
		}
		if s.Err != nil {
			resp["error"] = s.Err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

// serveStatus runs the local status endpoint. Loopback only by default;
// the listener failing is not fatal to the agent itself.
func serveStatus(addr string, status func() pushsync.Snapshot) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", statusHandler(status))
	srv := &http.Server{Addr: addr, Handler: mux}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("Status endpoint stopped: %v", err)
	}
}
