package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/GenturixHub/genturix-push/internal/pushsync"

	"github.com/stretchr/testify/require"
)

func TestStatusHandlerReportsSnapshot(t *testing.T) {
	h := statusHandler(func() pushsync.Snapshot {
		return pushsync.Snapshot{
			Supported:  true,
			Subscribed: true,
			Phase:      pushsync.PhaseSynced,
		}
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Supported  bool   `json:"supported"`
		Subscribed bool   `json:"subscribed"`
		Loading    bool   `json:"loading"`
		Phase      string `json:"phase"`
		Error      string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, resp.Supported)
	require.True(t, resp.Subscribed)
	require.False(t, resp.Loading)
	require.Equal(t, pushsync.PhaseSynced.String(), resp.Phase)
	require.Empty(t, resp.Error)
}

func TestStatusHandlerIncludesError(t *testing.T) {
	h := statusHandler(func() pushsync.Snapshot {
		return pushsync.Snapshot{
			Supported: true,
			Phase:     pushsync.PhaseSyncFailed,
			Err:       errors.New("registry unreachable"),
		}
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, pushsync.PhaseSyncFailed.String(), resp["phase"])
	require.Equal(t, "registry unreachable", resp["error"])
}

func TestStatusHandlerRejectsWrites(t *testing.T) {
	h := statusHandler(func() pushsync.Snapshot { return pushsync.Snapshot{} })

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/status", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
