package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/GenturixHub/genturix-push/internal/models"
	"github.com/GenturixHub/genturix-push/internal/store"

	"github.com/stretchr/testify/require"
)

// fakeAdmin implements just enough of store.AdminStore for the registry
// endpoints. Unimplemented methods panic via the embedded nil interface.
type fakeAdmin struct {
	store.AdminStore

	subs        map[string]models.PushSubscription
	devices     map[string]models.Device
	users       map[int]models.User
	unitMembers map[int][]models.User
	passwords   map[int]string
}

func newFakeAdmin() *fakeAdmin {
	return &fakeAdmin{
		subs:        make(map[string]models.PushSubscription),
		devices:     make(map[string]models.Device),
		users:       make(map[int]models.User),
		unitMembers: make(map[int][]models.User),
		passwords:   make(map[int]string),
	}
}

func (f *fakeAdmin) GetDeviceByToken(_ context.Context, token string) (models.Device, error) {
	d, ok := f.devices[token]
	if !ok {
		return models.Device{}, errors.New("device not found")
	}
	return d, nil
}

func (f *fakeAdmin) SavePushSubscription(_ context.Context, sub models.PushSubscription) error {
	f.subs[sub.Endpoint] = sub
	return nil
}

func (f *fakeAdmin) DeletePushSubscription(_ context.Context, endpoint string) error {
	delete(f.subs, endpoint)
	return nil
}

func (f *fakeAdmin) DeletePushSubscriptionsForDevice(_ context.Context, deviceID int) error {
	for ep, sub := range f.subs {
		if sub.DeviceID.Valid && int(sub.DeviceID.Int64) == deviceID {
			delete(f.subs, ep)
		}
	}
	return nil
}

func (f *fakeAdmin) CountPushSubscriptionsForDevice(_ context.Context, deviceID int) (int, error) {
	n := 0
	for _, sub := range f.subs {
		if sub.DeviceID.Valid && int(sub.DeviceID.Int64) == deviceID {
			n++
		}
	}
	return n, nil
}

func newRegistryHandler(t *testing.T) (*Handler, *fakeAdmin) {
	t.Helper()
	admin := newFakeAdmin()
	admin.devices["tok-lobby"] = models.Device{ID: 7, Name: "lobby-panel", Token: "tok-lobby"}
	return &Handler{Admin: admin}, admin
}

func deviceRequest(method, path, body string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	r.Header.Set("X-Device-Token", "tok-lobby")
	return r
}

func TestPushRegisterStatusUnregisterRoundTrip(t *testing.T) {
	h, admin := newRegistryHandler(t)

	body := `{"endpoint":"https://push.example/ep1","keys":{"p256dh":"pk","auth":"ak"},"expirationTime":null}`
	w := httptest.NewRecorder()
	h.PushSubscriptionsHandler(w, deviceRequest(http.MethodPost, "/api/push/subscriptions", body))
	require.Equal(t, http.StatusOK, w.Code)

	saved, ok := admin.subs["https://push.example/ep1"]
	require.True(t, ok)
	require.Equal(t, "pk", saved.P256dh)
	require.Equal(t, "ak", saved.Auth)
	require.True(t, saved.DeviceID.Valid)
	require.EqualValues(t, 7, saved.DeviceID.Int64)
	require.Nil(t, saved.ExpirationTime)

	w = httptest.NewRecorder()
	h.PushStatusHandler(w, deviceRequest(http.MethodGet, "/api/push/status", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var status struct {
		Subscribed bool `json:"is_subscribed"`
		Count      int  `json:"subscription_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	require.True(t, status.Subscribed)
	require.Equal(t, 1, status.Count)

	w = httptest.NewRecorder()
	h.PushUnregisterAllHandler(w, deviceRequest(http.MethodDelete, "/api/push/subscriptions/all", ""))
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, admin.subs)
}

func TestPushRegisterKeepsExpirationTime(t *testing.T) {
	h, admin := newRegistryHandler(t)

	body := `{"endpoint":"https://push.example/ep2","keys":{"p256dh":"pk","auth":"ak"},"expirationTime":1893456000}`
	w := httptest.NewRecorder()
	h.PushSubscriptionsHandler(w, deviceRequest(http.MethodPost, "/api/push/subscriptions", body))
	require.Equal(t, http.StatusOK, w.Code)

	saved := admin.subs["https://push.example/ep2"]
	require.NotNil(t, saved.ExpirationTime)
	require.EqualValues(t, 1893456000, *saved.ExpirationTime)
}

func TestPushDeleteRemovesSingleEndpoint(t *testing.T) {
	h, admin := newRegistryHandler(t)

	for _, ep := range []string{"https://push.example/a", "https://push.example/b"} {
		body := `{"endpoint":"` + ep + `","keys":{"p256dh":"pk","auth":"ak"}}`
		w := httptest.NewRecorder()
		h.PushSubscriptionsHandler(w, deviceRequest(http.MethodPost, "/api/push/subscriptions", body))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	body := `{"endpoint":"https://push.example/a","keys":{"p256dh":"","auth":""}}`
	h.PushSubscriptionsHandler(w, deviceRequest(http.MethodDelete, "/api/push/subscriptions", body))
	require.Equal(t, http.StatusOK, w.Code)

	require.NotContains(t, admin.subs, "https://push.example/a")
	require.Contains(t, admin.subs, "https://push.example/b")
}

func TestPushRejectsUnknownDeviceToken(t *testing.T) {
	h, _ := newRegistryHandler(t)

	r := httptest.NewRequest(http.MethodGet, "/api/push/status", nil)
	r.Header.Set("X-Device-Token", "tok-bogus")
	w := httptest.NewRecorder()
	h.PushStatusHandler(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPushRejectsMissingEndpoint(t *testing.T) {
	h, _ := newRegistryHandler(t)

	w := httptest.NewRecorder()
	body := `{"endpoint":"","keys":{"p256dh":"pk","auth":"ak"}}`
	h.PushSubscriptionsHandler(w, deviceRequest(http.MethodPost, "/api/push/subscriptions", body))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
