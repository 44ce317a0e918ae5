package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GenturixHub/genturix-push/internal/pushsync"
)

func TestClientPublicKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/push/key", r.URL.Path)
		assert.Equal(t, "tok-123", r.Header.Get("X-Device-Token"))
		json.NewEncoder(w).Encode(map[string]string{"publicKey": "BEl62iUYgUivxIkv69yViEuiBIa40HI"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	key, err := c.PublicKey(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BEl62iUYgUivxIkv69yViEuiBIa40HI", key)
}

func TestClientRegisterPayloadShape(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/push/subscriptions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	err := c.Register(context.Background(), pushsync.Subscription{
		Endpoint: "https://push.example/abc",
		Keys:     pushsync.SubscriptionKeys{P256dh: "p-material", Auth: "a-material"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://push.example/abc", got["endpoint"])
	keys, ok := got["keys"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "p-material", keys["p256dh"])
	assert.Equal(t, "a-material", keys["auth"])
	v, present := got["expirationTime"]
	assert.True(t, present, "expirationTime must be serialized even when absent")
	assert.Nil(t, v)
}

func TestClientStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"is_subscribed": true, "subscription_count": 2})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, status.Subscribed)
	assert.Equal(t, 2, status.Count)
}

func TestClientUnregisterAll(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, method = r.URL.Path, r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	require.NoError(t, c.UnregisterAll(context.Background()))
	assert.Equal(t, "/api/push/subscriptions/all", path)
	assert.Equal(t, http.MethodDelete, method)
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown device", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "bad-token")
	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown device")
}
