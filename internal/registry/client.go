// Package registry is the HTTP client for the subscription registry API.
// It implements pushsync.Registry; the engine owns timeouts and retries, so
// requests here carry only the caller's context.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/GenturixHub/genturix-push/internal/pushsync"
)

// Client talks to the registry on behalf of one device, authenticated by its
// device token.
type Client struct {
	base  string
	token string
	http  *http.Client
}

func NewClient(baseURL, deviceToken string) *Client {
	return &Client{
		base:  strings.TrimRight(baseURL, "/"),
		token: deviceToken,
		http:  &http.Client{},
	}
}

type keysPayload struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type subscriptionPayload struct {
	Endpoint       string      `json:"endpoint"`
	Keys           keysPayload `json:"keys"`
	ExpirationTime *int64      `json:"expirationTime"`
}

func payloadFor(sub pushsync.Subscription) subscriptionPayload {
	return subscriptionPayload{
		Endpoint:       sub.Endpoint,
		Keys:           keysPayload{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
		ExpirationTime: sub.ExpirationTime,
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Device-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: %s: %s", method, path, resp.Status, strings.TrimSpace(string(msg)))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s response: %w", path, err)
		}
	}
	return nil
}

func (c *Client) PublicKey(ctx context.Context) (string, error) {
	var resp struct {
		PublicKey string `json:"publicKey"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/push/key", nil, &resp); err != nil {
		return "", err
	}
	return resp.PublicKey, nil
}

func (c *Client) Register(ctx context.Context, sub pushsync.Subscription) error {
	return c.do(ctx, http.MethodPost, "/api/push/subscriptions", payloadFor(sub), nil)
}

func (c *Client) Unregister(ctx context.Context, sub pushsync.Subscription) error {
	return c.do(ctx, http.MethodDelete, "/api/push/subscriptions", payloadFor(sub), nil)
}

func (c *Client) Status(ctx context.Context) (pushsync.RemoteStatus, error) {
	var status pushsync.RemoteStatus
	err := c.do(ctx, http.MethodGet, "/api/push/status", nil, &status)
	return status, err
}

func (c *Client) UnregisterAll(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/push/subscriptions/all", nil, nil)
}
