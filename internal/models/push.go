package models

import (
	"database/sql"
	"time"
)

// PushSubscription is the registry's record of one delivery channel. Exactly
// one of UserID/DeviceID is set, depending on who registered it: a logged-in
// user's browser or a token-authenticated appliance.
type PushSubscription struct {
	ID             int           `json:"id"`
	UserID         sql.NullInt64 `json:"user_id"`
	DeviceID       sql.NullInt64 `json:"device_id"`
	Endpoint       string        `json:"endpoint"`
	P256dh         string        `json:"keys_p256dh"` // Mapped from keys.p256dh
	Auth           string        `json:"keys_auth"`   // Mapped from keys.auth
	ExpirationTime *int64        `json:"expiration_time"`
	CreatedAt      time.Time     `json:"created_at"`
}
