package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Device is a registered appliance (guard-station kiosk, lobby panel) that
// authenticates to the registry with its token instead of a user session.
type Device struct {
	ID        int       `json:"id"`
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	CreatedBy int       `json:"created_by"`
}

// Unit is a condominium unit; security events can be scoped to one and
// pushed only to its members.
type Unit struct {
	ID        int       `json:"id"`
	Label     string    `json:"label"`
	Block     string    `json:"block"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateToken creates a random device token
func GenerateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
