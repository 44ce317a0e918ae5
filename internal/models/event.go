package models

import "time"

// SecurityEvent is one entry in the live security feed: sensor trips, panic
// buttons, access alerts, patrol check-ins.
type SecurityEvent struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Source    string    `json:"source"`
	Level     string    `json:"level"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	UnitID    int       `json:"unit_id,omitempty"`
}
