package entity

import (
	"time"

	"github.com/google/uuid"
)

// Origin is a configured downstream destination. Domain uniquely identifies
// the inbound hostname this origin serves.
type Origin struct {
	ID        uuid.UUID `json:"id"`
	Domain    string    `json:"domain"`
	OriginURI string    `json:"origin_uri"`

	// Timeout bounds a single delivery attempt.
	Timeout time.Duration `json:"timeout"`

	// AlertThreshold, when set, triggers an alert event once a request has
	// accumulated that many failed attempts.
	AlertThreshold *int `json:"alert_threshold,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
