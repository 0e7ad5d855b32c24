package entity

import (
	"time"

	"github.com/google/uuid"
)

// Alert is an operator notification raised when a request keeps failing
// past its origin's alert threshold, or panics.
type Alert struct {
	RequestID uuid.UUID `json:"request_id"`
	Hostname  string    `json:"hostname"`
	State     State     `json:"state"`
	Attempts  int       `json:"attempts"`
	RaisedAt  time.Time `json:"raised_at"`
}
