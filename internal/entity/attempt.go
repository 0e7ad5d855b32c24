package entity

import (
	"time"

	"github.com/google/uuid"
)

// Attempt is one recorded outcome of delivering a request to its origin.
// Attempts are append-only; a nil ResponseStatus means the origin never
// produced a response (timeout or transport failure).
type Attempt struct {
	ID             uuid.UUID `json:"id"`
	RequestID      uuid.UUID `json:"request_id"`
	ResponseStatus *int      `json:"response_status,omitempty"`
	ResponseBody   []byte    `json:"response_body,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
