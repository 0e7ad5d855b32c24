package entity

import (
	"time"

	"github.com/google/uuid"
)

// Header is a single captured header pair. Requests keep headers as an
// ordered list, not a map, so replayed deliveries preserve the original
// wire order and duplicates.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Request is a captured inbound HTTP request and its delivery lifecycle.
type Request struct {
	ID       uuid.UUID `json:"id"`
	Method   string    `json:"method"`
	Protocol string    `json:"protocol"`
	Hostname string    `json:"hostname"`
	URI      string    `json:"uri"`
	Headers  []Header  `json:"headers"`
	Body     []byte    `json:"body,omitempty"`

	State State `json:"state"`

	// FromRequestID links a retry back to the request it re-executes.
	FromRequestID *uuid.UUID `json:"from_request_id,omitempty"`

	// RetryAt is set only while a future dispatch is pending.
	RetryAt *time.Time `json:"retry_ms_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a new request re-executing r: same payload, fresh id and
// lifecycle, lineage pointer back to r. Attempt history of r stays untouched.
func (r *Request) Clone() *Request {
	headers := make([]Header, len(r.Headers))
	copy(headers, r.Headers)

	body := make([]byte, len(r.Body))
	copy(body, r.Body)

	from := r.ID

	return &Request{
		ID:            uuid.New(),
		Method:        r.Method,
		Protocol:      r.Protocol,
		Hostname:      r.Hostname,
		URI:           r.URI,
		Headers:       headers,
		Body:          body,
		State:         StateCreated,
		FromRequestID: &from,
		CreatedAt:     time.Now(),
	}
}
