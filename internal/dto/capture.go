package dto

import "github.com/andrsolo/Request-Relay/internal/entity"

// Capture is a raw inbound HTTP request as handed over by an ingest
// boundary (REST catch-all or Kafka topic), before normalization.
type Capture struct {
	Method   string          `json:"method"`
	Protocol string          `json:"protocol"`
	Hostname string          `json:"hostname"`
	URI      string          `json:"uri"`
	Headers  []entity.Header `json:"headers"`
	Body     []byte          `json:"body,omitempty"`
}

// RequestEdit carries the operator-editable fields of a request. Applying
// an edit never mutates the stored request; it produces a new lineage row.
type RequestEdit struct {
	Method  string          `json:"method"`
	URI     string          `json:"uri"`
	Headers []entity.Header `json:"headers"`
	Body    []byte          `json:"body,omitempty"`
}
