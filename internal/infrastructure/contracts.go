package infrastructure

import (
	"context"

	"github.com/andrsolo/Request-Relay/internal/entity"
)

// DeliveryResult is a response the origin actually produced, whatever the
// status code. Transport failures and timeouts surface as errors instead.
type DeliveryResult struct {
	Status int
	Body   []byte
}

func (r *DeliveryResult) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

type (
	// Deliverer forwards a stored request to its origin under the origin's
	// deadline.
	Deliverer interface {
		Deliver(ctx context.Context, req *entity.Request, origin *entity.Origin) (*DeliveryResult, error)
	}

	// AlertPublisher pushes operator alerts onto the event bus.
	AlertPublisher interface {
		Publish(ctx context.Context, alert entity.Alert) error
		Close() error
	}
)
