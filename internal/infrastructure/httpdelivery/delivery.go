package httpdelivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andrsolo/Request-Relay/internal/entity"
	"github.com/andrsolo/Request-Relay/internal/infrastructure"
	"github.com/andrsolo/Request-Relay/pkg/types/errs"
)

const (
	_defaultTimeout = 30 * time.Second

	// Responses are kept for the audit trail, not replayed to anyone, so a
	// bounded prefix is enough.
	_maxResponseBody = 1 << 20
)

// Hop-by-hop headers must not be forwarded per RFC 9110 section 7.6.1.
var hopByHopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
}

// Delivery replays stored requests against their configured origin over
// plain HTTP.
type Delivery struct {
	client *http.Client
}

func New(opts ...Option) *Delivery {
	d := &Delivery{
		client: &http.Client{
			// Redirects are the origin's business: record what it answered.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Delivery) Deliver(
	ctx context.Context,
	req *entity.Request,
	origin *entity.Origin,
) (*infrastructure.DeliveryResult, error) {
	timeout := origin.Timeout
	if timeout <= 0 {
		timeout = _defaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	target := strings.TrimRight(origin.OriginURI, "/") + req.URI

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("Delivery - Deliver - http.NewRequestWithContext: %w", err)
	}

	for _, h := range req.Headers {
		if _, skip := hopByHopHeaders[http.CanonicalHeaderKey(h.Name)]; skip {
			continue
		}
		if strings.EqualFold(h.Name, "Host") {
			continue
		}
		httpReq.Header.Add(h.Name, h.Value)
	}
	// Preserve the hostname the client addressed.
	httpReq.Host = req.Hostname

	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Delivery - Deliver - d.client.Do: %w: %w", errs.ErrOriginUnreachable, err)
	}
	defer resp.Body.Close()

	// A body that breaks off mid-read does not unmake the answer: the origin
	// was reached and sent a status within the deadline, so record that
	// status with whatever prefix of the body arrived.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, _maxResponseBody))

	return &infrastructure.DeliveryResult{
		Status: resp.StatusCode,
		Body:   body,
	}, nil
}
