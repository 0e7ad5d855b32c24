package httpdelivery

import "net/http"

type Option func(*Delivery)

// Transport overrides the underlying round tripper, mainly for tests.
func Transport(rt http.RoundTripper) Option {
	return func(d *Delivery) {
		d.client.Transport = rt
	}
}
