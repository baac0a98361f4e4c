// Package httpx provides the outbound HTTP clients shared by the catalog
// client, resolver, and fetcher. Clients are cheap per-component values;
// nothing is shared across concurrent retrievals beyond Go's own transport
// connection pooling.
package httpx

import (
	"net/http"
	"time"
)

// UserAgent is sent on every outbound request.
const UserAgent = "Tunefetch/1.0"

// NewClient returns a client whose requests are bounded by the given total
// timeout. A zero timeout means the caller bounds requests via context.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// NewNoRedirectClient returns a client that surfaces redirect responses to
// the caller instead of following them. Used by the legacy stream strategy,
// which reads the Location header as the resolved URL.
func NewNoRedirectClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
