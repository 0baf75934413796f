package feed

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUpstreamUnavailable marks network-level or HTTP 5xx failures.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrRateLimited marks an explicit throttling signal from the provider.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrMalformedResponse marks payloads that cannot be parsed into the
	// data model.
	ErrMalformedResponse = errors.New("malformed upstream response")
	// ErrNotFound marks a token identifier with no pair data.
	ErrNotFound = errors.New("no pair data for token")
)

func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w (status %d)", ErrRateLimited, status)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w (status %d)", ErrNotFound, status)
	default:
		detail := strings.TrimSpace(string(body))
		if len(detail) > 200 {
			detail = detail[:200]
		}
		if detail != "" {
			return fmt.Errorf("%w (status %d): %s", ErrUpstreamUnavailable, status, detail)
		}
		return fmt.Errorf("%w (status %d)", ErrUpstreamUnavailable, status)
	}
}
