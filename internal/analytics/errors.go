package analytics

import (
	"errors"
	"fmt"
)

// ErrInvalidScope marks a missing or malformed date range. Detected before any
// query executes; callers map it to a client error.
var ErrInvalidScope = errors.New("invalid aggregation scope")

// ErrUpstreamQuery marks a sales-fact store failure. Never retried here; the
// underlying cause stays attached for logging.
var ErrUpstreamQuery = errors.New("sales-fact query failed")

func upstreamErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstreamQuery, op, err)
}
