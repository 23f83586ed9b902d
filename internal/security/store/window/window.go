// Package window counts failed logins per address over a sliding time
// window. Counts are inclusive of both bounds.
package window

import (
	"context"
	"time"
)

// FailureWindow records and counts failures per IP.
type FailureWindow interface {
	Record(ctx context.Context, ip string, at time.Time) error
	Count(ctx context.Context, ip string, from, to time.Time) (int, error)
}

// DefaultRetention bounds how long a failure is kept after it is recorded.
const DefaultRetention = 24 * time.Hour
