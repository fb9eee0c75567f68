// Package ratelimit implements a sliding-window admission controller backed
// by a durable event log.
package ratelimit

import (
	"context"
	"time"
)

// EventLog is the append-only store of admitted requests per identifier.
type EventLog interface {
	// Count returns the number of events for identifier strictly after since.
	Count(ctx context.Context, identifier string, since time.Time) (int, error)
	// Oldest returns the earliest event for identifier strictly after since.
	// ok is false when there is none.
	Oldest(ctx context.Context, identifier string, since time.Time) (oldest time.Time, ok bool, err error)
	// Record appends an event at the given time.
	Record(ctx context.Context, identifier string, at time.Time) error
	// Prune deletes events before the given time. An empty identifier prunes
	// every identifier.
	Prune(ctx context.Context, identifier string, before time.Time) error
}
