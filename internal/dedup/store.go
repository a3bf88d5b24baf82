// Package dedup tracks webhook event ids so repeated deliveries of the same
// event produce at most one ticket.
package dedup

import (
	"context"
)

// Store reserves event ids for a bounded window.
type Store interface {
	// Reserve claims eventID. It returns false when the id is already claimed.
	Reserve(ctx context.Context, eventID string) (bool, error)
	// Release drops a claim so a later delivery can be processed.
	Release(ctx context.Context, eventID string) error
}
