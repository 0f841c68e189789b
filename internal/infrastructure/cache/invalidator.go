// Package cache provides read-cache invalidation backed by Redis. The
// engine never serves stale stock figures from storage, so the cache
// layer only has to forget, not to refresh.
package cache

import (
	"context"

	"stocktrail/internal/domain/events"
)

// Noop discards invalidations. Used when no Redis address is configured
// and in tests.
type Noop struct{}

var _ events.Invalidator = Noop{}

func (Noop) Invalidate(ctx context.Context, keys ...string) {}
