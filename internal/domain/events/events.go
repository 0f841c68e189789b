// Package events defines the outbound ports for stock-affecting commits:
// structured domain events for the push-notification layer and cache
// invalidation by logical key. The core emits; it does not manage
// subscribers or the cache itself.
package events

import (
	"context"

	"stocktrail/internal/core/id"
)

// Event types emitted on stock-affecting commits.
const (
	TypeProductUpdated = "product-updated"
	TypeProductMoved   = "product-moved"
	TypeStockChanged   = "stock-changed"
	TypeBulkUpdated    = "bulk-updated"
	TypeBulkReceived   = "bulk-received"
)

// Logical cache keys invalidated after stock-affecting commits.
const (
	CacheKeyInventory      = "/api/inventory"
	CacheKeyInventoryStats = "/api/inventory/stats"
	CacheKeyLocations      = "/api/locations"
)

// Event is a structured domain event for downstream fan-out.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	Type          string
	Payload       any
}

// Publisher records events for delivery to the notification layer.
// Implementations must be transactional with the emitting workflow
// (transactional outbox) so events are never published for rolled-back
// mutations.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Invalidator signals invalidation of listing caches by logical key.
// Called after commit, fire-and-forget: failures are logged, never
// propagated to the caller.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...string)
}
