package product

import (
	"context"

	"stocktrail/internal/core/id"
)

// Repository defines persistence for products.
// Stock checks and mutations must run inside the caller's transaction; the
// ForUpdate variants take a row lock so a check-then-act never races.
type Repository interface {
	// GetByID fetches a product; apperror.NotFound when absent.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetForUpdate fetches a product with a row lock.
	GetForUpdate(ctx context.Context, productID id.ID) (*Product, error)

	// Create inserts a new product row.
	Create(ctx context.Context, p *Product) error

	// Update persists changes with optimistic locking
	// (apperror.ConcurrentModification on version mismatch).
	Update(ctx context.Context, p *Product) error

	// SumStockAtLocation returns the aggregate stock at a location for a
	// stock group (same SKU, or same kanban + description when SKU is
	// absent). Recomputed, never cached.
	SumStockAtLocation(ctx context.Context, locationID id.ID, group StockGroup) (int, error)

	// ListByLocation returns products currently at a location.
	ListByLocation(ctx context.Context, locationID id.ID) ([]Product, error)
}
