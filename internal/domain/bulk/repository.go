package bulk

import (
	"context"
	"time"

	"stocktrail/internal/core/id"
)

// Repository is the persistence contract for bulk movements and their
// items. Get variants that load a movement also load its items.
type Repository interface {
	Create(ctx context.Context, b *BulkMovement) error
	CreateItems(ctx context.Context, items []Item) error
	Update(ctx context.Context, b *BulkMovement) error
	UpdateItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, itemID id.ID) error

	GetByID(ctx context.Context, bulkID id.ID) (*BulkMovement, error)
	GetForUpdate(ctx context.Context, bulkID id.ID) (*BulkMovement, error)
	GetByToken(ctx context.Context, token string) (*BulkMovement, error)
	GetByTokenForUpdate(ctx context.Context, token string) (*BulkMovement, error)

	List(ctx context.Context, filter ListFilter) ([]BulkMovement, error)
	// ListExpired returns open movements whose tokens lapsed before now,
	// skipping rows locked by a concurrent confirmation.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]BulkMovement, error)
}

// ListFilter narrows bulk movement listings.
type ListFilter struct {
	LocationID *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 50}
}
