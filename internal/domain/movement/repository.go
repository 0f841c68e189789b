package movement

import (
	"context"
	"time"

	"stocktrail/internal/core/id"
)

// Repository defines persistence for movement logs.
type Repository interface {
	// Create inserts a log row.
	Create(ctx context.Context, m *MovementLog) error

	// Update persists the single permitted state mutation
	// (confirmation, expiry or cancellation).
	Update(ctx context.Context, m *MovementLog) error

	// GetByID fetches a log; apperror.NotFound when absent.
	GetByID(ctx context.Context, logID id.ID) (*MovementLog, error)

	// GetByToken fetches a pending-confirmable log by public token.
	GetByToken(ctx context.Context, token string) (*MovementLog, error)

	// GetByTokenForUpdate fetches by token with a row lock so confirm,
	// cancel and the expiry sweep cannot race each other.
	GetByTokenForUpdate(ctx context.Context, token string) (*MovementLog, error)

	// List returns logs matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]MovementLog, error)

	// ListExpiredPending returns pending logs whose token expiry has
	// passed, locked with SKIP LOCKED for concurrent sweeps.
	ListExpiredPending(ctx context.Context, now time.Time) ([]MovementLog, error)
}

// ListFilter narrows movement history queries.
type ListFilter struct {
	ProductID  *id.ID
	LocationID *id.ID
	Status     *Status
	DateFrom   *time.Time
	DateTo     *time.Time
	Limit      int
	Offset     int
}

// DefaultListFilter returns the standard page size.
func DefaultListFilter() ListFilter {
	return ListFilter{Limit: 50}
}
