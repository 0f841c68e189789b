package location

import (
	"context"
	"errors"

	"stocktrail/internal/core/id"
)

// ErrCodeTaken is returned by InsertIfAbsent when the derived code collides
// with an unrelated location (different area, same code). The resolver
// retries with a numeric suffix; any other constraint violation propagates.
var ErrCodeTaken = errors.New("location code already taken")

// Repository defines persistence for locations.
type Repository interface {
	// InsertIfAbsent atomically inserts loc unless an (area, name) row
	// already exists, in which case it reports inserted=false with no
	// error. A collision on the code unique index returns ErrCodeTaken.
	InsertIfAbsent(ctx context.Context, loc *Location) (inserted bool, err error)

	// GetByAreaAndName fetches one location; apperror.NotFound when absent.
	GetByAreaAndName(ctx context.Context, area, name string) (*Location, error)

	// GetByID fetches a location by id; apperror.NotFound when absent.
	GetByID(ctx context.Context, locationID id.ID) (*Location, error)

	// List returns active locations ordered by area, name.
	List(ctx context.Context) ([]Location, error)
}
