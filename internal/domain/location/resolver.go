package location

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
	"stocktrail/pkg/logger"
)

// maxCodeAttempts bounds the code-suffix retry loop. Code collisions are
// rare, so hitting this limit means something is badly wrong and the
// resolver fails instead of spinning.
const maxCodeAttempts = 100

// Resolver resolves an area name to a usable location id, creating the
// shared "General" location for the area on first use.
//
// Concurrency is handled at the data layer: the (area, name) uniqueness
// constraint plus a conflict-tolerant insert absorb creation races, so
// every concurrent caller receives the same id and no error. An in-process
// lock would not span processes and is deliberately not used.
type Resolver struct {
	repo Repository
}

// NewResolver creates a new area resolver.
func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// ResolveOrCreateGeneral returns the id of the General location for area,
// inserting it if it does not exist yet.
func (r *Resolver) ResolveOrCreateGeneral(ctx context.Context, area string) (id.ID, error) {
	area = strings.TrimSpace(area)
	if area == "" {
		return id.Nil(), apperror.NewValidation("area is required").WithDetail("field", "area")
	}

	base := DeriveGeneralCode(area)

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := base
		if attempt > 0 {
			code = fmt.Sprintf("%s-%d", base, attempt)
		}

		loc := NewLocation(area, GeneralName, code)
		inserted, err := r.repo.InsertIfAbsent(ctx, loc)
		if errors.Is(err, ErrCodeTaken) {
			// Unrelated location already owns this code; try the next suffix.
			continue
		}
		if err != nil {
			return id.Nil(), err
		}
		if inserted {
			logger.Info(ctx, "created general location",
				"area", area,
				"location_id", loc.ID,
				"code", code,
			)
			return loc.ID, nil
		}

		// Insert was ignored: a (area, General) row already exists.
		existing, err := r.repo.GetByAreaAndName(ctx, area, GeneralName)
		if err == nil {
			return existing.ID, nil
		}
		if !apperror.IsNotFound(err) {
			return id.Nil(), err
		}
		// The concurrent winner rolled back between our insert and lookup.
		// Retry the insert.
	}

	return id.Nil(), apperror.NewLocationResolutionFailed(area, nil)
}
