package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/location"
)

const locationsTable = "locations"

const (
	locationAreaNameConstraint = "locations_area_name_key"
	locationCodeConstraint     = "locations_code_key"
)

var locationColumns = []string{"id", "area", "name", "code", "is_active", "created_at"}

// LocationRepo implements location.Repository.
type LocationRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewLocationRepo creates a location repository.
func NewLocationRepo(txManager *TxManager) *LocationRepo {
	return &LocationRepo{
		builder:   Builder(),
		txManager: txManager,
	}
}

var _ location.Repository = (*LocationRepo)(nil)

// InsertIfAbsent inserts loc unless its (area, name) pair already exists.
// The conflict target is the natural key, so a code collision with an
// unrelated row still raises the unique violation the resolver retries on.
func (r *LocationRepo) InsertIfAbsent(ctx context.Context, loc *location.Location) (bool, error) {
	q := r.builder.Insert(locationsTable).
		Columns(locationColumns...).
		Values(loc.ID, loc.Area, loc.Name, loc.Code, loc.IsActive, loc.CreatedAt).
		Suffix("ON CONFLICT (area, name) DO NOTHING")

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build insert: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if IsUniqueViolation(err, locationCodeConstraint) {
			return false, location.ErrCodeTaken
		}
		return false, fmt.Errorf("insert location: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetByAreaAndName fetches one location by its natural key.
func (r *LocationRepo) GetByAreaAndName(ctx context.Context, area, name string) (*location.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(squirrel.Eq{"area": area, "name": name})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var loc location.Location
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &loc, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "location", area+"/"+name)
	}
	return &loc, nil
}

// GetByID fetches a location by id.
func (r *LocationRepo) GetByID(ctx context.Context, locationID id.ID) (*location.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(squirrel.Eq{"id": locationID})

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var loc location.Location
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &loc, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "location", locationID.String())
	}
	return &loc, nil
}

// List returns active locations ordered by area then name.
func (r *LocationRepo) List(ctx context.Context) ([]location.Location, error) {
	q := r.builder.Select(locationColumns...).
		From(locationsTable).
		Where(squirrel.Eq{"is_active": true}).
		OrderBy("area", "name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var locs []location.Location
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &locs, sql, args...); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}
