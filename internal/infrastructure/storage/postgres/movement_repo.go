package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/movement"
)

const movementLogsTable = "movement_logs"

var movementColumns = []string{
	"id", "product_id", "from_location_id", "to_location_id",
	"from_person_id", "to_person_id", "from_area", "to_area",
	"from_stock_level", "quantity_moved", "to_stock_level", "moved_by",
	"public_token", "token_expires_at", "confirmed_by", "confirmed_at",
	"status", "notes", "created_at",
}

// MovementRepo implements movement.Repository.
type MovementRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewMovementRepo creates a movement log repository.
func NewMovementRepo(txManager *TxManager) *MovementRepo {
	return &MovementRepo{
		builder:   Builder(),
		txManager: txManager,
	}
}

var _ movement.Repository = (*MovementRepo)(nil)

// Create inserts a movement log.
func (r *MovementRepo) Create(ctx context.Context, m *movement.MovementLog) error {
	q := r.builder.Insert(movementLogsTable).
		Columns(movementColumns...).
		Values(
			m.ID, m.ProductID, m.FromLocationID, m.ToLocationID,
			m.FromPersonID, m.ToPersonID, m.FromArea, m.ToArea,
			m.FromStockLevel, m.QuantityMoved, m.ToStockLevel, m.MovedBy,
			m.PublicToken, m.TokenExpiresAt, m.ConfirmedBy, m.ConfirmedAt,
			m.Status, m.Notes, m.CreatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movement log: %w", err)
	}
	return nil
}

// Update persists the fields that change after creation.
func (r *MovementRepo) Update(ctx context.Context, m *movement.MovementLog) error {
	q := r.builder.Update(movementLogsTable).
		Set("from_stock_level", m.FromStockLevel).
		Set("to_stock_level", m.ToStockLevel).
		Set("confirmed_by", m.ConfirmedBy).
		Set("confirmed_at", m.ConfirmedAt).
		Set("status", m.Status).
		Set("notes", m.Notes).
		Where(squirrel.Eq{"id": m.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update movement log: %w", err)
	}
	return nil
}

// GetByID fetches one movement log.
func (r *MovementRepo) GetByID(ctx context.Context, logID id.ID) (*movement.MovementLog, error) {
	return r.getWhere(ctx, squirrel.Eq{"id": logID}, logID.String(), false)
}

// GetByToken fetches a log by public token.
func (r *MovementRepo) GetByToken(ctx context.Context, token string) (*movement.MovementLog, error) {
	return r.getWhere(ctx, squirrel.Eq{"public_token": token}, token, false)
}

// GetByTokenForUpdate fetches by token and locks the row.
func (r *MovementRepo) GetByTokenForUpdate(ctx context.Context, token string) (*movement.MovementLog, error) {
	return r.getWhere(ctx, squirrel.Eq{"public_token": token}, token, true)
}

func (r *MovementRepo) getWhere(ctx context.Context, where squirrel.Eq, key string, forUpdate bool) (*movement.MovementLog, error) {
	q := r.builder.Select(movementColumns...).
		From(movementLogsTable).
		Where(where)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var m movement.MovementLog
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &m, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "movement", key)
	}
	return &m, nil
}

// listQuery builds the filtered select for List.
func (r *MovementRepo) listQuery(filter movement.ListFilter) squirrel.SelectBuilder {
	q := r.builder.Select(movementColumns...).
		From(movementLogsTable).
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.LocationID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"from_location_id": *filter.LocationID},
			squirrel.Eq{"to_location_id": *filter.LocationID},
		})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.DateFrom != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *filter.DateFrom})
	}
	if filter.DateTo != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *filter.DateTo})
	}
	return q
}

// List returns logs matching the filter, newest first.
func (r *MovementRepo) List(ctx context.Context, filter movement.ListFilter) ([]movement.MovementLog, error) {
	sql, args, err := r.listQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var logs []movement.MovementLog
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &logs, sql, args...); err != nil {
		return nil, fmt.Errorf("list movement logs: %w", err)
	}
	return logs, nil
}

// ListExpiredPending returns pending logs past their token expiry. Rows
// held by a concurrent confirmation are skipped rather than waited on.
func (r *MovementRepo) ListExpiredPending(ctx context.Context, now time.Time) ([]movement.MovementLog, error) {
	q := r.builder.Select(movementColumns...).
		From(movementLogsTable).
		Where(squirrel.Eq{"status": movement.StatusPending}).
		Where(squirrel.Lt{"token_expires_at": now}).
		Suffix("FOR UPDATE SKIP LOCKED")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var logs []movement.MovementLog
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &logs, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired movements: %w", err)
	}
	return logs, nil
}
