package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/bulk"
)

const (
	bulkMovementsTable = "bulk_movements"
	bulkItemsTable     = "bulk_movement_items"
)

var bulkColumns = []string{
	"id", "from_location_id", "to_location_id", "from_area", "to_area",
	"status", "public_token", "token_expires_at", "created_by",
	"confirmed_by", "confirmed_at", "cancelled_at", "notes",
	"version", "created_at", "updated_at",
}

var bulkItemColumns = []string{
	"id", "bulk_movement_id", "product_id", "quantity_sent",
	"quantity_received", "sku", "product_details", "image_url",
}

// BulkRepo implements bulk.Repository. Items ride the COPY protocol on
// creation since a movement routinely carries dozens of lines.
type BulkRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
	inserter  *BatchInserter
}

// NewBulkRepo creates a bulk movement repository.
func NewBulkRepo(txManager *TxManager) *BulkRepo {
	return &BulkRepo{
		builder:   Builder(),
		txManager: txManager,
		inserter:  NewBatchInserter(txManager),
	}
}

var _ bulk.Repository = (*BulkRepo)(nil)

// Create inserts the movement header.
func (r *BulkRepo) Create(ctx context.Context, b *bulk.BulkMovement) error {
	q := r.builder.Insert(bulkMovementsTable).
		Columns(bulkColumns...).
		Values(
			b.ID, b.FromLocationID, b.ToLocationID, b.FromArea, b.ToArea,
			b.Status, b.PublicToken, b.TokenExpiresAt, b.CreatedBy,
			b.ConfirmedBy, b.ConfirmedAt, b.CancelledAt, b.Notes,
			b.Version, b.CreatedAt, b.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bulk movement: %w", err)
	}
	return nil
}

// CreateItems batch inserts movement lines. Uses COPY inside a
// transaction, which creation always runs in.
func (r *BulkRepo) CreateItems(ctx context.Context, items []bulk.Item) error {
	if len(items) == 0 {
		return nil
	}

	if tx := r.txManager.GetTx(ctx); tx != nil {
		rows := make([][]any, 0, len(items))
		for _, it := range items {
			rows = append(rows, []any{
				it.ID, it.BulkMovementID, it.ProductID, it.QuantitySent,
				it.QuantityReceived, it.SKU, it.ProductDetails, it.ImageURL,
			})
		}
		if _, err := r.inserter.CopyFromSlice(ctx, bulkItemsTable, bulkItemColumns, rows); err != nil {
			return fmt.Errorf("copy bulk items: %w", err)
		}
		return nil
	}

	q := r.builder.Insert(bulkItemsTable).Columns(bulkItemColumns...)
	for _, it := range items {
		q = q.Values(
			it.ID, it.BulkMovementID, it.ProductID, it.QuantitySent,
			it.QuantityReceived, it.SKU, it.ProductDetails, it.ImageURL,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert bulk items: %w", err)
	}
	return nil
}

// Update persists the header with optimistic locking.
func (r *BulkRepo) Update(ctx context.Context, b *bulk.BulkMovement) error {
	q := r.builder.Update(bulkMovementsTable).
		Set("to_location_id", b.ToLocationID).
		Set("to_area", b.ToArea).
		Set("status", b.Status).
		Set("confirmed_by", b.ConfirmedBy).
		Set("confirmed_at", b.ConfirmedAt).
		Set("cancelled_at", b.CancelledAt).
		Set("notes", b.Notes).
		Set("version", b.Version+1).
		Set("updated_at", b.UpdatedAt).
		Where(squirrel.Eq{"id": b.ID, "version": b.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update bulk movement: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("bulk movement", b.ID.String())
	}
	b.Version++
	return nil
}

// UpdateItem persists one line.
func (r *BulkRepo) UpdateItem(ctx context.Context, item *bulk.Item) error {
	q := r.builder.Update(bulkItemsTable).
		Set("quantity_sent", item.QuantitySent).
		Set("quantity_received", item.QuantityReceived).
		Where(squirrel.Eq{"id": item.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update bulk item: %w", err)
	}
	return nil
}

// DeleteItem removes one line.
func (r *BulkRepo) DeleteItem(ctx context.Context, itemID id.ID) error {
	q := r.builder.Delete(bulkItemsTable).Where(squirrel.Eq{"id": itemID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete bulk item: %w", err)
	}
	return nil
}

// GetByID fetches a movement with its items.
func (r *BulkRepo) GetByID(ctx context.Context, bulkID id.ID) (*bulk.BulkMovement, error) {
	return r.getWhere(ctx, squirrel.Eq{"id": bulkID}, bulkID.String(), false)
}

// GetForUpdate fetches a movement with its items and locks the header.
func (r *BulkRepo) GetForUpdate(ctx context.Context, bulkID id.ID) (*bulk.BulkMovement, error) {
	return r.getWhere(ctx, squirrel.Eq{"id": bulkID}, bulkID.String(), true)
}

// GetByToken fetches a movement by public token.
func (r *BulkRepo) GetByToken(ctx context.Context, token string) (*bulk.BulkMovement, error) {
	return r.getWhere(ctx, squirrel.Eq{"public_token": token}, token, false)
}

// GetByTokenForUpdate fetches by token and locks the header so confirm,
// cancel and the expiry sweep serialize.
func (r *BulkRepo) GetByTokenForUpdate(ctx context.Context, token string) (*bulk.BulkMovement, error) {
	return r.getWhere(ctx, squirrel.Eq{"public_token": token}, token, true)
}

func (r *BulkRepo) getWhere(ctx context.Context, where squirrel.Eq, key string, forUpdate bool) (*bulk.BulkMovement, error) {
	q := r.builder.Select(bulkColumns...).
		From(bulkMovementsTable).
		Where(where)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var b bulk.BulkMovement
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &b, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "bulk movement", key)
	}

	items, err := r.listItems(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Items = items
	return &b, nil
}

func (r *BulkRepo) listItems(ctx context.Context, bulkID id.ID) ([]bulk.Item, error) {
	q := r.builder.Select(bulkItemColumns...).
		From(bulkItemsTable).
		Where(squirrel.Eq{"bulk_movement_id": bulkID}).
		OrderBy("id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var items []bulk.Item
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("list bulk items: %w", err)
	}
	return items, nil
}

// List returns movement headers matching the filter, newest first.
// Items are not loaded for listings.
func (r *BulkRepo) List(ctx context.Context, filter bulk.ListFilter) ([]bulk.BulkMovement, error) {
	q := r.builder.Select(bulkColumns...).
		From(bulkMovementsTable).
		OrderBy("created_at DESC").
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

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

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var movements []bulk.BulkMovement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list bulk movements: %w", err)
	}
	return movements, nil
}

// ListExpired returns open movements past their token expiry, skipping
// rows locked by a concurrent confirmation.
func (r *BulkRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]bulk.BulkMovement, error) {
	q := r.builder.Select(bulkColumns...).
		From(bulkMovementsTable).
		Where(squirrel.Eq{"status": []bulk.Status{bulk.StatusPending, bulk.StatusInTransit}}).
		Where(squirrel.Lt{"token_expires_at": now}).
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var movements []bulk.BulkMovement
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("list expired bulk movements: %w", err)
	}

	for i := range movements {
		items, err := r.listItems(ctx, movements[i].ID)
		if err != nil {
			return nil, err
		}
		movements[i].Items = items
	}
	return movements, nil
}
