package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/product"
)

const productsTable = "products"

var productColumns = []string{
	"id", "kanban_id", "column_status", "sku", "description", "supplier",
	"category", "unit_price", "image_url", "stock_level", "location_id",
	"assigned_to_person_id", "source_product_id", "preferred_kanban_id",
	"is_draft", "version", "created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	builder   squirrel.StatementBuilderType
	txManager *TxManager
}

// NewProductRepo creates a product repository.
func NewProductRepo(txManager *TxManager) *ProductRepo {
	return &ProductRepo{
		builder:   Builder(),
		txManager: txManager,
	}
}

var _ product.Repository = (*ProductRepo)(nil)

// GetByID fetches a product by id.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, false)
}

// GetForUpdate fetches a product and locks its row for the transaction.
func (r *ProductRepo) GetForUpdate(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.get(ctx, productID, true)
}

func (r *ProductRepo) get(ctx context.Context, productID id.ID, forUpdate bool) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"id": productID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &p, sql, args...); err != nil {
		return nil, TranslateNotFound(err, "product", productID.String())
	}
	return &p, nil
}

// Create inserts a new product row.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.KanbanID, p.ColumnStatus, p.SKU, p.Description, p.Supplier,
			p.Category, p.UnitPrice, p.ImageURL, p.StockLevel, p.LocationID,
			p.AssignedToPersonID, p.SourceProductID, p.PreferredKanbanID,
			p.IsDraft, p.Version, p.CreatedAt, p.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// Update persists p, bumping its version. A version mismatch means a
// concurrent writer got there first.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("kanban_id", p.KanbanID).
		Set("column_status", p.ColumnStatus).
		Set("sku", p.SKU).
		Set("description", p.Description).
		Set("supplier", p.Supplier).
		Set("category", p.Category).
		Set("unit_price", p.UnitPrice).
		Set("image_url", p.ImageURL).
		Set("stock_level", p.StockLevel).
		Set("location_id", p.LocationID).
		Set("assigned_to_person_id", p.AssignedToPersonID).
		Set("preferred_kanban_id", p.PreferredKanbanID).
		Set("is_draft", p.IsDraft).
		Set("version", p.Version+1).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("product", p.ID.String())
	}
	p.Version++
	return nil
}

// sumStockQuery builds the aggregate select for SumStockAtLocation.
func (r *ProductRepo) sumStockQuery(locationID id.ID, group product.StockGroup) squirrel.SelectBuilder {
	q := r.builder.Select("COALESCE(SUM(stock_level), 0)").
		From(productsTable).
		Where(squirrel.Eq{"location_id": locationID})

	if group.SKU != nil && *group.SKU != "" {
		q = q.Where(squirrel.Eq{"sku": *group.SKU})
	} else {
		q = q.Where(squirrel.Eq{"kanban_id": group.KanbanID, "description": group.Description})
	}
	return q
}

// SumStockAtLocation recomputes the aggregate stock of a stock group at a
// location. Grouping is by SKU when present, otherwise by kanban and
// description.
func (r *ProductRepo) SumStockAtLocation(ctx context.Context, locationID id.ID, group product.StockGroup) (int, error) {
	sql, args, err := r.sumStockQuery(locationID, group).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build select: %w", err)
	}

	var total int
	if err := r.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum stock: %w", err)
	}
	return total, nil
}

// ListByLocation returns products currently at a location.
func (r *ProductRepo) ListByLocation(ctx context.Context, locationID id.ID) ([]product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"location_id": locationID}).
		OrderBy("created_at")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var products []product.Product
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &products, sql, args...); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}
