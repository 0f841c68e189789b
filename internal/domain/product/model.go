// Package product provides the Product inventory entity.
// A product is a unit of inventory flowing through kanban stages; its
// stock can be split across locations, with lineage recorded through
// SourceProductID.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
)

// Status is a kanban workflow stage.
type Status string

const (
	StatusPurchased Status = "Purchased"
	StatusReceived  Status = "Received"
	StatusStored    Status = "Stored"
	StatusInTransit Status = "In Transit"
)

// ValidStatus reports whether s is a known workflow stage.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPurchased, StatusReceived, StatusStored, StatusInTransit:
		return true
	}
	return false
}

// Product is a unit of inventory.
// A product is "at" a location or "with" a person, not both in steady state.
type Product struct {
	ID id.ID `db:"id" json:"id"`

	// KanbanID is the board the product currently lives on
	KanbanID *id.ID `db:"kanban_id" json:"kanbanId,omitempty"`

	ColumnStatus Status `db:"column_status" json:"columnStatus"`

	// Descriptive fields, copied verbatim when splitting
	SKU         *string          `db:"sku" json:"sku,omitempty"`
	Description string           `db:"description" json:"description"`
	Supplier    *string          `db:"supplier" json:"supplier,omitempty"`
	Category    *string          `db:"category" json:"category,omitempty"`
	UnitPrice   *decimal.Decimal `db:"unit_price" json:"unitPrice,omitempty"`
	ImageURL    *string          `db:"image_url" json:"imageUrl,omitempty"`

	// StockLevel is nil when stock is not yet tracked for this product
	StockLevel *int `db:"stock_level" json:"stockLevel,omitempty"`

	LocationID         *id.ID `db:"location_id" json:"locationId,omitempty"`
	AssignedToPersonID *id.ID `db:"assigned_to_person_id" json:"assignedToPersonId,omitempty"`

	// SourceProductID records lineage when this row was created by
	// splitting another product's stock. Write-once at creation.
	SourceProductID *id.ID `db:"source_product_id" json:"sourceProductId,omitempty"`

	// PreferredKanbanID overrides the kanban's own receive link for
	// automatic relocation
	PreferredKanbanID *id.ID `db:"preferred_kanban_id" json:"preferredKanbanId,omitempty"`

	IsDraft bool `db:"is_draft" json:"isDraft"`

	// Version for optimistic locking
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewProduct creates a product with a generated ID.
func NewProduct(description string, status Status) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:           id.New(),
		ColumnStatus: status,
		Description:  description,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Validate implements basic invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.Description == "" {
		return apperror.NewValidation("description is required").WithDetail("field", "description")
	}
	if !ValidStatus(p.ColumnStatus) {
		return apperror.NewValidation("invalid column status").
			WithDetail("field", "columnStatus").
			WithDetail("value", string(p.ColumnStatus))
	}
	if p.StockLevel != nil && *p.StockLevel < 0 {
		return apperror.NewValidation("stock level must not be negative").
			WithDetail("field", "stockLevel")
	}
	return nil
}

// AvailableStock returns the tracked stock level, zero for untracked.
func (p *Product) AvailableStock() int {
	if p.StockLevel == nil {
		return 0
	}
	return *p.StockLevel
}

// Tracked reports whether stock is tracked for this product.
func (p *Product) Tracked() bool {
	return p.StockLevel != nil
}

// Touch updates UpdatedAt.
func (p *Product) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// Split creates a new product representing quantity units moved to the
// given destination. Descriptive fields are copied verbatim; the new row
// carries lineage back to p and starts in the Stored stage.
func (p *Product) Split(quantity int, locationID, personID *id.ID) *Product {
	stock := quantity
	child := NewProduct(p.Description, StatusStored)
	child.KanbanID = p.KanbanID
	child.SKU = p.SKU
	child.Supplier = p.Supplier
	child.Category = p.Category
	child.UnitPrice = p.UnitPrice
	child.ImageURL = p.ImageURL
	child.StockLevel = &stock
	child.LocationID = locationID
	child.AssignedToPersonID = personID
	child.SourceProductID = &p.ID
	child.PreferredKanbanID = p.PreferredKanbanID
	return child
}

// StockGroup identifies the aggregation key for destination stock totals:
// same SKU, or same kanban and exact description when SKU is absent.
type StockGroup struct {
	SKU         *string
	KanbanID    *id.ID
	Description string
}

// GroupFor returns the stock aggregation key for p.
func GroupFor(p *Product) StockGroup {
	if p.SKU != nil && *p.SKU != "" {
		return StockGroup{SKU: p.SKU}
	}
	return StockGroup{KanbanID: p.KanbanID, Description: p.Description}
}
