package bulk

import (
	"time"

	"stocktrail/internal/core/id"
)

// Status is the lifecycle state of a bulk movement.
type Status string

const (
	StatusPending   Status = "pending"
	StatusInTransit Status = "in_transit"
	StatusReceived  Status = "received"
	StatusExpired   Status = "expired"
)

// ConfirmationTTL bounds how long a receiving token stays valid.
const ConfirmationTTL = 24 * time.Hour

// BulkMovement is a multi-item transfer between two locations. Stock is
// deducted from the source when the movement is created, so an in-transit
// movement already owns its quantities. FromArea and ToArea are set when
// the caller named an area instead of a location; a set FromArea widens
// the source to every location of that area.
type BulkMovement struct {
	ID             id.ID      `db:"id"`
	FromLocationID id.ID      `db:"from_location_id"`
	ToLocationID   id.ID      `db:"to_location_id"`
	FromArea       *string    `db:"from_area"`
	ToArea         *string    `db:"to_area"`
	Status         Status     `db:"status"`
	PublicToken    *string    `db:"public_token"`
	TokenExpiresAt *time.Time `db:"token_expires_at"`
	CreatedBy      string     `db:"created_by"`
	ConfirmedBy    *string    `db:"confirmed_by"`
	ConfirmedAt    *time.Time `db:"confirmed_at"`
	CancelledAt    *time.Time `db:"cancelled_at"`
	Notes          *string    `db:"notes"`
	Version        int        `db:"version"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`

	Items []Item `db:"-"`
}

// Item is one line of a bulk movement. SKU, details and image are
// snapshots taken at creation so the receipt page survives later product
// edits.
type Item struct {
	ID               id.ID   `db:"id"`
	BulkMovementID   id.ID   `db:"bulk_movement_id"`
	ProductID        id.ID   `db:"product_id"`
	QuantitySent     int     `db:"quantity_sent"`
	QuantityReceived *int    `db:"quantity_received"`
	SKU              *string `db:"sku"`
	ProductDetails   string  `db:"product_details"`
	ImageURL         *string `db:"image_url"`
}

// NewBulkMovement creates an in-transit movement shell.
func NewBulkMovement(fromLocationID, toLocationID id.ID, createdBy string) *BulkMovement {
	now := time.Now().UTC()
	return &BulkMovement{
		ID:             id.New(),
		FromLocationID: fromLocationID,
		ToLocationID:   toLocationID,
		Status:         StatusInTransit,
		CreatedBy:      createdBy,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Editable reports whether items can still be added, changed or removed.
func (b *BulkMovement) Editable() bool {
	return b.Status == StatusPending || b.Status == StatusInTransit
}

// IsTerminal reports whether the movement can no longer change state.
func (b *BulkMovement) IsTerminal() bool {
	return b.Status == StatusReceived || b.Status == StatusExpired
}

// Cancelled distinguishes a manual cancellation from a token lapse: both
// end as expired, but only cancellation stamps CancelledAt.
func (b *BulkMovement) Cancelled() bool {
	return b.Status == StatusExpired && b.CancelledAt != nil
}

// Touch bumps the modification timestamp.
func (b *BulkMovement) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// ItemByID finds a line by its own id.
func (b *BulkMovement) ItemByID(itemID id.ID) *Item {
	for i := range b.Items {
		if b.Items[i].ID == itemID {
			return &b.Items[i]
		}
	}
	return nil
}

// ItemByProduct finds a line by the product it carries.
func (b *BulkMovement) ItemByProduct(productID id.ID) *Item {
	for i := range b.Items {
		if b.Items[i].ProductID == productID {
			return &b.Items[i]
		}
	}
	return nil
}
