// Package movement provides the MovementLog audit entity and the single
// product movement workflow, including deferred token-gated confirmation.
package movement

import (
	"time"

	"stocktrail/internal/core/id"
)

// Status is the lifecycle state of a movement log.
// Logs are created pending when confirmation is required, otherwise
// completed immediately; they are mutated once on confirmation, expiry or
// cancellation and never deleted.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// ConfirmationTTL is the expiry horizon for deferred single movements.
const ConfirmationTTL = 7 * 24 * time.Hour

// MovementLog is an immutable audit record of one stock-affecting event.
type MovementLog struct {
	ID        id.ID `db:"id" json:"id"`
	ProductID id.ID `db:"product_id" json:"productId"`

	FromLocationID *id.ID `db:"from_location_id" json:"fromLocationId,omitempty"`
	ToLocationID   *id.ID `db:"to_location_id" json:"toLocationId,omitempty"`
	FromPersonID   *id.ID `db:"from_person_id" json:"fromPersonId,omitempty"`
	ToPersonID     *id.ID `db:"to_person_id" json:"toPersonId,omitempty"`

	// Areas are denormalized for reporting
	FromArea *string `db:"from_area" json:"fromArea,omitempty"`
	ToArea   *string `db:"to_area" json:"toArea,omitempty"`

	// FromStockLevel is the stock at the source immediately before the move
	FromStockLevel int `db:"from_stock_level" json:"fromStockLevel"`

	QuantityMoved int `db:"quantity_moved" json:"quantityMoved"`

	// ToStockLevel is the aggregate stock at the destination after the
	// move; nil for person-only destinations
	ToStockLevel *int `db:"to_stock_level" json:"toStockLevel,omitempty"`

	MovedBy string `db:"moved_by" json:"movedBy"`

	// Deferred-confirmation fields
	PublicToken    *string    `db:"public_token" json:"publicToken,omitempty"`
	TokenExpiresAt *time.Time `db:"token_expires_at" json:"tokenExpiresAt,omitempty"`
	ConfirmedBy    *string    `db:"confirmed_by" json:"confirmedBy,omitempty"`
	ConfirmedAt    *time.Time `db:"confirmed_at" json:"confirmedAt,omitempty"`

	Status Status `db:"status" json:"status"`

	Notes     *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementLog creates a log row with a generated ID.
func NewMovementLog(productID id.ID, status Status) *MovementLog {
	return &MovementLog{
		ID:        id.New(),
		ProductID: productID,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
}

// IsTerminal reports whether the log can no longer change state.
func (m *MovementLog) IsTerminal() bool {
	return m.Status == StatusCompleted || m.Status == StatusExpired || m.Status == StatusCancelled
}
