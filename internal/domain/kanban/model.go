package kanban

import (
	"time"

	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/product"
)

// Type distinguishes ordering boards from receiving boards.
type Type string

const (
	TypeOrder   Type = "order"
	TypeReceive Type = "receive"
)

// TransferType marks how a product changed boards.
type TransferType string

const (
	TransferAutomatic TransferType = "automatic"
	TransferManual    TransferType = "manual"
)

// Kanban is a board products flow across. A receiving board may carry a
// default location that auto-relocated products land on.
type Kanban struct {
	ID                id.ID     `db:"id"`
	Name              string    `db:"name"`
	Type              Type      `db:"type"`
	DefaultLocationID *id.ID    `db:"default_location_id"`
	IsActive          bool      `db:"is_active"`
	CreatedAt         time.Time `db:"created_at"`
}

// Link pairs an order board with the receiving board its purchases flow
// to.
type Link struct {
	ID              id.ID     `db:"id"`
	OrderKanbanID   id.ID     `db:"order_kanban_id"`
	ReceiveKanbanID id.ID     `db:"receive_kanban_id"`
	CreatedAt       time.Time `db:"created_at"`
}

// Validation records that a person checked a product on a receiving
// board. Its presence gates the transition into Received and Stored.
type Validation struct {
	ID          id.ID     `db:"id"`
	ProductID   id.ID     `db:"product_id"`
	KanbanID    id.ID     `db:"kanban_id"`
	ValidatedBy string    `db:"validated_by"`
	ValidatedAt time.Time `db:"validated_at"`
}

// NewValidation creates a validation record.
func NewValidation(productID, kanbanID id.ID, validatedBy string) *Validation {
	return &Validation{
		ID:          id.New(),
		ProductID:   productID,
		KanbanID:    kanbanID,
		ValidatedBy: validatedBy,
		ValidatedAt: time.Now().UTC(),
	}
}

// TransferLog records a product changing boards, capturing the column
// statuses around the transfer and who triggered it.
type TransferLog struct {
	ID            id.ID          `db:"id"`
	ProductID     id.ID          `db:"product_id"`
	FromKanbanID  *id.ID         `db:"from_kanban_id"`
	ToKanbanID    id.ID          `db:"to_kanban_id"`
	FromColumn    product.Status `db:"from_column"`
	ToColumn      product.Status `db:"to_column"`
	TransferType  TransferType   `db:"transfer_type"`
	TransferredBy string         `db:"transferred_by"`
	CreatedAt     time.Time      `db:"created_at"`
}

// NewTransferLog creates a transfer record.
func NewTransferLog(productID id.ID, fromKanbanID *id.ID, toKanbanID id.ID, transferType TransferType) *TransferLog {
	return &TransferLog{
		ID:           id.New(),
		ProductID:    productID,
		FromKanbanID: fromKanbanID,
		ToKanbanID:   toKanbanID,
		TransferType: transferType,
		CreatedAt:    time.Now().UTC(),
	}
}
