package kanban

import (
	"context"

	"stocktrail/internal/core/id"
)

// Repository is the persistence contract for boards, links, validations
// and transfer history.
type Repository interface {
	GetKanban(ctx context.Context, kanbanID id.ID) (*Kanban, error)
	// GetLinkedReceive returns the receiving board linked to an order
	// board, or a not-found error when no link exists.
	GetLinkedReceive(ctx context.Context, orderKanbanID id.ID) (*Kanban, error)
	// HasLink reports whether a link authorizes transfers from the order
	// board to the receiving board.
	HasLink(ctx context.Context, orderKanbanID, receiveKanbanID id.ID) (bool, error)

	HasValidation(ctx context.Context, productID, kanbanID id.ID) (bool, error)
	CreateValidation(ctx context.Context, v *Validation) error

	CreateTransferLog(ctx context.Context, t *TransferLog) error
	ListTransferLogs(ctx context.Context, productID id.ID) ([]TransferLog, error)
}
