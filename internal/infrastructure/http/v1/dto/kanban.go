package dto

import (
	"time"

	"stocktrail/internal/domain/kanban"
)

// ChangeStatusRequest moves a product to a new stage.
type ChangeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ValidationResponse is the API shape of a validation record.
type ValidationResponse struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"productId"`
	KanbanID    string    `json:"kanbanId"`
	ValidatedBy string    `json:"validatedBy"`
	ValidatedAt time.Time `json:"validatedAt"`
}

// FromValidation converts a validation record to its API shape.
func FromValidation(v *kanban.Validation) ValidationResponse {
	return ValidationResponse{
		ID:          v.ID.String(),
		ProductID:   v.ProductID.String(),
		KanbanID:    v.KanbanID.String(),
		ValidatedBy: v.ValidatedBy,
		ValidatedAt: v.ValidatedAt,
	}
}

// TransferLogResponse is the API shape of a board transfer.
type TransferLogResponse struct {
	ID            string    `json:"id"`
	ProductID     string    `json:"productId"`
	FromKanbanID  *string   `json:"fromKanbanId,omitempty"`
	ToKanbanID    string    `json:"toKanbanId"`
	FromColumn    string    `json:"fromColumn"`
	ToColumn      string    `json:"toColumn"`
	TransferType  string    `json:"transferType"`
	TransferredBy string    `json:"transferredBy"`
	CreatedAt     time.Time `json:"createdAt"`
}

// FromTransferLogs converts transfer records to their API shape.
func FromTransferLogs(logs []kanban.TransferLog) []TransferLogResponse {
	out := make([]TransferLogResponse, 0, len(logs))
	for i := range logs {
		t := &logs[i]
		out = append(out, TransferLogResponse{
			ID:            t.ID.String(),
			ProductID:     t.ProductID.String(),
			FromKanbanID:  idString(t.FromKanbanID),
			ToKanbanID:    t.ToKanbanID.String(),
			FromColumn:    string(t.FromColumn),
			ToColumn:      string(t.ToColumn),
			TransferType:  string(t.TransferType),
			TransferredBy: t.TransferredBy,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out
}
