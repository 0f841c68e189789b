package kanban

import (
	"context"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/appctx"
	"stocktrail/internal/core/id"
	"stocktrail/internal/core/tx"
	"stocktrail/internal/domain/events"
	"stocktrail/internal/domain/product"
	"stocktrail/pkg/logger"
)

// Service applies board-side effects of product status changes: receiving
// boards gate the Received and Stored stages behind a validation record,
// and order boards hand purchased products over to their linked receiving
// board.
type Service struct {
	kanbans   Repository
	products  product.Repository
	txManager tx.Manager
	publisher events.Publisher
	cache     events.Invalidator
}

// NewService creates a kanban service.
func NewService(
	kanbans Repository,
	products product.Repository,
	txManager tx.Manager,
	publisher events.Publisher,
	cache events.Invalidator,
) *Service {
	return &Service{
		kanbans:   kanbans,
		products:  products,
		txManager: txManager,
		publisher: publisher,
		cache:     cache,
	}
}

// ChangeStatus moves a product to a new stage, enforcing board rules and
// running the automatic relocation for purchased order-board products.
func (s *Service) ChangeStatus(ctx context.Context, productID id.ID, target product.Status) (*product.Product, error) {
	if !product.ValidStatus(target) {
		return nil, apperror.NewValidation("unknown product status").
			WithDetail("value", string(target))
	}

	var p *product.Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		p, err = s.products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p.ColumnStatus == target {
			return nil
		}

		var board *Kanban
		if !id.PtrIsNil(p.KanbanID) {
			board, err = s.kanbans.GetKanban(ctx, *p.KanbanID)
			if err != nil {
				return err
			}
		}

		if board != nil && board.Type == TypeReceive &&
			(target == product.StatusReceived || target == product.StatusStored) {
			validated, err := s.kanbans.HasValidation(ctx, p.ID, board.ID)
			if err != nil {
				return err
			}
			if !validated {
				return apperror.NewValidationRequired(p.ID.String(), string(target))
			}
		}

		if board != nil && board.Type == TypeOrder &&
			target == product.StatusPurchased && !p.IsDraft {
			if err := s.relocatePurchased(ctx, p, board, target); err != nil {
				return err
			}
		}

		p.ColumnStatus = target
		p.Touch()
		if err := s.products.Update(ctx, p); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "Product",
			AggregateID:   p.ID,
			Type:          events.TypeProductUpdated,
			Payload: map[string]any{
				"productId": p.ID,
				"status":    target,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats)
	return p, nil
}

// Validate records a receiving-board check for a product, unlocking its
// Received and Stored transitions.
func (s *Service) Validate(ctx context.Context, productID id.ID) (*Validation, error) {
	validatedBy := appctx.Identity(ctx)

	var v *Validation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if id.PtrIsNil(p.KanbanID) {
			return apperror.NewValidation("product is not on a kanban").
				WithDetail("product_id", p.ID.String())
		}

		exists, err := s.kanbans.HasValidation(ctx, p.ID, *p.KanbanID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.NewConflict("product is already validated").
				WithDetail("product_id", p.ID.String())
		}

		v = NewValidation(p.ID, *p.KanbanID, validatedBy)
		return s.kanbans.CreateValidation(ctx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// TransferHistory lists the board transfers of one product.
func (s *Service) TransferHistory(ctx context.Context, productID id.ID) ([]TransferLog, error) {
	return s.kanbans.ListTransferLogs(ctx, productID)
}

// relocatePurchased hands p over to its preferred receiving board when a
// kanban link authorizes that target, or to the board linked to its
// current order board. Products with neither stay where they are.
func (s *Service) relocatePurchased(ctx context.Context, p *product.Product, board *Kanban, toColumn product.Status) error {
	var dest *Kanban
	if !id.PtrIsNil(p.PreferredKanbanID) {
		t, err := s.kanbans.GetKanban(ctx, *p.PreferredKanbanID)
		if err != nil && !apperror.IsNotFound(err) {
			return err
		}
		if t != nil && t.Type == TypeReceive && t.IsActive {
			linked, err := s.kanbans.HasLink(ctx, board.ID, t.ID)
			if err != nil {
				return err
			}
			if linked {
				dest = t
			}
		}
	}
	if dest == nil {
		t, err := s.kanbans.GetLinkedReceive(ctx, board.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return nil
			}
			return err
		}
		dest = t
	}

	from := *p.KanbanID
	fromColumn := p.ColumnStatus
	p.KanbanID = &dest.ID
	if !id.PtrIsNil(dest.DefaultLocationID) {
		p.LocationID = dest.DefaultLocationID
	}

	tl := NewTransferLog(p.ID, &from, dest.ID, TransferAutomatic)
	tl.FromColumn = fromColumn
	tl.ToColumn = toColumn
	tl.TransferredBy = appctx.Identity(ctx)
	if err := s.kanbans.CreateTransferLog(ctx, tl); err != nil {
		return err
	}

	logger.Info(ctx, "product auto-relocated",
		"product_id", p.ID,
		"from_kanban_id", from,
		"to_kanban_id", dest.ID,
	)
	return nil
}
