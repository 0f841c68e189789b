// Package ledger is the invariant-preserving core of stock movement.
// It decreases and increases product stock, splitting a source record when
// only part of its stock moves, and recomputes destination aggregates.
//
// The "plan" step (ValidateMove) is separated from the "apply" step so the
// immediate and deferred-confirmation code paths share the same apply
// logic.
package ledger

import (
	"context"
	"fmt"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/id"
	"stocktrail/internal/domain/product"
	"stocktrail/pkg/logger"
)

// Destination is a resolved movement target: a location, a person, or both.
type Destination struct {
	LocationID *id.ID
	PersonID   *id.ID
}

// Empty reports whether no target was given.
func (d Destination) Empty() bool {
	return id.PtrIsNil(d.LocationID) && id.PtrIsNil(d.PersonID)
}

// MoveResult describes the outcome of a stock move.
type MoveResult struct {
	// Source is the mutated origin record (stock reduced, or relocated
	// in place on a full move).
	Source *product.Product

	// Destination is the record now holding the moved quantity. On a
	// full move it is the same record as Source.
	Destination *product.Product

	// DestinationTotal is the aggregate stock at the destination
	// location for the product's stock group after the move. Nil when
	// the destination is a person with no location.
	DestinationTotal *int
}

// Service applies stock moves. All methods must be called inside a
// transaction that holds a row lock on the source product.
type Service struct {
	products product.Repository
}

// NewService creates a stock ledger service.
func NewService(products product.Repository) *Service {
	return &Service{products: products}
}

// ValidateMove checks the preconditions of moving quantity units of p to
// dest without mutating anything. It is the shared plan step for both the
// immediate and deferred paths.
func ValidateMove(p *product.Product, quantity int, dest Destination) error {
	if dest.Empty() {
		return apperror.NewInvalidDestination("movement requires a destination location or person")
	}
	if quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", quantity)
	}
	if !p.Tracked() {
		return apperror.NewValidation("product stock is not tracked").
			WithDetail("product_id", p.ID.String())
	}
	if quantity > p.AvailableStock() {
		return apperror.NewInsufficientStock(p.ID.String(), quantity, p.AvailableStock())
	}
	return nil
}

// MoveStock moves quantity units of p to dest.
//
// Moving all remaining stock relocates p in place; a partial move
// decrements p and inserts a split row carrying lineage. Total stock
// across source and destination is conserved.
func (s *Service) MoveStock(ctx context.Context, p *product.Product, quantity int, dest Destination) (*MoveResult, error) {
	if err := ValidateMove(p, quantity, dest); err != nil {
		return nil, err
	}

	result := &MoveResult{Source: p}

	if quantity == p.AvailableStock() {
		// Full move: relocate in place, no split.
		p.LocationID = dest.LocationID
		p.AssignedToPersonID = dest.PersonID
		stock := quantity
		p.StockLevel = &stock
		p.Touch()
		if err := s.products.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("update source product: %w", err)
		}
		result.Destination = p
	} else {
		// Partial move: the source keeps its place and stage with
		// reduced stock; the moved quantity becomes a new record.
		remaining := p.AvailableStock() - quantity
		p.StockLevel = &remaining
		p.Touch()
		if err := s.products.Update(ctx, p); err != nil {
			return nil, fmt.Errorf("update source product: %w", err)
		}

		child := p.Split(quantity, dest.LocationID, dest.PersonID)
		if err := s.products.Create(ctx, child); err != nil {
			return nil, fmt.Errorf("create split product: %w", err)
		}
		result.Destination = child
	}

	if !id.PtrIsNil(dest.LocationID) {
		total, err := s.products.SumStockAtLocation(ctx, *dest.LocationID, product.GroupFor(p))
		if err != nil {
			return nil, fmt.Errorf("sum destination stock: %w", err)
		}
		result.DestinationTotal = &total
	}

	logger.Info(ctx, "stock moved",
		"product_id", p.ID,
		"quantity", quantity,
		"split", result.Destination.ID != p.ID,
	)

	return result, nil
}

// Receive materializes quantity units of origin at a location as a fresh
// product row. Used by bulk confirmation, where stock already left the
// source at creation time and only the destination side remains.
func (s *Service) Receive(ctx context.Context, origin *product.Product, quantity int, locationID id.ID) (*product.Product, error) {
	if quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity").
			WithDetail("value", quantity)
	}

	child := origin.Split(quantity, &locationID, nil)
	if err := s.products.Create(ctx, child); err != nil {
		return nil, fmt.Errorf("create destination product: %w", err)
	}
	return child, nil
}

// DestinationTotal recomputes the aggregate stock for origin's stock group
// at a location.
func (s *Service) DestinationTotal(ctx context.Context, origin *product.Product, locationID id.ID) (int, error) {
	return s.products.SumStockAtLocation(ctx, locationID, product.GroupFor(origin))
}
