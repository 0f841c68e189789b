package movement

import (
	"context"
	"fmt"
	"time"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/appctx"
	"stocktrail/internal/core/id"
	"stocktrail/internal/core/token"
	"stocktrail/internal/core/tx"
	"stocktrail/internal/domain/events"
	"stocktrail/internal/domain/ledger"
	"stocktrail/internal/domain/location"
	"stocktrail/internal/domain/product"
	"stocktrail/pkg/logger"
)

// Service orchestrates single-product movements: immediate moves apply the
// stock ledger inside one transaction; deferred moves park a pending log
// behind a public token and apply the ledger only on confirmation.
type Service struct {
	movements Repository
	products  product.Repository
	locations location.Repository
	resolver  *location.Resolver
	ledger    *ledger.Service
	txManager tx.Manager
	publisher events.Publisher
	cache     events.Invalidator
}

// NewService creates a movement service.
func NewService(
	movements Repository,
	products product.Repository,
	locations location.Repository,
	resolver *location.Resolver,
	ledgerSvc *ledger.Service,
	txManager tx.Manager,
	publisher events.Publisher,
	cache events.Invalidator,
) *Service {
	return &Service{
		movements: movements,
		products:  products,
		locations: locations,
		resolver:  resolver,
		ledger:    ledgerSvc,
		txManager: txManager,
		publisher: publisher,
		cache:     cache,
	}
}

// CreateInput describes a requested movement.
type CreateInput struct {
	ProductID            id.ID
	ToLocationID         *id.ID
	ToArea               string
	ToPersonID           *id.ID
	Quantity             int
	RequiresConfirmation bool
	Notes                string
}

// Create moves stock immediately, or parks a pending movement behind a
// 7-day public token when confirmation is required.
func (s *Service) Create(ctx context.Context, in CreateInput) (*MovementLog, error) {
	movedBy := appctx.Identity(ctx)

	var log *MovementLog
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		dest, toArea, err := s.resolveDestination(ctx, in.ToLocationID, in.ToArea, in.ToPersonID)
		if err != nil {
			return err
		}

		p, err := s.products.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}

		if !id.PtrIsNil(dest.LocationID) && !id.PtrIsNil(p.LocationID) &&
			*dest.LocationID == *p.LocationID && id.PtrIsNil(dest.PersonID) {
			return apperror.NewInvalidDestination("product is already at the destination location").
				WithDetail("location_id", dest.LocationID.String())
		}

		if err := ledger.ValidateMove(p, in.Quantity, dest); err != nil {
			return err
		}

		log = NewMovementLog(p.ID, StatusCompleted)
		log.FromLocationID = p.LocationID
		log.FromPersonID = p.AssignedToPersonID
		log.FromArea = s.areaOf(ctx, p.LocationID)
		log.ToLocationID = dest.LocationID
		log.ToPersonID = dest.PersonID
		log.ToArea = toArea
		log.FromStockLevel = p.AvailableStock()
		log.QuantityMoved = in.Quantity
		log.MovedBy = movedBy
		if in.Notes != "" {
			log.Notes = &in.Notes
		}

		if in.RequiresConfirmation {
			// Deferred: stock stays put until the token is confirmed.
			tok, err := token.New()
			if err != nil {
				return apperror.NewInternal(err)
			}
			expiresAt := time.Now().UTC().Add(ConfirmationTTL)
			log.Status = StatusPending
			log.PublicToken = &tok
			log.TokenExpiresAt = &expiresAt
			return s.movements.Create(ctx, log)
		}

		res, err := s.ledger.MoveStock(ctx, p, in.Quantity, dest)
		if err != nil {
			return err
		}
		log.ToStockLevel = res.DestinationTotal
		if err := s.movements.Create(ctx, log); err != nil {
			return err
		}

		return s.publishMoved(ctx, res.Destination.ID, log)
	})
	if err != nil {
		return nil, err
	}

	if log.Status == StatusCompleted {
		s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats, events.CacheKeyLocations)
	}

	logger.Info(ctx, "movement created",
		"movement_id", log.ID,
		"product_id", in.ProductID,
		"quantity", in.Quantity,
		"deferred", in.RequiresConfirmation,
	)
	return log, nil
}

// GetByToken returns the movement for an unauthenticated token read.
func (s *Service) GetByToken(ctx context.Context, tok string) (*MovementLog, error) {
	if !token.Valid(tok) {
		return nil, apperror.NewNotFound("movement", tok)
	}
	return s.movements.GetByToken(ctx, tok)
}

// GetByID fetches one movement log.
func (s *Service) GetByID(ctx context.Context, logID id.ID) (*MovementLog, error) {
	return s.movements.GetByID(ctx, logID)
}

// List returns movement history.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]MovementLog, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListFilter().Limit
	}
	return s.movements.List(ctx, filter)
}

// ConfirmByToken applies the stock change that was deferred when the
// movement was created. pending -> completed; an expired token flips the
// log to expired before rejecting.
func (s *Service) ConfirmByToken(ctx context.Context, tok, confirmedBy, notes string) (*MovementLog, error) {
	if !token.Valid(tok) {
		return nil, apperror.NewNotFound("movement", tok)
	}

	var (
		log        *MovementLog
		confirmErr error
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		log, err = s.movements.GetByTokenForUpdate(ctx, tok)
		if err != nil {
			return err
		}

		switch log.Status {
		case StatusCompleted:
			confirmErr = apperror.NewAlreadyConfirmed("movement", log.ID.String())
			return nil
		case StatusExpired, StatusCancelled:
			confirmErr = apperror.NewExpired("movement", log.ID.String())
			return nil
		}

		now := time.Now().UTC()
		if token.Expired(log.TokenExpiresAt, now) {
			// Flip to expired and commit; the rejection must survive.
			log.Status = StatusExpired
			if err := s.movements.Update(ctx, log); err != nil {
				return err
			}
			confirmErr = apperror.NewExpired("movement", log.ID.String())
			return nil
		}

		p, err := s.products.GetForUpdate(ctx, log.ProductID)
		if err != nil {
			return err
		}

		// Stock is re-validated now: it may have shrunk since creation.
		log.FromStockLevel = p.AvailableStock()
		dest := ledger.Destination{LocationID: log.ToLocationID, PersonID: log.ToPersonID}
		res, err := s.ledger.MoveStock(ctx, p, log.QuantityMoved, dest)
		if err != nil {
			return err
		}

		log.Status = StatusCompleted
		log.ToStockLevel = res.DestinationTotal
		log.ConfirmedBy = &confirmedBy
		log.ConfirmedAt = &now
		if notes != "" {
			log.Notes = &notes
		}
		if err := s.movements.Update(ctx, log); err != nil {
			return err
		}

		return s.publishMoved(ctx, res.Destination.ID, log)
	})
	if err != nil {
		return nil, err
	}
	if confirmErr != nil {
		return nil, confirmErr
	}

	s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats, events.CacheKeyLocations)

	logger.Info(ctx, "movement confirmed",
		"movement_id", log.ID,
		"confirmed_by", confirmedBy,
	)
	return log, nil
}

// Cancel aborts a pending movement. No stock was reserved, so only the
// status flips.
func (s *Service) Cancel(ctx context.Context, logID id.ID) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		log, err := s.movements.GetByID(ctx, logID)
		if err != nil {
			return err
		}
		if log.Status != StatusPending {
			return apperror.NewInvalidStateTransition("movement", string(log.Status), "cancel")
		}
		log.Status = StatusCancelled
		return s.movements.Update(ctx, log)
	})
}

// ExpireStale flips pending movements whose tokens have lapsed. Deferred
// single movements never reserved stock, so expiry is a pure status flip.
// Safe to run concurrently with itself and with confirmations.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	expired := 0
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		stale, err := s.movements.ListExpiredPending(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		for i := range stale {
			m := &stale[i]
			m.Status = StatusExpired
			if err := s.movements.Update(ctx, m); err != nil {
				return err
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logger.Info(ctx, "expired stale movements", "count", expired)
	}
	return expired, nil
}

// resolveDestination normalizes the caller's destination inputs: a
// concrete location id wins, otherwise an area resolves to its General
// location; a bare person is also a valid target.
func (s *Service) resolveDestination(ctx context.Context, locationID *id.ID, area string, personID *id.ID) (ledger.Destination, *string, error) {
	dest := ledger.Destination{PersonID: personID}

	switch {
	case !id.PtrIsNil(locationID):
		loc, err := s.locations.GetByID(ctx, *locationID)
		if err != nil {
			return dest, nil, err
		}
		dest.LocationID = &loc.ID
		return dest, &loc.Area, nil
	case area != "":
		resolved, err := s.resolver.ResolveOrCreateGeneral(ctx, area)
		if err != nil {
			return dest, nil, err
		}
		dest.LocationID = &resolved
		a := area
		return dest, &a, nil
	case !id.PtrIsNil(personID):
		return dest, nil, nil
	default:
		return dest, nil, apperror.NewInvalidDestination("destination location, area or person is required")
	}
}

// areaOf looks up the denormalized area label for a location reference.
func (s *Service) areaOf(ctx context.Context, locationID *id.ID) *string {
	if id.PtrIsNil(locationID) {
		return nil
	}
	loc, err := s.locations.GetByID(ctx, *locationID)
	if err != nil {
		return nil
	}
	return &loc.Area
}

func (s *Service) publishMoved(ctx context.Context, destinationProductID id.ID, log *MovementLog) error {
	if err := s.publisher.Publish(ctx, events.Event{
		AggregateType: "Product",
		AggregateID:   log.ProductID,
		Type:          events.TypeProductMoved,
		Payload: map[string]any{
			"movementId":    log.ID,
			"productId":     log.ProductID,
			"destinationId": destinationProductID,
			"quantity":      log.QuantityMoved,
		},
	}); err != nil {
		return fmt.Errorf("publish product-moved: %w", err)
	}
	return s.publisher.Publish(ctx, events.Event{
		AggregateType: "Product",
		AggregateID:   log.ProductID,
		Type:          events.TypeStockChanged,
		Payload: map[string]any{
			"productId": log.ProductID,
			"quantity":  log.QuantityMoved,
		},
	})
}
