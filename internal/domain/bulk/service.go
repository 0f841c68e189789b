package bulk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stocktrail/internal/core/apperror"
	"stocktrail/internal/core/appctx"
	"stocktrail/internal/core/id"
	"stocktrail/internal/core/token"
	"stocktrail/internal/core/tx"
	"stocktrail/internal/domain/events"
	"stocktrail/internal/domain/ledger"
	"stocktrail/internal/domain/location"
	"stocktrail/internal/domain/movement"
	"stocktrail/internal/domain/product"
	"stocktrail/pkg/logger"
)

// Service orchestrates multi-item transfers. Stock leaves the source when
// the movement is created; confirmation only materializes the destination
// side, so an unconfirmed movement holds its quantities in transit.
type Service struct {
	bulks     Repository
	movements movement.Repository
	products  product.Repository
	locations location.Repository
	resolver  *location.Resolver
	ledger    *ledger.Service
	txManager tx.Manager
	publisher events.Publisher
	cache     events.Invalidator
}

// NewService creates a bulk movement service.
func NewService(
	bulks Repository,
	movements movement.Repository,
	products product.Repository,
	locations location.Repository,
	resolver *location.Resolver,
	ledgerSvc *ledger.Service,
	txManager tx.Manager,
	publisher events.Publisher,
	cache events.Invalidator,
) *Service {
	return &Service{
		bulks:     bulks,
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

// ItemInput is one requested transfer line.
type ItemInput struct {
	ProductID id.ID
	Quantity  int
}

// CreateInput describes a requested bulk movement. Source and destination
// each accept a concrete location id or an area name.
type CreateInput struct {
	FromLocationID *id.ID
	FromArea       string
	ToLocationID   *id.ID
	ToArea         string
	Notes          string
	Items          []ItemInput
}

// Create validates every line against the source location, deducts the
// sent quantities, and opens an in-transit movement behind a 24-hour
// receiving token. All lines succeed or none do.
func (s *Service) Create(ctx context.Context, in CreateInput) (*BulkMovement, error) {
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("bulk movement requires at least one item")
	}
	seen := make(map[id.ID]struct{}, len(in.Items))
	for _, item := range in.Items {
		if _, dup := seen[item.ProductID]; dup {
			return nil, apperror.NewValidation("duplicate product in bulk movement").
				WithDetail("product_id", item.ProductID.String())
		}
		seen[item.ProductID] = struct{}{}
	}

	createdBy := appctx.Identity(ctx)

	var b *BulkMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		fromID, err := s.resolveLocation(ctx, in.FromLocationID, in.FromArea, "source")
		if err != nil {
			return err
		}
		toID, err := s.resolveLocation(ctx, in.ToLocationID, in.ToArea, "destination")
		if err != nil {
			return err
		}
		if fromID == toID {
			return apperror.NewInvalidDestination("source and destination locations are the same").
				WithDetail("location_id", fromID.String())
		}

		b = NewBulkMovement(fromID, toID, createdBy)
		if id.PtrIsNil(in.FromLocationID) {
			area := strings.TrimSpace(in.FromArea)
			b.FromArea = &area
		}
		if id.PtrIsNil(in.ToLocationID) {
			area := strings.TrimSpace(in.ToArea)
			b.ToArea = &area
		}
		tok, err := token.New()
		if err != nil {
			return apperror.NewInternal(err)
		}
		expiresAt := time.Now().UTC().Add(ConfirmationTTL)
		b.PublicToken = &tok
		b.TokenExpiresAt = &expiresAt
		if in.Notes != "" {
			b.Notes = &in.Notes
		}

		for _, line := range in.Items {
			item, err := s.deductLine(ctx, b, line)
			if err != nil {
				return err
			}
			b.Items = append(b.Items, *item)
		}

		if err := s.bulks.Create(ctx, b); err != nil {
			return err
		}
		if err := s.bulks.CreateItems(ctx, b.Items); err != nil {
			return err
		}
		return s.publishUpdated(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats, events.CacheKeyLocations)

	logger.Info(ctx, "bulk movement created",
		"bulk_movement_id", b.ID,
		"items", len(b.Items),
		"from_location_id", b.FromLocationID,
		"to_location_id", b.ToLocationID,
	)
	return b, nil
}

// GetByID fetches one bulk movement with its items.
func (s *Service) GetByID(ctx context.Context, bulkID id.ID) (*BulkMovement, error) {
	return s.bulks.GetByID(ctx, bulkID)
}

// GetByToken returns the movement for the unauthenticated receipt page.
func (s *Service) GetByToken(ctx context.Context, tok string) (*BulkMovement, error) {
	if !token.Valid(tok) {
		return nil, apperror.NewNotFound("bulk movement", tok)
	}
	return s.bulks.GetByToken(ctx, tok)
}

// List returns bulk movement history.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]BulkMovement, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListFilter().Limit
	}
	return s.bulks.List(ctx, filter)
}

// UpdateInput revises an open movement. A set destination replaces where
// the goods are headed; a non-empty item slice replaces the item set.
type UpdateInput struct {
	ToLocationID *id.ID
	ToArea       string
	Items        []ItemInput
}

func (in UpdateInput) hasDestination() bool {
	return !id.PtrIsNil(in.ToLocationID) || strings.TrimSpace(in.ToArea) != ""
}

// Update revises an open movement: the destination may be redirected, and
// the item set is reconciled against the desired lines. Raised quantities
// deduct more source stock, lowered quantities restore the difference,
// removed lines restore in full.
func (s *Service) Update(ctx context.Context, bulkID id.ID, in UpdateInput) (*BulkMovement, error) {
	if len(in.Items) == 0 && !in.hasDestination() {
		return nil, apperror.NewValidation("update requires items or a new destination")
	}

	var b *BulkMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.bulks.GetForUpdate(ctx, bulkID)
		if err != nil {
			return err
		}
		if !b.Editable() {
			return apperror.NewInvalidStateTransition("bulk movement", string(b.Status), "update")
		}

		if in.hasDestination() {
			toID, err := s.resolveLocation(ctx, in.ToLocationID, in.ToArea, "destination")
			if err != nil {
				return err
			}
			if toID == b.FromLocationID {
				return apperror.NewInvalidDestination("source and destination locations are the same").
					WithDetail("location_id", toID.String())
			}
			b.ToLocationID = toID
			b.ToArea = nil
			if id.PtrIsNil(in.ToLocationID) {
				area := strings.TrimSpace(in.ToArea)
				b.ToArea = &area
			}
		}

		if len(in.Items) == 0 {
			b.Touch()
			if err := s.bulks.Update(ctx, b); err != nil {
				return err
			}
			return s.publishUpdated(ctx, b)
		}

		desired := make(map[id.ID]int, len(in.Items))
		for _, line := range in.Items {
			if _, dup := desired[line.ProductID]; dup {
				return apperror.NewValidation("duplicate product in bulk movement").
					WithDetail("product_id", line.ProductID.String())
			}
			desired[line.ProductID] = line.Quantity
		}

		kept := b.Items[:0]
		for i := range b.Items {
			item := b.Items[i]
			qty, wanted := desired[item.ProductID]
			if !wanted {
				if err := s.restoreToSource(ctx, b, item.ProductID, item.QuantitySent); err != nil {
					return err
				}
				if err := s.bulks.DeleteItem(ctx, item.ID); err != nil {
					return err
				}
				continue
			}
			delete(desired, item.ProductID)

			if delta := qty - item.QuantitySent; delta != 0 {
				if delta > 0 {
					if err := s.deductDelta(ctx, b, item.ProductID, delta); err != nil {
						return err
					}
				} else if err := s.restoreToSource(ctx, b, item.ProductID, -delta); err != nil {
					return err
				}
				item.QuantitySent = qty
				if err := s.bulks.UpdateItem(ctx, &item); err != nil {
					return err
				}
			}
			kept = append(kept, item)
		}
		b.Items = kept

		// Whatever is left in desired is a new line.
		var added []Item
		for productID, qty := range desired {
			item, err := s.deductLine(ctx, b, ItemInput{ProductID: productID, Quantity: qty})
			if err != nil {
				return err
			}
			added = append(added, *item)
		}
		if len(added) > 0 {
			if err := s.bulks.CreateItems(ctx, added); err != nil {
				return err
			}
			b.Items = append(b.Items, added...)
		}

		b.Touch()
		if err := s.bulks.Update(ctx, b); err != nil {
			return err
		}
		return s.publishUpdated(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats)
	return b, nil
}

func (s *Service) publishUpdated(ctx context.Context, b *BulkMovement) error {
	return s.publisher.Publish(ctx, events.Event{
		AggregateType: "BulkMovement",
		AggregateID:   b.ID,
		Type:          events.TypeBulkUpdated,
		Payload: map[string]any{
			"bulkMovementId": b.ID,
			"status":         b.Status,
			"itemCount":      len(b.Items),
		},
	})
}

// Cancel aborts an open movement and restores every sent quantity to the
// source. The record ends as expired with a cancellation stamp.
func (s *Service) Cancel(ctx context.Context, bulkID id.ID) (*BulkMovement, error) {
	var b *BulkMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.bulks.GetForUpdate(ctx, bulkID)
		if err != nil {
			return err
		}
		if !b.Editable() {
			return apperror.NewInvalidStateTransition("bulk movement", string(b.Status), "cancel")
		}

		for i := range b.Items {
			if err := s.restoreToSource(ctx, b, b.Items[i].ProductID, b.Items[i].QuantitySent); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		b.Status = StatusExpired
		b.CancelledAt = &now
		b.Touch()
		return s.bulks.Update(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats)

	logger.Info(ctx, "bulk movement cancelled", "bulk_movement_id", b.ID)
	return b, nil
}

// Receipt records how many units of one line actually arrived.
type Receipt struct {
	ItemID           id.ID
	QuantityReceived int
}

// ConfirmInput carries the receiving side of a confirmation. Lines
// without a receipt are taken as received in full.
type ConfirmInput struct {
	ConfirmedBy string
	Notes       string
	Receipts    []Receipt
}

// Confirm settles an in-transit movement: received quantities materialize
// at the destination and every line gets a completed movement log. A
// lapsed token flips the movement to expired before rejecting, and a
// second confirmation is rejected without side effects.
func (s *Service) Confirm(ctx context.Context, tok string, in ConfirmInput) (*BulkMovement, error) {
	if !token.Valid(tok) {
		return nil, apperror.NewNotFound("bulk movement", tok)
	}

	var (
		b          *BulkMovement
		confirmErr error
	)
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		b, err = s.bulks.GetByTokenForUpdate(ctx, tok)
		if err != nil {
			return err
		}

		switch b.Status {
		case StatusReceived:
			confirmErr = apperror.NewAlreadyConfirmed("bulk movement", b.ID.String())
			return nil
		case StatusExpired:
			confirmErr = apperror.NewExpired("bulk movement", b.ID.String())
			return nil
		}

		now := time.Now().UTC()
		if token.Expired(b.TokenExpiresAt, now) {
			// The flip must commit even though the caller gets an error.
			if err := s.expire(ctx, b); err != nil {
				return err
			}
			confirmErr = apperror.NewExpired("bulk movement", b.ID.String())
			return nil
		}

		received := make(map[id.ID]int, len(in.Receipts))
		for _, r := range in.Receipts {
			item := b.ItemByID(r.ItemID)
			if item == nil {
				return apperror.NewNotFound("bulk movement item", r.ItemID.String())
			}
			if r.QuantityReceived < 0 || r.QuantityReceived > item.QuantitySent {
				return apperror.NewInvalidQuantity(item.ProductID.String(), r.QuantityReceived, item.QuantitySent)
			}
			received[r.ItemID] = r.QuantityReceived
		}

		for i := range b.Items {
			item := &b.Items[i]
			qty, ok := received[item.ID]
			if !ok {
				qty = item.QuantitySent
			}
			if err := s.receiveLine(ctx, b, item, qty, in.ConfirmedBy); err != nil {
				return err
			}
		}

		b.Status = StatusReceived
		b.ConfirmedBy = &in.ConfirmedBy
		b.ConfirmedAt = &now
		if in.Notes != "" {
			b.Notes = &in.Notes
		}
		b.Touch()
		if err := s.bulks.Update(ctx, b); err != nil {
			return err
		}

		return s.publisher.Publish(ctx, events.Event{
			AggregateType: "BulkMovement",
			AggregateID:   b.ID,
			Type:          events.TypeBulkReceived,
			Payload: map[string]any{
				"bulkMovementId": b.ID,
				"confirmedBy":    in.ConfirmedBy,
				"itemCount":      len(b.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if confirmErr != nil {
		return nil, confirmErr
	}

	s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats, events.CacheKeyLocations)

	logger.Info(ctx, "bulk movement confirmed",
		"bulk_movement_id", b.ID,
		"confirmed_by", in.ConfirmedBy,
	)
	return b, nil
}

// ExpireStale flips open movements whose tokens lapsed. Each movement is
// handled in its own transaction so one failure does not hold back the
// rest of the sweep.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	var stale []BulkMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		stale, err = s.bulks.ListExpired(ctx, time.Now().UTC(), limit)
		return err
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		bulkID := stale[i].ID
		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			b, err := s.bulks.GetForUpdate(ctx, bulkID)
			if err != nil {
				return err
			}
			if b.IsTerminal() {
				return nil
			}
			return s.expire(ctx, b)
		})
		if err != nil {
			logger.Warn(ctx, "failed to expire bulk movement", "bulk_movement_id", bulkID, "error", err)
			continue
		}
		expired++
	}

	if expired > 0 {
		logger.Info(ctx, "expired stale bulk movements", "count", expired)
		s.cache.Invalidate(ctx, events.CacheKeyInventory, events.CacheKeyInventoryStats)
	}
	return expired, nil
}

// expire marks b expired. A pending movement never shipped, so its stock
// goes back to the source; an in-transit movement keeps the deduction
// because the goods already left.
func (s *Service) expire(ctx context.Context, b *BulkMovement) error {
	if b.Status == StatusPending {
		for i := range b.Items {
			if err := s.restoreToSource(ctx, b, b.Items[i].ProductID, b.Items[i].QuantitySent); err != nil {
				return err
			}
		}
	}
	b.Status = StatusExpired
	b.Touch()
	return s.bulks.Update(ctx, b)
}

// deductLine validates one requested line against the source location and
// takes its quantity, snapshotting the product for the receipt page.
func (s *Service) deductLine(ctx context.Context, b *BulkMovement, line ItemInput) (*Item, error) {
	if line.Quantity <= 0 {
		return nil, apperror.NewValidation("quantity must be positive").
			WithDetail("product_id", line.ProductID.String()).
			WithDetail("value", line.Quantity)
	}

	p, err := s.products.GetForUpdate(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAtSource(ctx, b, p); err != nil {
		return nil, err
	}
	if line.Quantity > p.AvailableStock() {
		return nil, apperror.NewInsufficientStock(p.ID.String(), line.Quantity, p.AvailableStock())
	}

	remaining := p.AvailableStock() - line.Quantity
	p.StockLevel = &remaining
	if remaining == 0 {
		p.ColumnStatus = product.StatusInTransit
	}
	p.Touch()
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("deduct source stock: %w", err)
	}

	return &Item{
		ID:             id.New(),
		BulkMovementID: b.ID,
		ProductID:      p.ID,
		QuantitySent:   line.Quantity,
		SKU:            p.SKU,
		ProductDetails: p.Description,
		ImageURL:       p.ImageURL,
	}, nil
}

// checkAtSource verifies p can ship on b: a tracked, stored product
// sitting at the source location, or at any location of the source area
// when the movement was opened against an area.
func (s *Service) checkAtSource(ctx context.Context, b *BulkMovement, p *product.Product) error {
	if p.ColumnStatus != product.StatusStored {
		return apperror.NewInvalidStateTransition("product", string(p.ColumnStatus), "bulk move").
			WithDetail("product_id", p.ID.String())
	}
	if !p.Tracked() {
		return apperror.NewValidation("product stock is not tracked").
			WithDetail("product_id", p.ID.String())
	}
	if id.PtrIsNil(p.LocationID) {
		return apperror.NewValidation("product is not at the source location").
			WithDetail("product_id", p.ID.String()).
			WithDetail("source_location_id", b.FromLocationID.String())
	}
	if b.FromArea != nil {
		loc, err := s.locations.GetByID(ctx, *p.LocationID)
		if err != nil {
			return err
		}
		if loc.Area != *b.FromArea {
			return apperror.NewValidation("product is not in the source area").
				WithDetail("product_id", p.ID.String()).
				WithDetail("source_area", *b.FromArea)
		}
		return nil
	}
	if *p.LocationID != b.FromLocationID {
		return apperror.NewValidation("product is not at the source location").
			WithDetail("product_id", p.ID.String()).
			WithDetail("source_location_id", b.FromLocationID.String())
	}
	return nil
}

// deductDelta takes additional quantity from a product already on the
// movement, re-running the source checks a fresh line gets.
func (s *Service) deductDelta(ctx context.Context, b *BulkMovement, productID id.ID, delta int) error {
	p, err := s.products.GetForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	if err := s.checkAtSource(ctx, b, p); err != nil {
		return err
	}
	if delta > p.AvailableStock() {
		return apperror.NewInsufficientStock(p.ID.String(), delta, p.AvailableStock())
	}
	remaining := p.AvailableStock() - delta
	p.StockLevel = &remaining
	if remaining == 0 {
		p.ColumnStatus = product.StatusInTransit
	}
	p.Touch()
	return s.products.Update(ctx, p)
}

// restoreToSource returns quantity units to the source product, undoing
// the in-transit flip that an emptied product received.
func (s *Service) restoreToSource(ctx context.Context, b *BulkMovement, productID id.ID, quantity int) error {
	p, err := s.products.GetForUpdate(ctx, productID)
	if err != nil {
		return err
	}
	restored := p.AvailableStock() + quantity
	p.StockLevel = &restored
	if p.ColumnStatus == product.StatusInTransit {
		p.ColumnStatus = product.StatusStored
	}
	p.Touch()
	return s.products.Update(ctx, p)
}

// receiveLine settles one line: the received quantity always materializes
// as a fresh destination row carrying lineage to the origin, short
// receipts keep the shortfall deducted, and a fully shipped origin stays
// behind at the source as a zero-stock record. Every line gets a
// completed log.
func (s *Service) receiveLine(ctx context.Context, b *BulkMovement, item *Item, quantity int, confirmedBy string) error {
	origin, err := s.products.GetForUpdate(ctx, item.ProductID)
	if err != nil {
		return err
	}

	var dest *product.Product
	if quantity > 0 {
		dest, err = s.ledger.Receive(ctx, origin, quantity, b.ToLocationID)
		if err != nil {
			return err
		}
	}

	// Nothing of the origin is in transit anymore once its line settles.
	if origin.ColumnStatus == product.StatusInTransit {
		origin.ColumnStatus = product.StatusStored
		origin.Touch()
		if err := s.products.Update(ctx, origin); err != nil {
			return fmt.Errorf("settle origin product: %w", err)
		}
	}

	item.QuantityReceived = &quantity
	if err := s.bulks.UpdateItem(ctx, item); err != nil {
		return err
	}

	log := movement.NewMovementLog(item.ProductID, movement.StatusCompleted)
	log.FromLocationID = &b.FromLocationID
	log.ToLocationID = &b.ToLocationID
	log.FromStockLevel = item.QuantitySent
	log.QuantityMoved = quantity
	log.MovedBy = confirmedBy
	now := time.Now().UTC()
	log.ConfirmedBy = &confirmedBy
	log.ConfirmedAt = &now
	note := fmt.Sprintf("bulk movement %s", b.ID)
	log.Notes = &note

	if dest != nil {
		total, err := s.ledger.DestinationTotal(ctx, dest, b.ToLocationID)
		if err != nil {
			return err
		}
		log.ToStockLevel = &total
	}

	return s.movements.Create(ctx, log)
}

func (s *Service) resolveLocation(ctx context.Context, locationID *id.ID, area, side string) (id.ID, error) {
	switch {
	case !id.PtrIsNil(locationID):
		loc, err := s.locations.GetByID(ctx, *locationID)
		if err != nil {
			return id.Nil(), err
		}
		return loc.ID, nil
	case area != "":
		return s.resolver.ResolveOrCreateGeneral(ctx, area)
	default:
		return id.Nil(), apperror.NewInvalidDestination(side + " location or area is required")
	}
}
