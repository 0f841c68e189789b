package dto

import (
	"time"

	"stocktrail/internal/domain/bulk"
)

// --- Request DTOs ---

// BulkItemRequest is one requested transfer line.
type BulkItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CreateBulkRequest is the request body for opening a bulk movement.
type CreateBulkRequest struct {
	FromLocationID *string           `json:"fromLocationId"`
	FromArea       string            `json:"fromArea"`
	ToLocationID   *string           `json:"toLocationId"`
	ToArea         string            `json:"toArea"`
	Notes          string            `json:"notes"`
	Items          []BulkItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ToInput converts the request to a service input.
func (r *CreateBulkRequest) ToInput() (bulk.CreateInput, error) {
	fromLocationID, err := ParseOptionalID("fromLocationId", r.FromLocationID)
	if err != nil {
		return bulk.CreateInput{}, err
	}
	toLocationID, err := ParseOptionalID("toLocationId", r.ToLocationID)
	if err != nil {
		return bulk.CreateInput{}, err
	}
	items, err := toItemInputs(r.Items)
	if err != nil {
		return bulk.CreateInput{}, err
	}

	return bulk.CreateInput{
		FromLocationID: fromLocationID,
		FromArea:       r.FromArea,
		ToLocationID:   toLocationID,
		ToArea:         r.ToArea,
		Notes:          r.Notes,
		Items:          items,
	}, nil
}

// UpdateBulkRequest revises an open movement: a new destination, a
// replacement item set, or both.
type UpdateBulkRequest struct {
	ToLocationID *string           `json:"toLocationId"`
	ToArea       string            `json:"toArea"`
	Items        []BulkItemRequest `json:"items" binding:"omitempty,dive"`
}

// ToInput converts the request to a service input.
func (r *UpdateBulkRequest) ToInput() (bulk.UpdateInput, error) {
	toLocationID, err := ParseOptionalID("toLocationId", r.ToLocationID)
	if err != nil {
		return bulk.UpdateInput{}, err
	}
	items, err := toItemInputs(r.Items)
	if err != nil {
		return bulk.UpdateInput{}, err
	}
	return bulk.UpdateInput{
		ToLocationID: toLocationID,
		ToArea:       r.ToArea,
		Items:        items,
	}, nil
}

func toItemInputs(reqs []BulkItemRequest) ([]bulk.ItemInput, error) {
	items := make([]bulk.ItemInput, 0, len(reqs))
	for _, line := range reqs {
		productID, err := ParseID("productId", line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, bulk.ItemInput{ProductID: productID, Quantity: line.Quantity})
	}
	return items, nil
}

// BulkReceiptRequest records how many units of a line arrived.
type BulkReceiptRequest struct {
	ItemID           string `json:"itemId" binding:"required"`
	QuantityReceived int    `json:"quantityReceived" binding:"min=0"`
}

// ConfirmBulkRequest is the body of the public receiving POST. Lines not
// listed are received in full.
type ConfirmBulkRequest struct {
	ConfirmedBy string               `json:"confirmedBy" binding:"required"`
	Notes       string               `json:"notes"`
	Items       []BulkReceiptRequest `json:"items" binding:"dive"`
}

// ToInput converts the request to a service input.
func (r *ConfirmBulkRequest) ToInput() (bulk.ConfirmInput, error) {
	receipts := make([]bulk.Receipt, 0, len(r.Items))
	for _, line := range r.Items {
		itemID, err := ParseID("itemId", line.ItemID)
		if err != nil {
			return bulk.ConfirmInput{}, err
		}
		receipts = append(receipts, bulk.Receipt{ItemID: itemID, QuantityReceived: line.QuantityReceived})
	}
	return bulk.ConfirmInput{
		ConfirmedBy: r.ConfirmedBy,
		Notes:       r.Notes,
		Receipts:    receipts,
	}, nil
}

// --- Response DTOs ---

// BulkItemResponse is the API shape of one transfer line.
type BulkItemResponse struct {
	ID               string  `json:"id"`
	ProductID        string  `json:"productId"`
	QuantitySent     int     `json:"quantitySent"`
	QuantityReceived *int    `json:"quantityReceived,omitempty"`
	SKU              *string `json:"sku,omitempty"`
	ProductDetails   string  `json:"productDetails"`
	ImageURL         *string `json:"imageUrl,omitempty"`
}

// BulkResponse is the API shape of a bulk movement.
type BulkResponse struct {
	ID             string             `json:"id"`
	FromLocationID string             `json:"fromLocationId"`
	ToLocationID   string             `json:"toLocationId"`
	FromArea       *string            `json:"fromArea,omitempty"`
	ToArea         *string            `json:"toArea,omitempty"`
	Status         string             `json:"status"`
	TokenExpiresAt *time.Time         `json:"tokenExpiresAt,omitempty"`
	CreatedBy      string             `json:"createdBy"`
	ConfirmedBy    *string            `json:"confirmedBy,omitempty"`
	ConfirmedAt    *time.Time         `json:"confirmedAt,omitempty"`
	CancelledAt    *time.Time         `json:"cancelledAt,omitempty"`
	Notes          *string            `json:"notes,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
	Items          []BulkItemResponse `json:"items"`
}

// CreatedBulkResponse additionally carries the receiving token.
type CreatedBulkResponse struct {
	BulkResponse
	PublicToken *string `json:"publicToken,omitempty"`
}

// FromBulkMovement converts a bulk movement to its API shape.
func FromBulkMovement(b *bulk.BulkMovement) BulkResponse {
	items := make([]BulkItemResponse, 0, len(b.Items))
	for i := range b.Items {
		it := &b.Items[i]
		items = append(items, BulkItemResponse{
			ID:               it.ID.String(),
			ProductID:        it.ProductID.String(),
			QuantitySent:     it.QuantitySent,
			QuantityReceived: it.QuantityReceived,
			SKU:              it.SKU,
			ProductDetails:   it.ProductDetails,
			ImageURL:         it.ImageURL,
		})
	}

	return BulkResponse{
		ID:             b.ID.String(),
		FromLocationID: b.FromLocationID.String(),
		ToLocationID:   b.ToLocationID.String(),
		FromArea:       b.FromArea,
		ToArea:         b.ToArea,
		Status:         string(b.Status),
		TokenExpiresAt: b.TokenExpiresAt,
		CreatedBy:      b.CreatedBy,
		ConfirmedBy:    b.ConfirmedBy,
		ConfirmedAt:    b.ConfirmedAt,
		CancelledAt:    b.CancelledAt,
		Notes:          b.Notes,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
		Items:          items,
	}
}

// FromCreatedBulkMovement includes the receiving token for the creator.
func FromCreatedBulkMovement(b *bulk.BulkMovement) CreatedBulkResponse {
	return CreatedBulkResponse{
		BulkResponse: FromBulkMovement(b),
		PublicToken:  b.PublicToken,
	}
}

// FromBulkMovements converts a slice of movements.
func FromBulkMovements(movements []bulk.BulkMovement) []BulkResponse {
	out := make([]BulkResponse, 0, len(movements))
	for i := range movements {
		out = append(out, FromBulkMovement(&movements[i]))
	}
	return out
}
