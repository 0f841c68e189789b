package dto

import (
	"time"

	"stocktrail/internal/domain/movement"
)

// --- Request DTOs ---

// CreateMovementRequest is the request body for moving a single product.
// The destination is a location id, an area name, a person, or any
// combination of location and person.
type CreateMovementRequest struct {
	ProductID            string  `json:"productId" binding:"required"`
	ToLocationID         *string `json:"toLocationId"`
	ToArea               string  `json:"toArea"`
	ToPersonID           *string `json:"toPersonId"`
	Quantity             int     `json:"quantity" binding:"required,min=1"`
	RequiresConfirmation bool    `json:"requiresConfirmation"`
	Notes                string  `json:"notes"`
}

// ToInput converts the request to a service input.
func (r *CreateMovementRequest) ToInput() (movement.CreateInput, error) {
	productID, err := ParseID("productId", r.ProductID)
	if err != nil {
		return movement.CreateInput{}, err
	}
	toLocationID, err := ParseOptionalID("toLocationId", r.ToLocationID)
	if err != nil {
		return movement.CreateInput{}, err
	}
	toPersonID, err := ParseOptionalID("toPersonId", r.ToPersonID)
	if err != nil {
		return movement.CreateInput{}, err
	}

	return movement.CreateInput{
		ProductID:            productID,
		ToLocationID:         toLocationID,
		ToArea:               r.ToArea,
		ToPersonID:           toPersonID,
		Quantity:             r.Quantity,
		RequiresConfirmation: r.RequiresConfirmation,
		Notes:                r.Notes,
	}, nil
}

// ConfirmMovementRequest is the body of the public confirmation POST.
type ConfirmMovementRequest struct {
	ConfirmedBy string `json:"confirmedBy" binding:"required"`
	Notes       string `json:"notes"`
}

// --- Response DTOs ---

// MovementResponse is the API shape of a movement log.
type MovementResponse struct {
	ID             string     `json:"id"`
	ProductID      string     `json:"productId"`
	FromLocationID *string    `json:"fromLocationId,omitempty"`
	ToLocationID   *string    `json:"toLocationId,omitempty"`
	FromPersonID   *string    `json:"fromPersonId,omitempty"`
	ToPersonID     *string    `json:"toPersonId,omitempty"`
	FromArea       *string    `json:"fromArea,omitempty"`
	ToArea         *string    `json:"toArea,omitempty"`
	FromStockLevel int        `json:"fromStockLevel"`
	QuantityMoved  int        `json:"quantityMoved"`
	ToStockLevel   *int       `json:"toStockLevel,omitempty"`
	MovedBy        string     `json:"movedBy"`
	TokenExpiresAt *time.Time `json:"tokenExpiresAt,omitempty"`
	ConfirmedBy    *string    `json:"confirmedBy,omitempty"`
	ConfirmedAt    *time.Time `json:"confirmedAt,omitempty"`
	Status         string     `json:"status"`
	Notes          *string    `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// CreatedMovementResponse additionally carries the public token, which is
// only revealed to the creator.
type CreatedMovementResponse struct {
	MovementResponse
	PublicToken *string `json:"publicToken,omitempty"`
}

// FromMovementLog converts a movement log to its API shape.
func FromMovementLog(m *movement.MovementLog) MovementResponse {
	resp := MovementResponse{
		ID:             m.ID.String(),
		ProductID:      m.ProductID.String(),
		FromArea:       m.FromArea,
		ToArea:         m.ToArea,
		FromStockLevel: m.FromStockLevel,
		QuantityMoved:  m.QuantityMoved,
		ToStockLevel:   m.ToStockLevel,
		MovedBy:        m.MovedBy,
		TokenExpiresAt: m.TokenExpiresAt,
		ConfirmedBy:    m.ConfirmedBy,
		ConfirmedAt:    m.ConfirmedAt,
		Status:         string(m.Status),
		Notes:          m.Notes,
		CreatedAt:      m.CreatedAt,
	}
	resp.FromLocationID = idString(m.FromLocationID)
	resp.ToLocationID = idString(m.ToLocationID)
	resp.FromPersonID = idString(m.FromPersonID)
	resp.ToPersonID = idString(m.ToPersonID)
	return resp
}

// FromCreatedMovementLog includes the public token for the creator.
func FromCreatedMovementLog(m *movement.MovementLog) CreatedMovementResponse {
	return CreatedMovementResponse{
		MovementResponse: FromMovementLog(m),
		PublicToken:      m.PublicToken,
	}
}

// FromMovementLogs converts a slice of logs.
func FromMovementLogs(logs []movement.MovementLog) []MovementResponse {
	out := make([]MovementResponse, 0, len(logs))
	for i := range logs {
		out = append(out, FromMovementLog(&logs[i]))
	}
	return out
}
