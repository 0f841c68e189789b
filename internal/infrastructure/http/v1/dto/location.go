package dto

import (
	"time"

	"stocktrail/internal/domain/location"
)

// ResolveAreaRequest asks for the General location of an area.
type ResolveAreaRequest struct {
	Area string `json:"area" binding:"required"`
}

// LocationResponse is the API shape of a location.
type LocationResponse struct {
	ID        string    `json:"id"`
	Area      string    `json:"area"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromLocation converts a location to its API shape.
func FromLocation(l *location.Location) LocationResponse {
	return LocationResponse{
		ID:        l.ID.String(),
		Area:      l.Area,
		Name:      l.Name,
		Code:      l.Code,
		IsActive:  l.IsActive,
		CreatedAt: l.CreatedAt,
	}
}

// FromLocations converts a slice of locations.
func FromLocations(locations []location.Location) []LocationResponse {
	out := make([]LocationResponse, 0, len(locations))
	for i := range locations {
		out = append(out, FromLocation(&locations[i]))
	}
	return out
}
