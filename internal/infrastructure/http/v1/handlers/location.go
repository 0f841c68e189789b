package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktrail/internal/domain/location"
	"stocktrail/internal/infrastructure/http/v1/dto"
)

// LocationHandler exposes locations and area resolution.
type LocationHandler struct {
	*BaseHandler
	locations location.Repository
	resolver  *location.Resolver
}

// NewLocationHandler creates a location handler.
func NewLocationHandler(base *BaseHandler, locations location.Repository, resolver *location.Resolver) *LocationHandler {
	return &LocationHandler{BaseHandler: base, locations: locations, resolver: resolver}
}

// List handles GET /api/v1/locations.
func (h *LocationHandler) List(c *gin.Context) {
	locs, err := h.locations.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Items: dto.FromLocations(locs),
		Page:  1,
		Count: len(locs),
	})
}

// Get handles GET /api/v1/locations/:id.
func (h *LocationHandler) Get(c *gin.Context) {
	locationID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	loc, err := h.locations.GetByID(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLocation(loc))
}

// ResolveArea handles POST /api/v1/locations/resolve-area. Returns the
// area's General location, creating it when absent.
func (h *LocationHandler) ResolveArea(c *gin.Context) {
	var req dto.ResolveAreaRequest
	if !h.BindJSON(c, &req) {
		return
	}

	locationID, err := h.resolver.ResolveOrCreateGeneral(c.Request.Context(), req.Area)
	if err != nil {
		h.Error(c, err)
		return
	}

	loc, err := h.locations.GetByID(c.Request.Context(), locationID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromLocation(loc))
}
