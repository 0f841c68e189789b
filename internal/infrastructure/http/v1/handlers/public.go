package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktrail/internal/domain/bulk"
	"stocktrail/internal/domain/movement"
	"stocktrail/internal/infrastructure/http/v1/dto"
)

// PublicHandler exposes the unauthenticated token endpoints. A token is
// the sole credential: whoever holds the link can view and confirm.
type PublicHandler struct {
	*BaseHandler
	movements *movement.Service
	bulks     *bulk.Service
}

// NewPublicHandler creates a public token handler.
func NewPublicHandler(base *BaseHandler, movements *movement.Service, bulks *bulk.Service) *PublicHandler {
	return &PublicHandler{BaseHandler: base, movements: movements, bulks: bulks}
}

// GetMovement handles GET /public/movements/:token.
func (h *PublicHandler) GetMovement(c *gin.Context) {
	log, err := h.movements.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMovementLog(log))
}

// ConfirmMovement handles POST /public/movements/:token/confirm.
func (h *PublicHandler) ConfirmMovement(c *gin.Context) {
	var req dto.ConfirmMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	log, err := h.movements.ConfirmByToken(c.Request.Context(), c.Param("token"), req.ConfirmedBy, req.Notes)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMovementLog(log))
}

// GetBulk handles GET /public/bulk-movements/:token.
func (h *PublicHandler) GetBulk(c *gin.Context) {
	b, err := h.bulks.GetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBulkMovement(b))
}

// ConfirmBulk handles POST /public/bulk-movements/:token/confirm.
func (h *PublicHandler) ConfirmBulk(c *gin.Context) {
	var req dto.ConfirmBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	b, err := h.bulks.Confirm(c.Request.Context(), c.Param("token"), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBulkMovement(b))
}
