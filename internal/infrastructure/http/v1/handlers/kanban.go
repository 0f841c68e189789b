package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktrail/internal/domain/kanban"
	"stocktrail/internal/domain/product"
	"stocktrail/internal/infrastructure/http/v1/dto"
)

// KanbanHandler exposes board transitions of products.
type KanbanHandler struct {
	*BaseHandler
	service *kanban.Service
}

// NewKanbanHandler creates a kanban handler.
func NewKanbanHandler(base *BaseHandler, service *kanban.Service) *KanbanHandler {
	return &KanbanHandler{BaseHandler: base, service: service}
}

// ChangeStatus handles POST /api/v1/products/:id/status.
func (h *KanbanHandler) ChangeStatus(c *gin.Context) {
	productID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	var req dto.ChangeStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	p, err := h.service.ChangeStatus(c.Request.Context(), productID, product.Status(req.Status))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Validate handles POST /api/v1/products/:id/validate.
func (h *KanbanHandler) Validate(c *gin.Context) {
	productID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	v, err := h.service.Validate(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromValidation(v))
}

// TransferHistory handles GET /api/v1/products/:id/transfers.
func (h *KanbanHandler) TransferHistory(c *gin.Context) {
	productID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	logs, err := h.service.TransferHistory(c.Request.Context(), productID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Items: dto.FromTransferLogs(logs),
		Page:  1,
		Count: len(logs),
	})
}
