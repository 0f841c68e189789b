package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktrail/internal/domain/movement"
	"stocktrail/internal/infrastructure/http/v1/dto"
)

// MovementHandler exposes single-product movements.
type MovementHandler struct {
	*BaseHandler
	service *movement.Service
}

// NewMovementHandler creates a movement handler.
func NewMovementHandler(base *BaseHandler, service *movement.Service) *MovementHandler {
	return &MovementHandler{BaseHandler: base, service: service}
}

// Create handles POST /api/v1/movements.
func (h *MovementHandler) Create(c *gin.Context) {
	var req dto.CreateMovementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	log, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCreatedMovementLog(log))
}

// Get handles GET /api/v1/movements/:id.
func (h *MovementHandler) Get(c *gin.Context) {
	logID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	log, err := h.service.GetByID(c.Request.Context(), logID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromMovementLog(log))
}

// List handles GET /api/v1/movements.
func (h *MovementHandler) List(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	logs, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Items: dto.FromMovementLogs(logs),
		Page:  filter.Offset/filter.Limit + 1,
		Count: len(logs),
	})
}

// Cancel handles POST /api/v1/movements/:id/cancel.
func (h *MovementHandler) Cancel(c *gin.Context) {
	logID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Cancel(c.Request.Context(), logID); err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// ExpireStale handles POST /api/v1/maintenance/expire-movements. The worker
// sweeps on a schedule; this triggers the same sweep on demand.
func (h *MovementHandler) ExpireStale(c *gin.Context) {
	expired, err := h.service.ExpireStale(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

func (h *MovementHandler) parseFilter(c *gin.Context) (movement.ListFilter, error) {
	var page dto.PaginationRequest
	page.Page = h.ParseIntQuery(c, "page", 1)
	page.PageSize = h.ParseIntQuery(c, "pageSize", 50)
	page.Defaults()

	filter := movement.DefaultListFilter()
	filter.Limit = page.PageSize
	filter.Offset = page.Offset()

	var err error
	if v := c.Query("productId"); v != "" {
		if filter.ProductID, err = dto.ParseOptionalID("productId", &v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("locationId"); v != "" {
		if filter.LocationID, err = dto.ParseOptionalID("locationId", &v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("status"); v != "" {
		status := movement.Status(v)
		filter.Status = &status
	}
	if filter.DateFrom, err = dto.ParseOptionalTime("dateFrom", c.Query("dateFrom")); err != nil {
		return filter, err
	}
	if filter.DateTo, err = dto.ParseOptionalTime("dateTo", c.Query("dateTo")); err != nil {
		return filter, err
	}
	return filter, nil
}
