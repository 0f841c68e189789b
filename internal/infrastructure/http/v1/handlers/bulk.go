package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"stocktrail/internal/domain/bulk"
	"stocktrail/internal/infrastructure/http/v1/dto"
)

// BulkHandler exposes multi-item transfers.
type BulkHandler struct {
	*BaseHandler
	service *bulk.Service
}

// NewBulkHandler creates a bulk movement handler.
func NewBulkHandler(base *BaseHandler, service *bulk.Service) *BulkHandler {
	return &BulkHandler{BaseHandler: base, service: service}
}

// Create handles POST /api/v1/bulk-movements.
func (h *BulkHandler) Create(c *gin.Context) {
	var req dto.CreateBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}

	input, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCreatedBulkMovement(b))
}

// Get handles GET /api/v1/bulk-movements/:id.
func (h *BulkHandler) Get(c *gin.Context) {
	bulkID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), bulkID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBulkMovement(b))
}

// List handles GET /api/v1/bulk-movements.
func (h *BulkHandler) List(c *gin.Context) {
	filter, err := h.parseFilter(c)
	if err != nil {
		h.Error(c, err)
		return
	}

	movements, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListResponse{
		Items: dto.FromBulkMovements(movements),
		Page:  filter.Offset/filter.Limit + 1,
		Count: len(movements),
	})
}

// Update handles PUT /api/v1/bulk-movements/:id.
func (h *BulkHandler) Update(c *gin.Context) {
	bulkID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	var req dto.UpdateBulkRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}

	b, err := h.service.Update(c.Request.Context(), bulkID, in)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBulkMovement(b))
}

// Cancel handles POST /api/v1/bulk-movements/:id/cancel.
func (h *BulkHandler) Cancel(c *gin.Context) {
	bulkID, err := dto.ParseID("id", c.Param("id"))
	if err != nil {
		h.Error(c, err)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), bulkID)
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromBulkMovement(b))
}

// ExpireStale handles POST /api/v1/maintenance/expire-bulk-movements.
func (h *BulkHandler) ExpireStale(c *gin.Context) {
	expired, err := h.service.ExpireStale(c.Request.Context(), h.ParseIntQuery(c, "limit", 100))
	if err != nil {
		h.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired": expired})
}

func (h *BulkHandler) parseFilter(c *gin.Context) (bulk.ListFilter, error) {
	var page dto.PaginationRequest
	page.Page = h.ParseIntQuery(c, "page", 1)
	page.PageSize = h.ParseIntQuery(c, "pageSize", 50)
	page.Defaults()

	filter := bulk.DefaultListFilter()
	filter.Limit = page.PageSize
	filter.Offset = page.Offset()

	var err error
	if v := c.Query("locationId"); v != "" {
		if filter.LocationID, err = dto.ParseOptionalID("locationId", &v); err != nil {
			return filter, err
		}
	}
	if v := c.Query("status"); v != "" {
		status := bulk.Status(v)
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
