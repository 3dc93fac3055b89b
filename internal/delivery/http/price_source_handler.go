package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/chefmarket/backend/internal/domain"
)

// ListPriceSources handles GET /price-sources?active=true
func (h *Handler) ListPriceSources(c *gin.Context) {
	if h.sources == nil {
		notConfigured(c, "price sources")
		return
	}

	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active must be a boolean"})
			return
		}
		activeOnly = v
	}

	sources, err := h.sources.GetAll(c.Request.Context(), activeOnly)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(sources), "results": sources})
}

// GetPriceSource handles GET /price-sources/:id
func (h *Handler) GetPriceSource(c *gin.Context) {
	if h.sources == nil {
		notConfigured(c, "price sources")
		return
	}
	id, ok := sourceID(c)
	if !ok {
		return
	}

	source, err := h.sources.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// CreatePriceSource handles POST /price-sources
func (h *Handler) CreatePriceSource(c *gin.Context) {
	if h.sources == nil {
		notConfigured(c, "price sources")
		return
	}

	var in domain.PriceSourceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	source, err := h.sources.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, source)
}

// UpdatePriceSource handles PUT /price-sources/:id. Omitted fields are left unchanged.
func (h *Handler) UpdatePriceSource(c *gin.Context) {
	if h.sources == nil {
		notConfigured(c, "price sources")
		return
	}
	id, ok := sourceID(c)
	if !ok {
		return
	}

	var in domain.PriceSourceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	source, err := h.sources.Update(c.Request.Context(), id, in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, source)
}

// DeletePriceSource handles DELETE /price-sources/:id
func (h *Handler) DeletePriceSource(c *gin.Context) {
	if h.sources == nil {
		notConfigured(c, "price sources")
		return
	}
	id, ok := sourceID(c)
	if !ok {
		return
	}

	if err := h.sources.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func sourceID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return 0, false
	}
	return id, true
}
