package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chefmarket/backend/internal/domain"
)

// ScrapePrices handles POST /prices/scrape
func (h *Handler) ScrapePrices(c *gin.Context) {
	if h.scrapes == nil {
		notConfigured(c, "price scraping")
		return
	}

	var req domain.ScrapeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	results, err := h.scrapes.Scrape(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ingredientName": req.IngredientName,
		"count":          len(results),
		"results":        results,
	})
}

// ComparePrices handles GET /prices/compare/:ingredient. Missing data is a 200 with found=false.
func (h *Handler) ComparePrices(c *gin.Context) {
	if h.comparisons == nil {
		notConfigured(c, "price comparison")
		return
	}

	comparison, err := h.comparisons.Compare(c.Request.Context(), c.Param("ingredient"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comparison)
}

// PurgeHistory handles DELETE /prices/history?older_than=720h
func (h *Handler) PurgeHistory(c *gin.Context) {
	if h.scrapes == nil {
		notConfigured(c, "price scraping")
		return
	}

	raw := c.Query("older_than")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "older_than is required, e.g. older_than=720h"})
		return
	}
	age, err := time.ParseDuration(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "older_than must be a duration, e.g. 720h"})
		return
	}

	deleted, err := h.scrapes.PurgeOlderThan(c.Request.Context(), age)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// CacheStats handles GET /admin/cache/stats
func (h *Handler) CacheStats(c *gin.Context) {
	if h.cacheAdmin == nil {
		notConfigured(c, "cache")
		return
	}
	c.JSON(http.StatusOK, h.cacheAdmin.Stats(c.Request.Context()))
}

// ClearCache handles DELETE /admin/cache?pattern=price_compare:*
func (h *Handler) ClearCache(c *gin.Context) {
	if h.cacheAdmin == nil {
		notConfigured(c, "cache")
		return
	}
	deleted := h.cacheAdmin.Clear(c.Request.Context(), c.Query("pattern"))
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
