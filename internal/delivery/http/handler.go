package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// PriceSourceUsecase is the registry surface the handlers need
type PriceSourceUsecase interface {
	Create(ctx context.Context, in domain.PriceSourceInput) (*domain.PriceSource, error)
	Update(ctx context.Context, id int64, in domain.PriceSourceInput) (*domain.PriceSource, error)
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.PriceSource, error)
	GetAll(ctx context.Context, activeOnly bool) ([]domain.PriceSource, error)
}

// ScrapeUsecase runs scrapes and history retention
type ScrapeUsecase interface {
	Scrape(ctx context.Context, req *domain.ScrapeRequest) ([]domain.ScrapedPrice, error)
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// ComparisonUsecase aggregates prices across sources
type ComparisonUsecase interface {
	Compare(ctx context.Context, ingredient string) (*domain.PriceComparison, error)
}

// CacheAdminUsecase exposes cache statistics and manual invalidation
type CacheAdminUsecase interface {
	Stats(ctx context.Context) domain.CacheStats
	Clear(ctx context.Context, pattern string) int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	sources     PriceSourceUsecase
	scrapes     ScrapeUsecase
	comparisons ComparisonUsecase
	cacheAdmin  CacheAdminUsecase
	logger      *zap.Logger
}

// Dependencies groups the usecases served over HTTP. Nil usecases answer 501.
type Dependencies struct {
	Sources     PriceSourceUsecase
	Scrapes     ScrapeUsecase
	Comparisons ComparisonUsecase
	CacheAdmin  CacheAdminUsecase
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies, logger *zap.Logger) *Handler {
	return &Handler{
		sources:     deps.Sources,
		scrapes:     deps.Scrapes,
		comparisons: deps.Comparisons,
		cacheAdmin:  deps.CacheAdmin,
		logger:      logging.OrNop(logger),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	cacheEnabled := false
	if h.cacheAdmin != nil {
		cacheEnabled = h.cacheAdmin.Stats(c.Request.Context()).Enabled
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"service":      "chefmarket-backend",
		"version":      "1.0.0",
		"cacheEnabled": cacheEnabled,
	})
}

// fieldError is one rejected field in a 400 response
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// respondError maps usecase errors to status codes. Anything unrecognized is a 500 and
// its detail stays in the log.
func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "validation failed",
			"fields": validationFields(err),
		})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSourceNotFound), errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrNoActiveSources):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "request cancelled"})
	default:
		h.logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// validationFields flattens joined validation errors
func validationFields(err error) []fieldError {
	var out []fieldError
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			out = append(out, fieldError{Field: verr.Field, Message: verr.Message})
			return
		}
		out = append(out, fieldError{Message: err.Error()})
	}
	walk(err)
	return out
}

func notConfigured(c *gin.Context, what string) {
	c.JSON(http.StatusNotImplemented, gin.H{"error": what + " not configured"})
}
