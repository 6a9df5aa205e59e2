package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	elasticitydomain "github.com/smallbiznis/pricecast/internal/elasticity/domain"
	"github.com/smallbiznis/pricecast/internal/etl"
	forecastdomain "github.com/smallbiznis/pricecast/internal/forecast/domain"
	pricingdomain "github.com/smallbiznis/pricecast/internal/pricing/domain"
	productdomain "github.com/smallbiznis/pricecast/internal/product/domain"
)

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
	ErrInternal        = errors.New("internal_error")
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrorHandlingMiddleware converts errors recorded on the gin context into a
// uniform JSON error body. Handlers call AbortWithError instead of shaping
// error responses themselves.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if etl.IsValidationError(err) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	}

	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, productdomain.ErrInvalidID),
		errors.Is(err, elasticitydomain.ErrInvalidProduct),
		errors.Is(err, forecastdomain.ErrInvalidProduct),
		errors.Is(err, pricingdomain.ErrInvalidProduct),
		errors.Is(err, pricingdomain.ErrInvalidObjective),
		errors.Is(err, pricingdomain.ErrInvalidPriceBounds):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: err.Error(),
		}
	case errors.Is(err, productdomain.ErrNotFound),
		errors.Is(err, pricingdomain.ErrProductNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	case errors.Is(err, elasticitydomain.ErrInsufficientData),
		errors.Is(err, elasticitydomain.ErrInsufficientPriceVariation),
		errors.Is(err, forecastdomain.ErrInsufficientData),
		errors.Is(err, pricingdomain.ErrElasticityNotFound),
		errors.Is(err, pricingdomain.ErrSalesNotFound):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "too_many_requests",
			Message: "rate limit exceeded",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}
