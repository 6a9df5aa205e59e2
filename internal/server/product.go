package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	pricingdomain "github.com/smallbiznis/pricecast/internal/pricing/domain"
)

func (s *Server) listProducts(c *gin.Context) {
	items, err := s.products.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": items})
}

func (s *Server) getProduct(c *gin.Context) {
	item, err := s.products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (s *Server) getProductForecasts(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: product id must be a UUID", ErrInvalidRequest))
		return
	}

	from, to, err := dateRangeQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	items, err := s.forecasts.List(c.Request.Context(), productID, from, to)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forecasts": items})
}

func (s *Server) getProductRecommendations(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: product id must be a UUID", ErrInvalidRequest))
		return
	}

	from, to, err := dateRangeQuery(c)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	objective := c.Query("objective")
	if objective != "" && objective != pricingdomain.ObjectiveRevenue && objective != pricingdomain.ObjectiveProfit {
		AbortWithError(c, fmt.Errorf("%w: %q", pricingdomain.ErrInvalidObjective, objective))
		return
	}

	items, err := s.pricing.List(c.Request.Context(), productID, from, to, objective)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recommendations": items})
}

// dateRangeQuery parses optional from/to query parameters as YYYY-MM-DD.
func dateRangeQuery(c *gin.Context) (from, to *time.Time, err error) {
	if raw := c.Query("from"); raw != "" {
		d, parseErr := time.ParseInLocation(dateLayout, raw, time.UTC)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%w: from %q is not YYYY-MM-DD", ErrInvalidRequest, raw)
		}
		from = &d
	}
	if raw := c.Query("to"); raw != "" {
		d, parseErr := time.ParseInLocation(dateLayout, raw, time.UTC)
		if parseErr != nil {
			return nil, nil, fmt.Errorf("%w: to %q is not YYYY-MM-DD", ErrInvalidRequest, raw)
		}
		to = &d
	}
	return from, to, nil
}
