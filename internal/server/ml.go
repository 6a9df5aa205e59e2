package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	elasticitydomain "github.com/smallbiznis/pricecast/internal/elasticity/domain"
	forecastdomain "github.com/smallbiznis/pricecast/internal/forecast/domain"
	pricingdomain "github.com/smallbiznis/pricecast/internal/pricing/domain"
)

const dateLayout = "2006-01-02"

type estimateElasticityRequest struct {
	ProductID  string  `json:"product_id" binding:"required"`
	WindowDays int     `json:"window_days"`
	MinPriceCV float64 `json:"min_price_variance"`
	MinR2      float64 `json:"min_r2_threshold"`
}

func (s *Server) estimateElasticity(c *gin.Context) {
	var req estimateElasticityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, err))
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: product_id must be a UUID", ErrInvalidRequest))
		return
	}

	est, err := s.elasticity.Estimate(c.Request.Context(), elasticitydomain.EstimateRequest{
		ProductID:  productID,
		WindowDays: req.WindowDays,
		MinPriceCV: req.MinPriceCV,
		MinR2:      req.MinR2,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

type runForecastRequest struct {
	ProductID   string `json:"product_id" binding:"required"`
	Horizon     int    `json:"horizon"`
	MinDataDays int    `json:"min_data_days"`
	TestDays    int    `json:"test_days"`
	Recursive   bool   `json:"recursive"`
}

func (s *Server) runForecast(c *gin.Context) {
	var req runForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, err))
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: product_id must be a UUID", ErrInvalidRequest))
		return
	}

	res, err := s.forecasts.Run(c.Request.Context(), forecastdomain.Request{
		ProductID:   productID,
		Horizon:     req.Horizon,
		MinDataDays: req.MinDataDays,
		TestDays:    req.TestDays,
		Recursive:   req.Recursive,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type recommendPricesRequest struct {
	ProductID   string   `json:"product_id" binding:"required"`
	Objective   string   `json:"objective"`
	PMin        *float64 `json:"pmin"`
	PMax        *float64 `json:"pmax"`
	TargetDates []string `json:"target_dates"`
	Horizon     int      `json:"horizon"`
}

func (s *Server) recommendPrices(c *gin.Context) {
	var req recommendPricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, fmt.Errorf("%w: %s", ErrInvalidRequest, err))
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: product_id must be a UUID", ErrInvalidRequest))
		return
	}

	var targetDates []time.Time
	for _, raw := range req.TargetDates {
		d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: target date %q is not YYYY-MM-DD", ErrInvalidRequest, raw))
			return
		}
		targetDates = append(targetDates, d)
	}

	res, err := s.pricing.Recommend(c.Request.Context(), pricingdomain.RecommendRequest{
		ProductID:   productID,
		Objective:   req.Objective,
		PMin:        req.PMin,
		PMax:        req.PMax,
		TargetDates: targetDates,
		Horizon:     req.Horizon,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
