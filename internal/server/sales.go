package server

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jszwec/csvutil"
	stagingdomain "github.com/smallbiznis/pricecast/internal/staging/domain"
	"go.uber.org/zap"
)

const defaultUploadSource = "api"

type uploadResponse struct {
	Inserted int `json:"inserted"`
}

// uploadSales stages a JSON array of raw sales payloads. Records are not
// validated here; the ETL pipeline owns normalization so bad records land in
// failed status instead of being rejected wholesale.
func (s *Server) uploadSales(c *gin.Context) {
	var rows []map[string]any
	if err := c.ShouldBindJSON(&rows); err != nil {
		AbortWithError(c, fmt.Errorf("%w: body must be a JSON array of records", ErrInvalidRequest))
		return
	}
	if len(rows) == 0 {
		AbortWithError(c, fmt.Errorf("%w: no records provided", ErrInvalidRequest))
		return
	}

	source := c.DefaultQuery("source", defaultUploadSource)
	staged := make([]stagingdomain.RawSale, 0, len(rows))
	now := time.Now().UTC()
	for _, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			AbortWithError(c, fmt.Errorf("%w: record is not serializable", ErrInvalidRequest))
			return
		}
		staged = append(staged, stagingdomain.RawSale{
			UploadedAt: now,
			Source:     source,
			RawJSON:    raw,
			Status:     stagingdomain.StatusPending,
		})
	}

	if err := s.staging.BulkInsert(c.Request.Context(), s.db, staged); err != nil {
		s.log.Error("bulk insert failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{Inserted: len(staged)})
}

type csvSaleRow struct {
	ProductID string  `csv:"product_id"`
	Date      string  `csv:"date,omitempty"`
	UnitsSold int     `csv:"units_sold,omitempty"`
	Price     float64 `csv:"price,omitempty"`
	Revenue   float64 `csv:"revenue,omitempty"`
}

// uploadSalesCSV stages a CSV body with a header row. Columns map to the
// same aliases the JSON endpoint accepts.
func (s *Server) uploadSalesCSV(c *gin.Context) {
	dec, err := csvutil.NewDecoder(csv.NewReader(c.Request.Body))
	if err != nil {
		AbortWithError(c, fmt.Errorf("%w: missing or malformed CSV header", ErrInvalidRequest))
		return
	}

	var parsed []csvSaleRow
	if err := dec.Decode(&parsed); err != nil {
		AbortWithError(c, fmt.Errorf("%w: malformed CSV body", ErrInvalidRequest))
		return
	}
	if len(parsed) == 0 {
		AbortWithError(c, fmt.Errorf("%w: no records provided", ErrInvalidRequest))
		return
	}

	source := c.DefaultQuery("source", "csv")
	staged := make([]stagingdomain.RawSale, 0, len(parsed))
	now := time.Now().UTC()
	for _, row := range parsed {
		payload := map[string]any{
			"product_id": row.ProductID,
			"units_sold": row.UnitsSold,
			"price":      row.Price,
		}
		if row.Date != "" {
			payload["date"] = row.Date
		}
		if row.Revenue != 0 {
			payload["revenue"] = row.Revenue
		}

		raw, err := json.Marshal(payload)
		if err != nil {
			AbortWithError(c, ErrInternal)
			return
		}
		staged = append(staged, stagingdomain.RawSale{
			UploadedAt: now,
			Source:     source,
			RawJSON:    raw,
			Status:     stagingdomain.StatusPending,
		})
	}

	if err := s.staging.BulkInsert(c.Request.Context(), s.db, staged); err != nil {
		s.log.Error("bulk insert failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, uploadResponse{Inserted: len(staged)})
}

// runETL drains pending staging rows synchronously and reports counts.
func (s *Server) runETL(c *gin.Context) {
	res, err := s.pipeline.Run(c.Request.Context(), 0)
	if err != nil {
		s.log.Error("etl run failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}
	c.JSON(http.StatusOK, res)
}

type dashboardSummaryResponse struct {
	TotalFacts    int64            `json:"total_facts"`
	TotalUnits    int64            `json:"total_units"`
	TotalRevenue  float64          `json:"total_revenue"`
	TotalProducts int64            `json:"total_products"`
	Staging       map[string]int64 `json:"staging"`
}

func (s *Server) dashboardSummary(c *gin.Context) {
	ctx := c.Request.Context()

	summary, err := s.sales.Summarize(ctx, s.db)
	if err != nil {
		s.log.Error("summarize failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}

	statuses, err := s.staging.CountByStatus(ctx, s.db)
	if err != nil {
		s.log.Error("staging counts failed", zap.Error(err))
		AbortWithError(c, ErrInternal)
		return
	}
	for _, status := range []string{stagingdomain.StatusPending, stagingdomain.StatusProcessed, stagingdomain.StatusFailed} {
		if _, ok := statuses[status]; !ok {
			statuses[status] = 0
		}
	}

	c.JSON(http.StatusOK, dashboardSummaryResponse{
		TotalFacts:    summary.TotalFacts,
		TotalUnits:    summary.TotalUnits,
		TotalRevenue:  summary.TotalRevenue,
		TotalProducts: summary.TotalProducts,
		Staging:       statuses,
	})
}
