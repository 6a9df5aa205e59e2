package repository

import (
	"context"

	"github.com/smallbiznis/pricecast/internal/staging/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) BulkInsert(ctx context.Context, db *gorm.DB, rows []domain.RawSale) error {
	if len(rows) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(rows, 1000).Error
}

func (r *repo) ClaimPending(ctx context.Context, tx *gorm.DB, limit int) ([]domain.RawSale, error) {
	query := `SELECT raw_id, uploaded_at, source, raw_json, status, error_message
	 FROM raw_sales
	 WHERE status = ?
	 ORDER BY raw_id
	 LIMIT ?`
	// sqlite has no row locks; single-writer semantics cover the tests.
	if tx.Dialector.Name() != "sqlite" {
		query += " FOR UPDATE SKIP LOCKED"
	}

	var rows []domain.RawSale
	if err := tx.WithContext(ctx).Raw(query, domain.StatusPending, limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) MarkProcessed(ctx context.Context, tx *gorm.DB, rawID int64) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE raw_sales SET status = ?, error_message = NULL WHERE raw_id = ?`,
		domain.StatusProcessed,
		rawID,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, tx *gorm.DB, rawID int64, detail string) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE raw_sales SET status = ?, error_message = ? WHERE raw_id = ?`,
		domain.StatusFailed,
		detail,
		rawID,
	).Error
}

func (r *repo) CountByStatus(ctx context.Context, db *gorm.DB) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Total  int64
	}
	var counts []statusCount
	err := db.WithContext(ctx).Raw(
		`SELECT status, COUNT(*) AS total FROM raw_sales GROUP BY status`,
	).Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(counts))
	for _, c := range counts {
		out[c.Status] = c.Total
	}
	return out, nil
}
