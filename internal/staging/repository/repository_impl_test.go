package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/smallbiznis/pricecast/internal/staging/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.RawSale{}))
	return db
}

func stageRows(t *testing.T, db *gorm.DB, repo domain.Repository, n int) {
	t.Helper()

	rows := make([]domain.RawSale, n)
	for i := range rows {
		rows[i] = domain.RawSale{
			UploadedAt: time.Now().UTC(),
			Source:     "test",
			RawJSON:    datatypes.JSON(`{"product_id":"x"}`),
			Status:     domain.StatusPending,
		}
	}
	require.NoError(t, repo.BulkInsert(context.Background(), db, rows))
}

func TestBulkInsertAssignsRawIDs(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()

	stageRows(t, db, repo, 4)

	var rows []domain.RawSale
	require.NoError(t, db.Order("raw_id").Find(&rows).Error)
	require.Len(t, rows, 4)

	seen := make(map[int64]bool, len(rows))
	for _, row := range rows {
		assert.NotZero(t, row.RawID)
		assert.False(t, seen[row.RawID])
		seen[row.RawID] = true
	}
}

func TestClaimPendingRespectsLimitAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	stageRows(t, db, repo, 5)

	claimed, err := repo.ClaimPending(ctx, db, 3)
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	// Oldest rows first.
	assert.Less(t, claimed[0].RawID, claimed[1].RawID)
	assert.Less(t, claimed[1].RawID, claimed[2].RawID)
}

func TestStatusTransitions(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	stageRows(t, db, repo, 2)

	claimed, err := repo.ClaimPending(ctx, db, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	require.NoError(t, repo.MarkProcessed(ctx, db, claimed[0].RawID))
	require.NoError(t, repo.MarkFailed(ctx, db, claimed[1].RawID, "units_sold: cannot be negative"))

	var processed domain.RawSale
	require.NoError(t, db.First(&processed, "raw_id = ?", claimed[0].RawID).Error)
	assert.Equal(t, domain.StatusProcessed, processed.Status)
	assert.Nil(t, processed.ErrorMessage)

	var failed domain.RawSale
	require.NoError(t, db.First(&failed, "raw_id = ?", claimed[1].RawID).Error)
	assert.Equal(t, domain.StatusFailed, failed.Status)
	require.NotNil(t, failed.ErrorMessage)
	assert.Equal(t, "units_sold: cannot be negative", *failed.ErrorMessage)

	// Terminal rows are no longer claimable.
	remaining, err := repo.ClaimPending(ctx, db, 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCountByStatus(t *testing.T) {
	db := newTestDB(t)
	repo := Provide()
	ctx := context.Background()

	stageRows(t, db, repo, 3)
	claimed, err := repo.ClaimPending(ctx, db, 1)
	require.NoError(t, err)
	require.NoError(t, repo.MarkProcessed(ctx, db, claimed[0].RawID))

	counts, err := repo.CountByStatus(ctx, db)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[domain.StatusPending])
	assert.EqualValues(t, 1, counts[domain.StatusProcessed])
}
