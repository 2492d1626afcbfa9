package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openphotolab/enhancebackend/database"
	"github.com/openphotolab/enhancebackend/media"
	"github.com/openphotolab/enhancebackend/models"
)

func newTestRepo(t *testing.T) *EnhancementRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Enhancement{}))
	return NewEnhancementRepository(db)
}

func TestCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	record, err := repo.Create("IMG_0001.jpg")
	require.NoError(t, err)
	assert.NotZero(t, record.ID)
	assert.Equal(t, database.StatusPending, record.Status)

	loaded, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, "IMG_0001.jpg", loaded.SourceName)
}

func TestGetMissingRecord(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetByID(9999)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestFinishSuccess(t *testing.T) {
	repo := newTestRepo(t)
	record, err := repo.Create("portrait.jpg")
	require.NoError(t, err)

	require.NoError(t, repo.MarkProcessing(record.ID))

	processed := &media.ProcessedImage{
		OutputPath: "enhanced/abc.jpg",
		Width:      4032,
		Height:     3024,
	}
	processed.Metrics.ExposureLevel = -0.4
	processed.Params.ContrastAdjustment = 1.1

	require.NoError(t, repo.Finish(record.ID, processed, nil))

	loaded, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusDone, loaded.Status)
	require.NotNil(t, loaded.OutputPath)
	assert.Equal(t, "enhanced/abc.jpg", *loaded.OutputPath)
	require.NotNil(t, loaded.MetricsJSON)
	assert.Contains(t, *loaded.MetricsJSON, "-0.4")
	require.NotNil(t, loaded.ProcessedAt)
	assert.Nil(t, loaded.Error)
}

func TestFinishFailure(t *testing.T) {
	repo := newTestRepo(t)
	record, err := repo.Create("broken.jpg")
	require.NoError(t, err)

	require.NoError(t, repo.Finish(record.ID, nil, errors.New("decode failed")))

	loaded, err := repo.GetByID(record.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusError, loaded.Status)
	require.NotNil(t, loaded.Error)
	assert.Equal(t, "decode failed", *loaded.Error)
	assert.Nil(t, loaded.OutputPath)
}

func TestList(t *testing.T) {
	repo := newTestRepo(t)

	first, err := repo.Create("a.jpg")
	require.NoError(t, err)
	_, err = repo.Create("b.jpg")
	require.NoError(t, err)
	require.NoError(t, repo.Finish(first.ID, &media.ProcessedImage{OutputPath: "enhanced/a.jpg"}, nil))

	t.Run("all records", func(t *testing.T) {
		records, err := repo.List(ListOptions{})
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("status filter", func(t *testing.T) {
		records, err := repo.List(ListOptions{Status: database.StatusDone})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "a.jpg", records[0].SourceName)
	})

	t.Run("invalid status is rejected", func(t *testing.T) {
		_, err := repo.List(ListOptions{Status: "bogus"})
		assert.Error(t, err)
	})

	t.Run("limit applies", func(t *testing.T) {
		records, err := repo.List(ListOptions{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}

func TestDeleteIsSoft(t *testing.T) {
	repo := newTestRepo(t)
	record, err := repo.Create("gone.jpg")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(record.ID))

	_, err = repo.GetByID(record.ID)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	records, err := repo.List(ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, records)
}
