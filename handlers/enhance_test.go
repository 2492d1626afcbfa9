package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openphotolab/enhancebackend/database"
	"github.com/openphotolab/enhancebackend/models"
	"github.com/openphotolab/enhancebackend/repository"
	"github.com/openphotolab/enhancebackend/workers"
)

func newTestRepository(t *testing.T) *repository.EnhancementRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Enhancement{}))
	return repository.NewEnhancementRepository(db)
}

func uploadRequest(t *testing.T, target, filename string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("raw image payload"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAndEnhanceAsyncQueued(t *testing.T) {
	repo := newTestRepository(t)
	pool := &workers.EnhanceProcessor{
		JobQueue: make(chan workers.EnhanceJob, 1),
		Pending:  make(map[uint]bool),
	}
	h := NewEnhanceHandler(repo, nil, nil, pool)

	w := httptest.NewRecorder()
	h.UploadAndEnhance(w, uploadRequest(t, "/api/enhance?async=true", "photo.jpg"))

	require.Equal(t, http.StatusAccepted, w.Code)

	var record models.Enhancement
	require.NoError(t, json.NewDecoder(w.Body).Decode(&record))
	assert.Equal(t, database.StatusPending, record.Status)
	assert.Equal(t, "photo.jpg", record.SourceName)
	assert.Len(t, pool.JobQueue, 1)
}

func TestUploadAndEnhanceAsyncQueueFull(t *testing.T) {
	repo := newTestRepository(t)
	// unbuffered queue with no workers rejects every enqueue attempt
	pool := &workers.EnhanceProcessor{
		JobQueue: make(chan workers.EnhanceJob),
		Pending:  make(map[uint]bool),
	}
	h := NewEnhanceHandler(repo, nil, nil, pool)

	w := httptest.NewRecorder()
	h.UploadAndEnhance(w, uploadRequest(t, "/api/enhance?async=true", "photo.jpg"))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	records, err := repo.List(repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, database.StatusError, records[0].Status, "a rejected upload must not stay pending")
	require.NotNil(t, records[0].Error)
	assert.Contains(t, *records[0].Error, "queue")
}

func TestUploadAndEnhanceRejectsUnsupportedFiles(t *testing.T) {
	h := NewEnhanceHandler(newTestRepository(t), nil, nil, nil)

	w := httptest.NewRecorder()
	h.UploadAndEnhance(w, uploadRequest(t, "/api/enhance", "notes.txt"))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}
