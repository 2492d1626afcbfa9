package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/openphotolab/enhancebackend/media"
	"github.com/openphotolab/enhancebackend/repository"
	"github.com/openphotolab/enhancebackend/workers"
)

const maxUploadBytes = 64 << 20

// EnhanceHandler serves the enhancement API. The inline processor owns a
// detector, which is not safe for concurrent use, so synchronous requests
// serialize on mu; async requests go through the worker pool instead.
type EnhanceHandler struct {
	Repo      *repository.EnhancementRepository
	Store     media.Store
	Processor *media.Processor
	Pool      *workers.EnhanceProcessor
	mu        sync.Mutex
}

func NewEnhanceHandler(repo *repository.EnhancementRepository, store media.Store, processor *media.Processor, pool *workers.EnhanceProcessor) *EnhanceHandler {
	return &EnhanceHandler{Repo: repo, Store: store, Processor: processor, Pool: pool}
}

// UploadAndEnhance handles POST /api/enhance. The default mode enhances
// inline and responds with the enhanced JPEG; ?async=true queues the job and
// responds 202 with the pending record.
func (h *EnhanceHandler) UploadAndEnhance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_multipart", fmt.Sprintf("failed to parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "missing_image", "multipart field 'image' is required")
		return
	}
	defer file.Close()

	if !media.IsRasterImage(header.Filename) {
		WriteAPIError(w, http.StatusUnsupportedMediaType, "unsupported_format", fmt.Sprintf("unsupported image file '%s'", header.Filename))
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "read_failed", "failed to read uploaded file")
		return
	}
	if len(data) > maxUploadBytes {
		WriteAPIError(w, http.StatusRequestEntityTooLarge, "too_large", "uploaded file exceeds size limit")
		return
	}

	record, err := h.Repo.Create(header.Filename)
	if err != nil {
		log.Printf("enhance handler: ERROR creating record for %s: %v", header.Filename, err)
		WriteAPIError(w, http.StatusInternalServerError, "db_error", "failed to create enhancement record")
		return
	}

	if r.URL.Query().Get("async") == "true" {
		if !h.Pool.QueueJob(workers.EnhanceJob{RecordID: record.ID, SourceName: header.Filename, Data: data}) {
			// the record was never queued; don't leave it pending forever
			if err := h.Repo.Finish(record.ID, nil, errors.New("enhancement queue full")); err != nil {
				log.Printf("enhance handler: ERROR marking record %d failed after queue rejection: %v", record.ID, err)
			}
			WriteAPIError(w, http.StatusServiceUnavailable, "queue_full", "enhancement queue is full or job already pending")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(record)
		return
	}

	if err := h.Repo.MarkProcessing(record.ID); err != nil {
		log.Printf("enhance handler: ERROR marking record %d processing: %v", record.ID, err)
	}

	h.mu.Lock()
	processed, procErr := h.Processor.EnhanceBytes(data, header.Filename)
	h.mu.Unlock()

	if dbErr := h.Repo.Finish(record.ID, processed, procErr); dbErr != nil {
		log.Printf("enhance handler: ERROR finishing record %d: %v", record.ID, dbErr)
	}

	if procErr != nil {
		WriteAPIError(w, http.StatusUnprocessableEntity, "enhancement_failed", procErr.Error())
		return
	}

	asset, info, err := h.Store.Get(processed.OutputPath)
	if err != nil {
		log.Printf("enhance handler: ERROR reading back enhanced asset %s: %v", processed.OutputPath, err)
		WriteAPIError(w, http.StatusInternalServerError, "store_error", "failed to read enhanced output")
		return
	}
	defer asset.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("X-Enhancement-Id", strconv.FormatUint(uint64(record.ID), 10))
	if _, err := io.Copy(w, asset); err != nil {
		log.Printf("enhance handler: ERROR streaming enhanced asset %s: %v", processed.OutputPath, err)
	}
}

// ListEnhancements handles GET /api/enhancements.
func (h *EnhanceHandler) ListEnhancements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := repository.ListOptions{Status: q.Get("status")}
	if v := q.Get("since"); v != "" {
		since, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_since", "query parameter 'since' must be a Unix timestamp")
			return
		}
		opts.Since = since
	}
	if v := q.Get("limit"); v != "" {
		opts.Limit, _ = strconv.Atoi(v)
	}
	if v := q.Get("offset"); v != "" {
		opts.Offset, _ = strconv.Atoi(v)
	}

	records, err := h.Repo.List(opts)
	if err != nil {
		log.Printf("enhance handler: ERROR listing enhancements: %v", err)
		WriteAPIError(w, http.StatusInternalServerError, "db_error", "failed to list enhancements")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

// GetEnhancement handles GET /api/enhancements/{id}.
func (h *EnhanceHandler) GetEnhancement(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", fmt.Sprintf("invalid enhancement id '%s'", idStr))
		return
	}

	record, err := h.Repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", fmt.Sprintf("enhancement %d not found", id))
			return
		}
		log.Printf("enhance handler: ERROR getting enhancement %d: %v", id, err)
		WriteAPIError(w, http.StatusInternalServerError, "db_error", "failed to load enhancement")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}
