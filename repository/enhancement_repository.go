package repository

import (
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/openphotolab/enhancebackend/database"
	"github.com/openphotolab/enhancebackend/media"
	"github.com/openphotolab/enhancebackend/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// EnhancementRepository handles database operations for Enhancement entities
type EnhancementRepository struct {
	DB *gorm.DB
}

// NewEnhancementRepository creates a new instance of EnhancementRepository
func NewEnhancementRepository(db *gorm.DB) *EnhancementRepository {
	return &EnhancementRepository{DB: db}
}

// Create inserts a pending enhancement record and returns it with its ID set.
func (r *EnhancementRepository) Create(sourceName string) (*models.Enhancement, error) {
	record := models.Enhancement{
		SourceName:  sourceName,
		RequestedAt: time.Now().Unix(),
		Status:      database.StatusPending,
	}
	if err := r.DB.Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create enhancement record for %s: %w", sourceName, err)
	}
	return &record, nil
}

// GetByID retrieves a single enhancement record.
func (r *EnhancementRepository) GetByID(id uint) (*models.Enhancement, error) {
	var record models.Enhancement
	err := r.DB.First(&record, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get enhancement %d: %w", id, err)
	}
	return &record, nil
}

// MarkProcessing updates the record's status to 'processing' and clears its error
func (r *EnhancementRepository) MarkProcessing(id uint) error {
	updates := map[string]interface{}{
		"status": database.StatusProcessing,
		"error":  gorm.Expr("NULL"),
	}
	result := r.DB.Model(&models.Enhancement{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark enhancement %d processing: %w", id, result.Error)
	}
	return nil
}

// Finish records the outcome of one enhancement run. A nil taskErr stores the
// processed result; otherwise the status and error message are recorded.
func (r *EnhancementRepository) Finish(id uint, processed *media.ProcessedImage, taskErr error) error {
	now := time.Now().Unix()
	status := database.StatusDone
	var errStr *string

	if taskErr != nil {
		status = database.StatusError
		s := taskErr.Error()
		errStr = &s
	}

	updates := map[string]interface{}{
		"status":       status,
		"processed_at": &now,
		"error":        errStr,
	}

	if taskErr == nil && processed != nil {
		metricsJSON, err := json.Marshal(processed.Metrics)
		if err != nil {
			return fmt.Errorf("failed to serialize metrics for enhancement %d: %w", id, err)
		}
		paramsJSON, err := json.Marshal(processed.Params)
		if err != nil {
			return fmt.Errorf("failed to serialize params for enhancement %d: %w", id, err)
		}
		m, p := string(metricsJSON), string(paramsJSON)
		updates["output_path"] = &processed.OutputPath
		updates["width"] = &processed.Width
		updates["height"] = &processed.Height
		updates["metrics_json"] = &m
		updates["params_json"] = &p
	}

	result := r.DB.Model(&models.Enhancement{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to finish enhancement %d: %w", id, result.Error)
	}
	return nil
}

// ListOptions filters and pages the enhancement listing.
type ListOptions struct {
	Status string // empty matches any status
	Since  int64  // only records requested at or after this Unix timestamp
	Limit  int
	Offset int
}

const defaultListLimit = 50

// List returns enhancement records, newest first. The query is built
// dynamically from the options.
func (r *EnhancementRepository) List(opts ListOptions) ([]models.Enhancement, error) {
	if opts.Status != "" && !database.IsValidStatus(opts.Status) {
		return nil, fmt.Errorf("invalid status filter '%s'", opts.Status)
	}

	limit := opts.Limit
	if limit <= 0 || limit > 500 {
		limit = defaultListLimit
	}

	queryBuilder := psql.Select(
		"id", "source_name", "requested_at", "output_path", "width", "height",
		"metrics_json", "params_json", "status", "processed_at", "error",
	).
		From("enhancements").
		Where(sq.Eq{"deleted_at": nil}).
		OrderBy("requested_at DESC", "id DESC").
		Limit(uint64(limit))

	if opts.Status != "" {
		queryBuilder = queryBuilder.Where(sq.Eq{"status": opts.Status})
	}
	if opts.Since > 0 {
		queryBuilder = queryBuilder.Where(sq.GtOrEq{"requested_at": opts.Since})
	}
	if opts.Offset > 0 {
		queryBuilder = queryBuilder.Offset(uint64(opts.Offset))
	}

	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL query for enhancement list: %w", err)
	}

	var records []models.Enhancement
	if err := r.DB.Raw(sqlStr, args...).Scan(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list enhancements: %w", err)
	}
	return records, nil
}

// Delete soft-deletes an enhancement record.
func (r *EnhancementRepository) Delete(id uint) error {
	result := r.DB.Delete(&models.Enhancement{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete enhancement %d: %w", id, result.Error)
	}
	return nil
}
