package models

import "gorm.io/gorm"

// Enhancement represents one enhancement run in the database using GORM.
// It corresponds to the 'enhancements' table. Metrics and parameters are
// stored as JSON blobs; their shapes belong to the enhance package.
type Enhancement struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	SourceName   string `gorm:"not null" json:"source_name"`
	RequestedAt  int64  `gorm:"not null;index" json:"requested_at"` // Unix timestamp

	OutputPath *string `gorm:"" json:"output_path,omitempty"` // Nullable, relative to store
	Width      *int    `gorm:"" json:"width,omitempty"`       // Nullable
	Height     *int    `gorm:"" json:"height,omitempty"`      // Nullable

	MetricsJSON *string `gorm:"" json:"metrics,omitempty"` // Nullable, serialized enhance.Metrics
	ParamsJSON  *string `gorm:"" json:"params,omitempty"`  // Nullable, serialized enhance.AdjustmentParameters

	Status      string  `gorm:"not null;default:pending;index" json:"status"`
	ProcessedAt *int64  `gorm:"" json:"processed_at,omitempty"` // Nullable, Unix timestamp
	Error       *string `gorm:"" json:"error,omitempty"`        // Nullable

	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"` // For soft deletes
}

// TableName explicitly sets the table name for GORM.
func (Enhancement) TableName() string {
	return "enhancements"
}
