package repairers

import (
	"strings"
	"time"
)

// Repairer captures one listed repair shop in the marketplace directory.
// The SEO engine only consumes city-level aggregates and testimonial
// snippets from this table; listing management lives elsewhere.
type Repairer struct {
	ID          string    `gorm:"column:id;primaryKey;size:190;not null"`
	Name        string    `gorm:"column:name;size:255;not null"`
	City        string    `gorm:"column:city;size:120;not null;index"`
	Rating      float64   `gorm:"column:rating;not null;default:0"`
	ReviewCount int       `gorm:"column:review_count;not null;default:0"`
	Specialty   string    `gorm:"column:specialty;size:64"`
	Testimonial string    `gorm:"column:testimonial;type:text"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true;index"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Repairer) TableName() string {
	return "repairers"
}

// normalize value helper used across service implementation.
func normalize(value string) string {
	return strings.TrimSpace(value)
}
