package repairers

import (
	"context"
	"errors"
	"fmt"

	"github.com/reparigo/reparigo/backend/internal/seo"
	"gorm.io/gorm"
)

// ErrInvalidCity indicates an empty city was supplied for sampling.
var ErrInvalidCity = errors.New("repairers: invalid city")

// ServiceConfig describes the dependencies of the directory service.
type ServiceConfig struct {
	Database *gorm.DB
}

// Service exposes the directory aggregates consumed by the SEO engine.
// Stats are always read fresh; no caching, the directory is multi-writer.
type Service struct {
	db *gorm.DB
}

// NewService constructs the directory service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("repairers: database connection required")
	}
	return &Service{db: cfg.Database}, nil
}

// CityStats aggregates active repairers per city: count and average rating.
func (s *Service) CityStats(ctx context.Context) ([]seo.CityStat, error) {
	type statRow struct {
		City          string
		RepairerCount int
		AverageRating float64
	}

	var rows []statRow
	err := s.db.WithContext(ctx).Model(&Repairer{}).
		Select("city, COUNT(*) AS repairer_count, COALESCE(AVG(rating), 0) AS average_rating").
		Where("is_active = ?", true).
		Group("city").
		Order("repairer_count DESC, city ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make([]seo.CityStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, seo.CityStat{
			City:          row.City,
			RepairerCount: row.RepairerCount,
			AverageRating: row.AverageRating,
		})
	}
	return stats, nil
}

// SampleTestimonials returns up to limit testimonial snippets for a city,
// best rated first. The snapshot taken at generation time is what a page
// renders; it is not kept in sync afterwards.
func (s *Service) SampleTestimonials(ctx context.Context, city string, limit int) ([]string, error) {
	trimmed := normalize(city)
	if trimmed == "" {
		return nil, ErrInvalidCity
	}
	if limit <= 0 {
		limit = 3
	}

	var testimonials []string
	err := s.db.WithContext(ctx).Model(&Repairer{}).
		Where("is_active = ? AND city = ? AND testimonial <> ''", true, trimmed).
		Order("rating DESC, review_count DESC").
		Limit(limit).
		Pluck("testimonial", &testimonials).Error
	if err != nil {
		return nil, err
	}
	return testimonials, nil
}
