package seo

import (
	"errors"
	"fmt"
	"strings"
)

// ServiceType enumerates the repair categories a page can target.
type ServiceType string

const (
	// ServiceTypeSmartphone targets smartphone repair pages.
	ServiceTypeSmartphone ServiceType = "smartphone"
	// ServiceTypeTablet targets tablet repair pages.
	ServiceTypeTablet ServiceType = "tablet"
	// ServiceTypeComputer targets computer repair pages.
	ServiceTypeComputer ServiceType = "computer"
)

const maxCityNameLength = 120

// DefaultCTAText is the call-to-action applied to every generated page.
const DefaultCTAText = "Obtenez un devis gratuit auprès d'un réparateur près de chez vous"

var (
	// ErrDuplicateSlug indicates a creation collided with an existing slug.
	ErrDuplicateSlug = errors.New("seo: duplicate slug")
	// ErrPageNotFound indicates a mutation or lookup referenced a missing page.
	ErrPageNotFound = errors.New("seo: page not found")
	// ErrGenerationFailed indicates the external generation boundary failed
	// or returned malformed content.
	ErrGenerationFailed = errors.New("seo: content generation failed")
	// ErrResolutionMiss indicates every resolver step was exhausted.
	ErrResolutionMiss = errors.New("seo: slug resolution miss")
	// ErrInvalidServiceType indicates an unknown service type value.
	ErrInvalidServiceType = errors.New("seo: invalid service type")
	// ErrInvalidCityName indicates a city name is empty or exceeds storage bounds.
	ErrInvalidCityName = errors.New("seo: invalid city name")
)

// ParseServiceType validates raw input and returns a ServiceType.
func ParseServiceType(rawInput string) (ServiceType, error) {
	switch strings.ToLower(strings.TrimSpace(rawInput)) {
	case string(ServiceTypeSmartphone):
		return ServiceTypeSmartphone, nil
	case string(ServiceTypeTablet):
		return ServiceTypeTablet, nil
	case string(ServiceTypeComputer):
		return ServiceTypeComputer, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidServiceType, rawInput)
	}
}

// String returns the underlying enum value.
func (t ServiceType) String() string {
	return string(t)
}

// CityName represents a validated targeting city.
type CityName string

// NewCityName validates raw input and returns a CityName.
func NewCityName(rawInput string) (CityName, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCityName)
	}
	if len(trimmed) > maxCityNameLength {
		return "", fmt.Errorf("%w: exceeds %d characters", ErrInvalidCityName, maxCityNameLength)
	}
	return CityName(trimmed), nil
}

// String returns the underlying city value.
func (c CityName) String() string {
	return string(c)
}

// Page models a generated local landing page.
type Page struct {
	ID                string  `gorm:"column:id;primaryKey;size:190;not null" json:"id"`
	Slug              string  `gorm:"column:slug;uniqueIndex;size:255;not null" json:"slug"`
	City              string  `gorm:"column:city;size:120;not null;index" json:"city"`
	ServiceType       string  `gorm:"column:service_type;size:32;not null;index" json:"service_type"`
	Title             string  `gorm:"column:title;size:255;not null" json:"title"`
	MetaDescription   string  `gorm:"column:meta_description;size:512;not null" json:"meta_description"`
	H1Title           string  `gorm:"column:h1_title;size:255;not null" json:"h1_title"`
	ContentParagraph1 string  `gorm:"column:content_paragraph_1;type:text;not null" json:"content_paragraph_1"`
	ContentParagraph2 string  `gorm:"column:content_paragraph_2;type:text;not null" json:"content_paragraph_2"`
	CTAText           string  `gorm:"column:cta_text;size:255;not null" json:"cta_text"`
	RepairerCount     int     `gorm:"column:repairer_count;not null;default:0" json:"repairer_count"`
	AverageRating     float64 `gorm:"column:average_rating;not null;default:0" json:"average_rating"`
	// SampleTestimonialsJSON stores the display-ordered testimonial snapshot
	// taken at generation time. It is not live-synced with the directory.
	SampleTestimonialsJSON string  `gorm:"column:sample_testimonials;type:text;not null;default:'[]'" json:"-"`
	IsPublished            bool    `gorm:"column:is_published;not null;default:false;index" json:"is_published"`
	GeneratedByAI          bool    `gorm:"column:generated_by_ai;not null;default:false" json:"generated_by_ai"`
	AIModel                string  `gorm:"column:ai_model;size:120" json:"ai_model"`
	PageViews              int64   `gorm:"column:page_views;not null;default:0" json:"page_views"`
	ClickThroughRate       float64 `gorm:"column:click_through_rate;not null;default:0" json:"click_through_rate"`
	CreatedAtSeconds       int64   `gorm:"column:created_at_s;not null" json:"created_at_s"`
	UpdatedAtSeconds       int64   `gorm:"column:updated_at_s;not null;index" json:"updated_at_s"`
}

// TableName provides the explicit table binding for GORM.
func (Page) TableName() string {
	return "local_seo_pages"
}

// PageContent bundles the mutable textual fields of a page.
type PageContent struct {
	Title             string
	MetaDescription   string
	H1Title           string
	ContentParagraph1 string
	ContentParagraph2 string
	CTAText           string
}

// SuggestedCity describes a directory city without a landing page yet.
type SuggestedCity struct {
	City          string  `json:"city"`
	RepairerCount int     `json:"repairer_count"`
	AverageRating float64 `json:"average_rating"`
}

// GlobalStats aggregates the full page store. Recomputed on demand,
// never persisted.
type GlobalStats struct {
	TotalPages     int64   `json:"total_pages"`
	PublishedPages int64   `json:"published_pages"`
	TotalViews     int64   `json:"total_views"`
	AverageCTR     float64 `json:"average_ctr"`
}
