package seo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingPageID     = errors.New("page identifier is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a dotted operation.reason code alongside its cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code exposes the dotted operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opStoreNew       = "seo.store.new"
	opCreatePage     = "seo.pages.create"
	opGetPage        = "seo.pages.get"
	opListPages      = "seo.pages.list"
	opUpdateContent  = "seo.pages.update_content"
	opSetPublished   = "seo.pages.set_published"
	opDeletePage     = "seo.pages.delete"
	opAggregateStats = "seo.pages.aggregate_stats"
	opListCities     = "seo.pages.cities"
	opIncrementViews = "seo.pages.increment_views"
	opRecordClick    = "seo.pages.record_click"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues unique page identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// StoreConfig bundles the dependencies of the page store.
type StoreConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Store persists and queries local SEO pages. Every method is atomic at
// single-record granularity; there is no multi-record transaction support.
type Store struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewStore constructs the page store with validated configuration.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opStoreNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opStoreNew, "missing_id_provider", errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Store{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// CreateInput describes a page about to be persisted.
type CreateInput struct {
	City          CityName
	ServiceType   ServiceType
	Content       PageContent
	RepairerCount int
	AverageRating float64
	Testimonials  []string
	GeneratedByAI bool
	AIModel       string
}

// Create persists a new Draft page. The slug is derived from the service
// type and city; a collision fails with ErrDuplicateSlug and leaves the
// existing record untouched.
func (s *Store) Create(ctx context.Context, input CreateInput) (Page, error) {
	slug := DeriveSlug(input.ServiceType, input.City)

	var existing Page
	err := s.db.WithContext(ctx).Where("slug = ?", slug).Take(&existing).Error
	if err == nil {
		s.logError(opCreatePage, "duplicate_slug", ErrDuplicateSlug, zap.String("slug", slug))
		return Page{}, newServiceError(opCreatePage, "duplicate_slug", ErrDuplicateSlug)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logError(opCreatePage, "slug_lookup_failed", err, zap.String("slug", slug))
		return Page{}, newServiceError(opCreatePage, "slug_lookup_failed", err)
	}

	pageID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opCreatePage, "id_generation_failed", err)
		return Page{}, newServiceError(opCreatePage, "id_generation_failed", err)
	}

	testimonials := input.Testimonials
	if testimonials == nil {
		testimonials = []string{}
	}
	testimonialsJSON, err := json.Marshal(testimonials)
	if err != nil {
		s.logError(opCreatePage, "testimonial_encode_failed", err)
		return Page{}, newServiceError(opCreatePage, "testimonial_encode_failed", err)
	}

	now := s.clock().UTC().Unix()
	page := Page{
		ID:                     pageID,
		Slug:                   slug,
		City:                   input.City.String(),
		ServiceType:            input.ServiceType.String(),
		Title:                  input.Content.Title,
		MetaDescription:        input.Content.MetaDescription,
		H1Title:                input.Content.H1Title,
		ContentParagraph1:      input.Content.ContentParagraph1,
		ContentParagraph2:      input.Content.ContentParagraph2,
		CTAText:                input.Content.CTAText,
		RepairerCount:          input.RepairerCount,
		AverageRating:          input.AverageRating,
		SampleTestimonialsJSON: string(testimonialsJSON),
		IsPublished:            false,
		GeneratedByAI:          input.GeneratedByAI,
		AIModel:                input.AIModel,
		CreatedAtSeconds:       now,
		UpdatedAtSeconds:       now,
	}

	if err := s.db.WithContext(ctx).Create(&page).Error; err != nil {
		// The unique index is the backstop for concurrent writers racing
		// past the pre-insert lookup.
		if isUniqueViolation(err) {
			s.logError(opCreatePage, "duplicate_slug", ErrDuplicateSlug, zap.String("slug", slug))
			return Page{}, newServiceError(opCreatePage, "duplicate_slug", ErrDuplicateSlug)
		}
		s.logError(opCreatePage, "insert_failed", err, zap.String("slug", slug))
		return Page{}, newServiceError(opCreatePage, "insert_failed", err)
	}

	return page, nil
}

// GetBySlug returns the page stored under the exact slug.
func (s *Store) GetBySlug(ctx context.Context, slug string) (Page, error) {
	var page Page
	err := s.db.WithContext(ctx).Where("slug = ?", slug).Take(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Page{}, newServiceError(opGetPage, "not_found", ErrPageNotFound)
	}
	if err != nil {
		s.logError(opGetPage, "query_failed", err, zap.String("slug", slug))
		return Page{}, newServiceError(opGetPage, "query_failed", err)
	}
	return page, nil
}

// GetByID returns the page stored under the identifier.
func (s *Store) GetByID(ctx context.Context, pageID string) (Page, error) {
	if strings.TrimSpace(pageID) == "" {
		return Page{}, newServiceError(opGetPage, "missing_page_id", errMissingPageID)
	}
	var page Page
	err := s.db.WithContext(ctx).Where("id = ?", pageID).Take(&page).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Page{}, newServiceError(opGetPage, "not_found", ErrPageNotFound)
	}
	if err != nil {
		s.logError(opGetPage, "query_failed", err, zap.String("page_id", pageID))
		return Page{}, newServiceError(opGetPage, "query_failed", err)
	}
	return page, nil
}

// Filter restricts List results. Nil/empty fields are ignored.
type Filter struct {
	Published   *bool
	ServiceType string
	City        string
}

// List returns pages matching the filter, most recently updated first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Page, error) {
	query := s.db.WithContext(ctx).Model(&Page{})
	if filter.Published != nil {
		query = query.Where("is_published = ?", *filter.Published)
	}
	if filter.ServiceType != "" {
		query = query.Where("service_type = ?", filter.ServiceType)
	}
	if filter.City != "" {
		query = query.Where("city = ?", filter.City)
	}

	var pages []Page
	if err := query.Order("updated_at_s DESC").Find(&pages).Error; err != nil {
		s.logError(opListPages, "query_failed", err)
		return nil, newServiceError(opListPages, "query_failed", err)
	}
	return pages, nil
}

// UpdateContent replaces the textual content of an existing page and bumps
// updated_at. Identifier, slug, publish state and counters are preserved.
func (s *Store) UpdateContent(ctx context.Context, pageID string, content PageContent) (Page, error) {
	page, err := s.GetByID(ctx, pageID)
	if err != nil {
		return Page{}, err
	}

	updates := map[string]interface{}{
		"title":               content.Title,
		"meta_description":    content.MetaDescription,
		"h1_title":            content.H1Title,
		"content_paragraph_1": content.ContentParagraph1,
		"content_paragraph_2": content.ContentParagraph2,
		"cta_text":            content.CTAText,
		"updated_at_s":        s.clock().UTC().Unix(),
	}
	result := s.db.WithContext(ctx).Model(&Page{}).Where("id = ?", pageID).Updates(updates)
	if result.Error != nil {
		s.logError(opUpdateContent, "update_failed", result.Error, zap.String("page_id", pageID))
		return Page{}, newServiceError(opUpdateContent, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Page{}, newServiceError(opUpdateContent, "not_found", ErrPageNotFound)
	}

	page.Title = content.Title
	page.MetaDescription = content.MetaDescription
	page.H1Title = content.H1Title
	page.ContentParagraph1 = content.ContentParagraph1
	page.ContentParagraph2 = content.ContentParagraph2
	page.CTAText = content.CTAText
	page.UpdatedAtSeconds = updates["updated_at_s"].(int64)
	return page, nil
}

// SetPublished toggles the publish state of an existing page.
func (s *Store) SetPublished(ctx context.Context, pageID string, published bool) (Page, error) {
	if strings.TrimSpace(pageID) == "" {
		return Page{}, newServiceError(opSetPublished, "missing_page_id", errMissingPageID)
	}

	result := s.db.WithContext(ctx).Model(&Page{}).Where("id = ?", pageID).Updates(map[string]interface{}{
		"is_published": published,
		"updated_at_s": s.clock().UTC().Unix(),
	})
	if result.Error != nil {
		s.logError(opSetPublished, "update_failed", result.Error, zap.String("page_id", pageID))
		return Page{}, newServiceError(opSetPublished, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return Page{}, newServiceError(opSetPublished, "not_found", ErrPageNotFound)
	}

	return s.GetByID(ctx, pageID)
}

// Delete permanently removes a page. There is no soft delete.
func (s *Store) Delete(ctx context.Context, pageID string) error {
	if strings.TrimSpace(pageID) == "" {
		return newServiceError(opDeletePage, "missing_page_id", errMissingPageID)
	}

	result := s.db.WithContext(ctx).Where("id = ?", pageID).Delete(&Page{})
	if result.Error != nil {
		s.logError(opDeletePage, "delete_failed", result.Error, zap.String("page_id", pageID))
		return newServiceError(opDeletePage, "delete_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opDeletePage, "not_found", ErrPageNotFound)
	}
	return nil
}

// AggregateStats recomputes the global counters over the full store.
func (s *Store) AggregateStats(ctx context.Context) (GlobalStats, error) {
	type aggregateRow struct {
		TotalPages     int64
		PublishedPages int64
		TotalViews     int64
		AverageCTR     float64
	}

	var row aggregateRow
	err := s.db.WithContext(ctx).Model(&Page{}).
		Select(
			"COUNT(*) AS total_pages, " +
				"COALESCE(SUM(CASE WHEN is_published THEN 1 ELSE 0 END), 0) AS published_pages, " +
				"COALESCE(SUM(page_views), 0) AS total_views, " +
				"COALESCE(AVG(click_through_rate), 0) AS average_ctr",
		).
		Scan(&row).Error
	if err != nil {
		s.logError(opAggregateStats, "query_failed", err)
		return GlobalStats{}, newServiceError(opAggregateStats, "query_failed", err)
	}

	return GlobalStats{
		TotalPages:     row.TotalPages,
		PublishedPages: row.PublishedPages,
		TotalViews:     row.TotalViews,
		AverageCTR:     row.AverageCTR,
	}, nil
}

// Cities returns the distinct city values currently covered by a page.
func (s *Store) Cities(ctx context.Context) ([]string, error) {
	var cities []string
	err := s.db.WithContext(ctx).Model(&Page{}).
		Distinct("city").
		Order("city ASC").
		Pluck("city", &cities).Error
	if err != nil {
		s.logError(opListCities, "query_failed", err)
		return nil, newServiceError(opListCities, "query_failed", err)
	}
	return cities, nil
}

// IncrementViews adds one view to the page counter. The update deliberately
// leaves updated_at alone so view traffic does not churn the sitemap lastmod.
func (s *Store) IncrementViews(ctx context.Context, pageID string) error {
	if strings.TrimSpace(pageID) == "" {
		return newServiceError(opIncrementViews, "missing_page_id", errMissingPageID)
	}

	result := s.db.WithContext(ctx).Model(&Page{}).
		Where("id = ?", pageID).
		Update("page_views", gorm.Expr("page_views + 1"))
	if result.Error != nil {
		s.logError(opIncrementViews, "update_failed", result.Error, zap.String("page_id", pageID))
		return newServiceError(opIncrementViews, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opIncrementViews, "not_found", ErrPageNotFound)
	}
	return nil
}

// RecordClickThrough recomputes click_through_rate after one more CTA click.
// The schema carries only the rate and the view counter, so the click count
// is reconstructed from them before incrementing.
func (s *Store) RecordClickThrough(ctx context.Context, pageID string) error {
	page, err := s.GetByID(ctx, pageID)
	if err != nil {
		return err
	}

	clicks := math.Round(page.ClickThroughRate / 100.0 * float64(page.PageViews))
	views := float64(page.PageViews)
	if views < 1 {
		views = 1
	}
	rate := (clicks + 1) / views * 100.0
	if rate > 100.0 {
		rate = 100.0
	}

	result := s.db.WithContext(ctx).Model(&Page{}).
		Where("id = ?", pageID).
		Update("click_through_rate", rate)
	if result.Error != nil {
		s.logError(opRecordClick, "update_failed", result.Error, zap.String("page_id", pageID))
		return newServiceError(opRecordClick, "update_failed", result.Error)
	}
	if result.RowsAffected == 0 {
		return newServiceError(opRecordClick, "not_found", ErrPageNotFound)
	}
	return nil
}

// Testimonials decodes the stored testimonial snapshot.
func (p Page) Testimonials() []string {
	var testimonials []string
	if err := json.Unmarshal([]byte(p.SampleTestimonialsJSON), &testimonials); err != nil {
		return []string{}
	}
	return testimonials
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "unique index")
}

func (s *Store) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Store) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("seo store error", attrs...)
}
