package seo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	errMissingStore     = errors.New("page store is required")
	errMissingGenerator = errors.New("generation client is required")
)

const (
	opGeneratePage = "seo.pipeline.generate"
	opRefreshPage  = "seo.pipeline.refresh"

	testimonialSampleLimit = 3
)

// GenerationRequest is the targeting tuple sent to the generation boundary.
type GenerationRequest struct {
	City          string
	ServiceType   string
	RepairerCount int
	AverageRating float64
}

// GeneratedContent is the textual payload produced by the boundary.
type GeneratedContent struct {
	Title           string
	MetaDescription string
	H1Title         string
	Paragraph1      string
	Paragraph2      string
	Model           string
}

// Generator is the external AI text-generation boundary.
type Generator interface {
	GenerateContent(ctx context.Context, request GenerationRequest) (GeneratedContent, error)
}

// TestimonialSource supplies display-ordered testimonial snippets for a city.
type TestimonialSource interface {
	SampleTestimonials(ctx context.Context, city string, limit int) ([]string, error)
}

// PipelineConfig bundles the dependencies of the generation pipeline.
type PipelineConfig struct {
	Store        *Store
	Generator    Generator
	Testimonials TestimonialSource
	Logger       *zap.Logger
}

// Pipeline turns a (city, service, stats) tuple into a stored Draft page
// through the external generation boundary. A boundary failure aborts the
// single generation; nothing is ever partially persisted.
type Pipeline struct {
	store        *Store
	generator    Generator
	testimonials TestimonialSource
	logger       *zap.Logger
}

// NewPipeline constructs the pipeline with validated configuration.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opGeneratePage, "missing_store", errMissingStore)
	}
	if cfg.Generator == nil {
		return nil, newServiceError(opGeneratePage, "missing_generator", errMissingGenerator)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Pipeline{
		store:        cfg.Store,
		generator:    cfg.Generator,
		testimonials: cfg.Testimonials,
		logger:       logger,
	}, nil
}

// Generate creates a new Draft page for the targeting tuple.
func (p *Pipeline) Generate(ctx context.Context, city CityName, serviceType ServiceType, repairerCount int, averageRating float64) (Page, error) {
	generated, err := p.generator.GenerateContent(ctx, GenerationRequest{
		City:          city.String(),
		ServiceType:   serviceType.String(),
		RepairerCount: repairerCount,
		AverageRating: averageRating,
	})
	if err != nil {
		p.logger.Error("content generation failed",
			zap.String("operation", opGeneratePage),
			zap.String("city", city.String()),
			zap.String("service_type", serviceType.String()),
			zap.Error(err))
		return Page{}, newServiceError(opGeneratePage, "boundary_failed", fmt.Errorf("%w: %v", ErrGenerationFailed, err))
	}

	testimonials := p.sampleTestimonials(ctx, city.String())

	page, err := p.store.Create(ctx, CreateInput{
		City:          city,
		ServiceType:   serviceType,
		Content:       contentFromGenerated(generated),
		RepairerCount: repairerCount,
		AverageRating: averageRating,
		Testimonials:  testimonials,
		GeneratedByAI: true,
		AIModel:       generated.Model,
	})
	if err != nil {
		return Page{}, err
	}
	return page, nil
}

// Refresh re-runs generation against an existing record's city and service
// and replaces its content in place. Identifier, slug, publish state and
// view counters are preserved.
func (p *Pipeline) Refresh(ctx context.Context, pageID string) (Page, error) {
	page, err := p.store.GetByID(ctx, pageID)
	if err != nil {
		return Page{}, err
	}

	generated, err := p.generator.GenerateContent(ctx, GenerationRequest{
		City:          page.City,
		ServiceType:   page.ServiceType,
		RepairerCount: page.RepairerCount,
		AverageRating: page.AverageRating,
	})
	if err != nil {
		p.logger.Error("content refresh failed",
			zap.String("operation", opRefreshPage),
			zap.String("page_id", pageID),
			zap.Error(err))
		return Page{}, newServiceError(opRefreshPage, "boundary_failed", fmt.Errorf("%w: %v", ErrGenerationFailed, err))
	}

	return p.store.UpdateContent(ctx, pageID, contentFromGenerated(generated))
}

func (p *Pipeline) sampleTestimonials(ctx context.Context, city string) []string {
	if p.testimonials == nil {
		return nil
	}
	sampleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	testimonials, err := p.testimonials.SampleTestimonials(sampleCtx, city, testimonialSampleLimit)
	if err != nil {
		// Missing testimonials are cosmetic; the page is generated without.
		p.logger.Warn("testimonial sampling failed",
			zap.String("operation", opGeneratePage),
			zap.String("city", city),
			zap.Error(err))
		return nil
	}
	return testimonials
}

func contentFromGenerated(generated GeneratedContent) PageContent {
	return PageContent{
		Title:             generated.Title,
		MetaDescription:   generated.MetaDescription,
		H1Title:           generated.H1Title,
		ContentParagraph1: generated.Paragraph1,
		ContentParagraph2: generated.Paragraph2,
		CTAText:           DefaultCTAText,
	}
}
