package seo

import (
	"context"
	"errors"
	"testing"
)

type stubGenerator struct {
	content GeneratedContent
	err     error
	calls   int
}

func (g *stubGenerator) GenerateContent(_ context.Context, _ GenerationRequest) (GeneratedContent, error) {
	g.calls++
	if g.err != nil {
		return GeneratedContent{}, g.err
	}
	return g.content, nil
}

type stubTestimonials struct {
	samples []string
	err     error
}

func (s *stubTestimonials) SampleTestimonials(_ context.Context, _ string, _ int) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.samples, nil
}

func sampleContent() GeneratedContent {
	return GeneratedContent{
		Title:           "Réparation smartphone à Nantes",
		MetaDescription: "Comparez les réparateurs nantais",
		H1Title:         "Réparateurs de smartphone à Nantes",
		Paragraph1:      "premier paragraphe",
		Paragraph2:      "second paragraphe",
		Model:           "gpt-4o-mini",
	}
}

func newTestPipeline(t *testing.T, store *Store, generator Generator, testimonials TestimonialSource) *Pipeline {
	t.Helper()
	pipeline, err := NewPipeline(PipelineConfig{
		Store:        store,
		Generator:    generator,
		Testimonials: testimonials,
	})
	if err != nil {
		t.Fatalf("failed to build pipeline: %v", err)
	}
	return pipeline
}

func TestPipelineGenerateCreatesDraftPage(t *testing.T) {
	store, _ := newTestStore(t, &staticIDGenerator{ids: []string{"page-1"}})
	pipeline := newTestPipeline(t, store, &stubGenerator{content: sampleContent()}, &stubTestimonials{samples: []string{"Impeccable"}})

	page, err := pipeline.Generate(context.Background(), mustCity(t, "Nantes"), ServiceTypeSmartphone, 5, 4.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Slug != "reparateur-smartphone-nantes" {
		t.Fatalf("unexpected slug: %s", page.Slug)
	}
	if page.IsPublished {
		t.Fatalf("generated page must start as a draft")
	}
	if !page.GeneratedByAI || page.AIModel != "gpt-4o-mini" {
		t.Fatalf("provenance not recorded: %#v", page)
	}
	if page.CTAText != DefaultCTAText {
		t.Fatalf("expected default call-to-action, got %q", page.CTAText)
	}
	if page.RepairerCount != 5 || page.AverageRating != 4.8 {
		t.Fatalf("stats snapshot missing: %#v", page)
	}
	testimonials := page.Testimonials()
	if len(testimonials) != 1 || testimonials[0] != "Impeccable" {
		t.Fatalf("unexpected testimonials: %#v", testimonials)
	}
}

func TestPipelineGenerateBoundaryFailurePersistsNothing(t *testing.T) {
	store, db := newTestStore(t, nil)
	pipeline := newTestPipeline(t, store, &stubGenerator{err: errors.New("timeout")}, nil)

	_, err := pipeline.Generate(context.Background(), mustCity(t, "Nantes"), ServiceTypeSmartphone, 5, 4.8)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	var count int64
	if err := db.Model(&Page{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count pages: %v", err)
	}
	if count != 0 {
		t.Fatalf("boundary failure must never partially persist, found %d rows", count)
	}
}

func TestPipelineGenerateDuplicateSlugSurfaces(t *testing.T) {
	store, _ := newTestStore(t, nil)
	pipeline := newTestPipeline(t, store, &stubGenerator{content: sampleContent()}, nil)

	if _, err := pipeline.Generate(context.Background(), mustCity(t, "Nantes"), ServiceTypeSmartphone, 5, 4.8); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err := pipeline.Generate(context.Background(), mustCity(t, "Nantes"), ServiceTypeSmartphone, 5, 4.8)
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Fatalf("expected ErrDuplicateSlug, got %v", err)
	}
}

func TestPipelineGenerateSurvivesTestimonialFailure(t *testing.T) {
	store, _ := newTestStore(t, nil)
	pipeline := newTestPipeline(t, store, &stubGenerator{content: sampleContent()}, &stubTestimonials{err: errors.New("directory down")})

	page, err := pipeline.Generate(context.Background(), mustCity(t, "Nantes"), ServiceTypeSmartphone, 5, 4.8)
	if err != nil {
		t.Fatalf("testimonial failure must not abort generation: %v", err)
	}
	if len(page.Testimonials()) != 0 {
		t.Fatalf("expected empty testimonial snapshot, got %#v", page.Testimonials())
	}
}

func TestPipelineRefreshPreservesIdentityAndState(t *testing.T) {
	store, _ := newTestStore(t, nil)
	generator := &stubGenerator{content: sampleContent()}
	pipeline := newTestPipeline(t, store, generator, nil)

	page, err := pipeline.Generate(context.Background(), mustCity(t, "Nantes"), ServiceTypeSmartphone, 5, 4.8)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.SetPublished(context.Background(), page.ID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.IncrementViews(context.Background(), page.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	generator.content.Title = "Titre rafraîchi"
	refreshed, err := pipeline.Refresh(context.Background(), page.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refreshed.ID != page.ID || refreshed.Slug != page.Slug {
		t.Fatalf("refresh must preserve identity")
	}
	if refreshed.Title != "Titre rafraîchi" {
		t.Fatalf("refresh did not apply content: %s", refreshed.Title)
	}

	stored, err := store.GetByID(context.Background(), page.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stored.IsPublished {
		t.Fatalf("refresh must preserve publish state")
	}
	if stored.PageViews != 1 {
		t.Fatalf("refresh must preserve view counters, got %d", stored.PageViews)
	}
}

func TestPipelineRefreshMissingPage(t *testing.T) {
	store, _ := newTestStore(t, nil)
	generator := &stubGenerator{content: sampleContent()}
	pipeline := newTestPipeline(t, store, generator, nil)

	_, err := pipeline.Refresh(context.Background(), "missing")
	if !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
	if generator.calls != 0 {
		t.Fatalf("boundary must not be called for a missing page")
	}
}
