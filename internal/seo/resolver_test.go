package seo

import (
	"context"
	"errors"
	"testing"
)

type recordingLookup struct {
	pages    map[string]Page
	attempts []string
}

func (l *recordingLookup) GetBySlug(_ context.Context, slug string) (Page, error) {
	l.attempts = append(l.attempts, slug)
	if page, ok := l.pages[slug]; ok {
		return page, nil
	}
	return Page{}, ErrPageNotFound
}

func TestResolveExactMatchSkipsFallbacks(t *testing.T) {
	lookup := &recordingLookup{pages: map[string]Page{
		"reparateur-smartphone-lyon": {ID: "page-1", Slug: "reparateur-smartphone-lyon"},
	}}
	resolver := NewResolver(lookup)

	page, err := resolver.Resolve(context.Background(), "reparateur-smartphone-lyon")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.ID != "page-1" {
		t.Fatalf("unexpected page: %#v", page)
	}
	if len(lookup.attempts) != 1 {
		t.Fatalf("exact match must not attempt normalization steps, attempts: %#v", lookup.attempts)
	}
}

func TestResolveDeaccentsAccentedSlug(t *testing.T) {
	lookup := &recordingLookup{pages: map[string]Page{
		"reparateur-tablette-orleans": {ID: "page-2", Slug: "reparateur-tablette-orleans"},
	}}
	resolver := NewResolver(lookup)

	page, err := resolver.Resolve(context.Background(), "réparateur-tablette-orléans")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.ID != "page-2" {
		t.Fatalf("unexpected page: %#v", page)
	}
	if len(lookup.attempts) != 2 {
		t.Fatalf("expected exact then de-accented lookups, attempts: %#v", lookup.attempts)
	}
}

func TestResolveAccentuatesLegacySlug(t *testing.T) {
	lookup := &recordingLookup{pages: map[string]Page{
		"réparateur-ordinateur-saint-etienne": {ID: "page-3", Slug: "réparateur-ordinateur-saint-etienne"},
	}}
	resolver := NewResolver(lookup)

	page, err := resolver.Resolve(context.Background(), "reparateur-ordinateur-saint-etienne")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.ID != "page-3" {
		t.Fatalf("unexpected page: %#v", page)
	}
}

func TestResolveSkipsAccentuationWhenInputHadAccents(t *testing.T) {
	// The accented target exists but the raw slug itself carried an accent,
	// so step 3 must not fire.
	lookup := &recordingLookup{pages: map[string]Page{
		"réparateur-ordinateur-paris": {ID: "page-4", Slug: "réparateur-ordinateur-paris"},
	}}
	resolver := NewResolver(lookup)

	_, err := resolver.Resolve(context.Background(), "reparateur-ordinateur-pàris")
	if !errors.Is(err, ErrResolutionMiss) {
		t.Fatalf("expected ErrResolutionMiss, got %v", err)
	}
	for _, attempt := range lookup.attempts {
		if attempt == "réparateur-ordinateur-pàris" || attempt == "réparateur-ordinateur-paris" {
			t.Fatalf("accentuation step fired for accented input, attempts: %#v", lookup.attempts)
		}
	}
}

func TestResolveMissAfterAllSteps(t *testing.T) {
	lookup := &recordingLookup{pages: map[string]Page{}}
	resolver := NewResolver(lookup)

	_, err := resolver.Resolve(context.Background(), "reparateur-tablette-zzzz")
	if !errors.Is(err, ErrResolutionMiss) {
		t.Fatalf("expected ErrResolutionMiss, got %v", err)
	}
}

func TestResolveNeverMutatesStore(t *testing.T) {
	store, db := newTestStore(t, nil)
	if _, err := store.Create(context.Background(), draftInput(t, "Lyon", "smartphone")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resolver := NewResolver(store)

	if _, err := resolver.Resolve(context.Background(), "reparateur-tablette-zzzz"); !errors.Is(err, ErrResolutionMiss) {
		t.Fatalf("expected ErrResolutionMiss, got %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), "réparateur-smartphone-lyon"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int64
	if err := db.Model(&Page{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count pages: %v", err)
	}
	if count != 1 {
		t.Fatalf("resolution must not change the store, found %d rows", count)
	}
}
