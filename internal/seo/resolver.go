package seo

import (
	"context"
	"errors"
)

// PageLookup is the slice of the store the resolver needs.
type PageLookup interface {
	GetBySlug(ctx context.Context, slug string) (Page, error)
}

// Resolver locates a page for a possibly malformed inbound slug.
//
// Canonical slugs were produced under two conventions over time: earlier
// generation runs emitted accented "réparateur" slugs, later runs emit
// ASCII-only slugs. Inbound links from search engines and manual entry may
// match either. The lookup chain is deterministic and never writes.
type Resolver struct {
	store PageLookup
}

// NewResolver constructs a resolver over the given lookup.
func NewResolver(store PageLookup) *Resolver {
	return &Resolver{store: store}
}

// Resolve evaluates the fallback chain in strict order, stopping at the
// first hit:
//
//  1. exact match of the raw slug;
//  2. de-accented raw slug;
//  3. only when the raw slug carried no accents, the raw slug with every
//     "reparateur" token rewritten to "réparateur".
//
// Exhaustion of the chain returns ErrResolutionMiss.
func (r *Resolver) Resolve(ctx context.Context, rawSlug string) (Page, error) {
	page, err := r.store.GetBySlug(ctx, rawSlug)
	if err == nil {
		return page, nil
	}
	if !errors.Is(err, ErrPageNotFound) {
		return Page{}, err
	}

	normalized := Deaccent(rawSlug)
	if normalized != rawSlug {
		page, err = r.store.GetBySlug(ctx, normalized)
		if err == nil {
			return page, nil
		}
		if !errors.Is(err, ErrPageNotFound) {
			return Page{}, err
		}
	}

	if !ContainsAccents(rawSlug) {
		accented := Accentuate(rawSlug)
		if accented != rawSlug {
			page, err = r.store.GetBySlug(ctx, accented)
			if err == nil {
				return page, nil
			}
			if !errors.Is(err, ErrPageNotFound) {
				return Page{}, err
			}
		}
	}

	return Page{}, ErrResolutionMiss
}
