package seo

import (
	"context"
	"encoding/xml"
	"errors"
	"strings"
	"time"
)

const (
	sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"
	// dateOnlyFormat is the date-only layout for lastmod values (e.g. "2024-01-15").
	dateOnlyFormat = "2006-01-02"

	sitemapChangeFreq = "weekly"
	sitemapPriority   = "0.8"
)

var errMissingOrigin = errors.New("site origin is required")

// SitemapFilename is the artifact name the document is served under.
const SitemapFilename = "seo-local-sitemap.xml"

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	XMLNS   string   `xml:"xmlns,attr"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// SitemapBuilder projects published pages into a standalone url-set
// document. Building reads the store and never mutates it.
type SitemapBuilder struct {
	store  *Store
	origin string
}

// NewSitemapBuilder constructs a builder for the given public origin
// (scheme + host, no trailing slash).
func NewSitemapBuilder(store *Store, origin string) (*SitemapBuilder, error) {
	if store == nil {
		return nil, errMissingStore
	}
	trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
	if trimmed == "" {
		return nil, errMissingOrigin
	}
	return &SitemapBuilder{store: store, origin: trimmed}, nil
}

// Build returns the complete XML document covering exactly the published
// pages, one <url> entry each.
func (b *SitemapBuilder) Build(ctx context.Context) ([]byte, error) {
	published := true
	pages, err := b.store.List(ctx, Filter{Published: &published})
	if err != nil {
		return nil, err
	}

	urlset := xmlURLSet{
		XMLNS: sitemapNamespace,
		URLs:  make([]xmlURL, 0, len(pages)),
	}
	for _, page := range pages {
		urlset.URLs = append(urlset.URLs, xmlURL{
			Loc:        b.origin + "/" + page.Slug,
			LastMod:    time.Unix(page.UpdatedAtSeconds, 0).UTC().Format(dateOnlyFormat),
			ChangeFreq: sitemapChangeFreq,
			Priority:   sitemapPriority,
		})
	}

	body, err := xml.MarshalIndent(urlset, "", "  ")
	if err != nil {
		return nil, err
	}

	document := append([]byte(xml.Header), body...)
	document = append(document, '\n')
	return document, nil
}
