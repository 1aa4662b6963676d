package seo

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// MaxBulkGenerate caps how many suggested cities a single bulk generation
// run may process, bounding worst-case latency and load on the external
// generation boundary.
const MaxBulkGenerate = 20

const (
	opBulkPublish   = "seo.bulk.publish"
	opBulkUnpublish = "seo.bulk.unpublish"
	opBulkDelete    = "seo.bulk.delete"
	opBulkGenerate  = "seo.bulk.generate"
	opBulkOptimize  = "seo.bulk.optimize"
)

var (
	errMissingPipeline  = errors.New("generation pipeline is required")
	errMissingSuggester = errors.New("city suggester is required")
)

// ItemResult records the outcome of one item within a bulk operation.
// Key is the page id, except for bulk generation where it is the city.
type ItemResult struct {
	Key string `json:"key"`
	Err error  `json:"-"`
}

// BulkResult aggregates a best-effort batch. Items carries one entry per
// processed item so callers can retry exactly the failed subset.
type BulkResult struct {
	SuccessCount int
	TotalCount   int
	Items        []ItemResult
}

// CitySuggester supplies the ordered suggested-city candidates for bulk
// generation.
type CitySuggester interface {
	SuggestCities(ctx context.Context) ([]SuggestedCity, error)
}

// CoordinatorConfig bundles the dependencies of the bulk coordinator.
type CoordinatorConfig struct {
	Store     *Store
	Pipeline  *Pipeline
	Suggester CitySuggester
	Logger    *zap.Logger
}

// Coordinator drives best-effort batch operations over the page store.
//
// Items are processed strictly sequentially so load on the store and the
// generation boundary stays bounded and predictable. Per-item failures are
// logged and recorded but never abort the remaining items; losing a few
// items out of a batch beats discarding the whole batch over one failed
// external call. There is no multi-record transaction behind any of this.
//
// The coordinator also owns the administrative selection set. It is cleared
// unconditionally at the end of every bulk operation, whatever the outcome.
type Coordinator struct {
	store     *Store
	pipeline  *Pipeline
	suggester CitySuggester
	logger    *zap.Logger

	mu       sync.Mutex
	selected map[string]struct{}
}

// NewCoordinator constructs the coordinator with validated configuration.
func NewCoordinator(cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.Store == nil {
		return nil, newServiceError(opBulkPublish, "missing_store", errMissingStore)
	}
	if cfg.Pipeline == nil {
		return nil, newServiceError(opBulkGenerate, "missing_pipeline", errMissingPipeline)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Coordinator{
		store:     cfg.Store,
		pipeline:  cfg.Pipeline,
		suggester: cfg.Suggester,
		logger:    logger,
		selected:  make(map[string]struct{}),
	}, nil
}

// Select adds a page id to the administrative selection.
func (c *Coordinator) Select(pageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected[pageID] = struct{}{}
}

// Deselect removes a page id from the administrative selection.
func (c *Coordinator) Deselect(pageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.selected, pageID)
}

// Selected returns a snapshot of the currently selected page ids.
func (c *Coordinator) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.selected))
	for id := range c.selected {
		ids = append(ids, id)
	}
	return ids
}

// ClearSelection drops every selected page id.
func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = make(map[string]struct{})
}

// BulkPublish publishes every page in the id list, best effort.
func (c *Coordinator) BulkPublish(ctx context.Context, pageIDs []string) BulkResult {
	return c.forEachPage(ctx, opBulkPublish, pageIDs, func(ctx context.Context, pageID string) error {
		_, err := c.store.SetPublished(ctx, pageID, true)
		return err
	})
}

// BulkUnpublish unpublishes every page in the id list, best effort.
func (c *Coordinator) BulkUnpublish(ctx context.Context, pageIDs []string) BulkResult {
	return c.forEachPage(ctx, opBulkUnpublish, pageIDs, func(ctx context.Context, pageID string) error {
		_, err := c.store.SetPublished(ctx, pageID, false)
		return err
	})
}

// BulkDelete permanently removes every page in the id list, best effort.
func (c *Coordinator) BulkDelete(ctx context.Context, pageIDs []string) BulkResult {
	return c.forEachPage(ctx, opBulkDelete, pageIDs, func(ctx context.Context, pageID string) error {
		return c.store.Delete(ctx, pageID)
	})
}

// BulkGenerate creates Draft pages for the suggested-city candidates, in
// the order supplied by the suggester, capped at MaxBulkGenerate items.
func (c *Coordinator) BulkGenerate(ctx context.Context, serviceType ServiceType) (BulkResult, error) {
	if c.suggester == nil {
		return BulkResult{}, newServiceError(opBulkGenerate, "missing_suggester", errMissingSuggester)
	}

	suggestions, err := c.suggester.SuggestCities(ctx)
	if err != nil {
		return BulkResult{}, err
	}
	if len(suggestions) > MaxBulkGenerate {
		suggestions = suggestions[:MaxBulkGenerate]
	}

	result := BulkResult{TotalCount: len(suggestions), Items: make([]ItemResult, 0, len(suggestions))}
	for _, suggestion := range suggestions {
		if err := c.yield(ctx); err != nil {
			result.Items = append(result.Items, ItemResult{Key: suggestion.City, Err: err})
			continue
		}

		itemErr := c.generateOne(ctx, suggestion, serviceType)
		if itemErr != nil {
			c.logItemFailure(opBulkGenerate, suggestion.City, itemErr)
		} else {
			result.SuccessCount++
		}
		result.Items = append(result.Items, ItemResult{Key: suggestion.City, Err: itemErr})
	}

	c.ClearSelection()
	return result, nil
}

// BulkOptimize regenerates content for every currently published page.
func (c *Coordinator) BulkOptimize(ctx context.Context) (BulkResult, error) {
	published := true
	pages, err := c.store.List(ctx, Filter{Published: &published})
	if err != nil {
		return BulkResult{}, err
	}

	pageIDs := make([]string, 0, len(pages))
	for _, page := range pages {
		pageIDs = append(pageIDs, page.ID)
	}

	return c.forEachPage(ctx, opBulkOptimize, pageIDs, func(ctx context.Context, pageID string) error {
		_, err := c.pipeline.Refresh(ctx, pageID)
		return err
	}), nil
}

func (c *Coordinator) generateOne(ctx context.Context, suggestion SuggestedCity, serviceType ServiceType) error {
	city, err := NewCityName(suggestion.City)
	if err != nil {
		return err
	}
	_, err = c.pipeline.Generate(ctx, city, serviceType, suggestion.RepairerCount, suggestion.AverageRating)
	return err
}

// forEachPage runs a single-item operation over the ids strictly in order.
// Cancellation is observed between items only; an item already dispatched
// completes and its store mutation stands.
func (c *Coordinator) forEachPage(ctx context.Context, operation string, pageIDs []string, apply func(context.Context, string) error) BulkResult {
	result := BulkResult{TotalCount: len(pageIDs), Items: make([]ItemResult, 0, len(pageIDs))}
	for _, pageID := range pageIDs {
		if err := c.yield(ctx); err != nil {
			result.Items = append(result.Items, ItemResult{Key: pageID, Err: err})
			continue
		}

		itemErr := apply(ctx, pageID)
		if itemErr != nil {
			c.logItemFailure(operation, pageID, itemErr)
		} else {
			result.SuccessCount++
		}
		result.Items = append(result.Items, ItemResult{Key: pageID, Err: itemErr})
	}

	c.ClearSelection()
	return result
}

func (c *Coordinator) yield(ctx context.Context) error {
	return ctx.Err()
}

func (c *Coordinator) logItemFailure(operation, key string, err error) {
	c.logger.Warn("bulk item failed",
		zap.String("operation", operation),
		zap.String("item", key),
		zap.Error(err))
}
