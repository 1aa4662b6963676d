package seo

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	opTrackView  = "seo.views.track_view"
	opTrackClick = "seo.views.track_click"

	trackTimeout = 5 * time.Second
)

// Tracker records page views and click-throughs without ever blocking or
// failing the render path. Every recording runs on a detached goroutine
// with its own deadline; failures are logged and discarded at this
// boundary.
type Tracker struct {
	store  *Store
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewTracker constructs the view tracker.
func NewTracker(store *Store, logger *zap.Logger) (*Tracker, error) {
	if store == nil {
		return nil, errMissingStore
	}
	if logger == nil {
		logger = noOpLogger
	}
	return &Tracker{store: store, logger: logger}, nil
}

// TrackView increments the page view counter by exactly one, fire and
// forget.
func (t *Tracker) TrackView(pageID string) {
	t.dispatch(opTrackView, pageID, t.store.IncrementViews)
}

// TrackClick records one CTA click-through, fire and forget.
func (t *Tracker) TrackClick(pageID string) {
	t.dispatch(opTrackClick, pageID, t.store.RecordClickThrough)
}

func (t *Tracker) dispatch(operation, pageID string, record func(context.Context, string) error) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
		defer cancel()
		if err := record(ctx, pageID); err != nil {
			t.logger.Warn("tracking update dropped",
				zap.String("operation", operation),
				zap.String("page_id", pageID),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every dispatched recording has finished. Intended for
// tests and shutdown.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
