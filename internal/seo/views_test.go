package seo

import (
	"context"
	"testing"
)

func TestTrackerCountsEveryView(t *testing.T) {
	store, _ := newTestStore(t, nil)
	tracker, err := NewTracker(store, nil)
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}
	ids := createPages(t, store, "Nantes")

	const views = 5
	for i := 0; i < views; i++ {
		tracker.TrackView(ids[0])
		// Failures on unknown pages are swallowed and must not interfere.
		tracker.TrackView("missing")
	}
	tracker.Wait()

	page, err := store.GetByID(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.PageViews != views {
		t.Fatalf("expected %d views, got %d", views, page.PageViews)
	}
}

func TestTrackerSwallowsFailures(t *testing.T) {
	store, _ := newTestStore(t, nil)
	tracker, err := NewTracker(store, nil)
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}

	// Must not panic or surface anything to the caller.
	tracker.TrackView("missing")
	tracker.TrackClick("missing")
	tracker.Wait()
}

func TestTrackerRecordsClicks(t *testing.T) {
	store, _ := newTestStore(t, nil)
	tracker, err := NewTracker(store, nil)
	if err != nil {
		t.Fatalf("failed to build tracker: %v", err)
	}
	ids := createPages(t, store, "Nantes")

	tracker.TrackView(ids[0])
	tracker.Wait()
	tracker.TrackClick(ids[0])
	tracker.Wait()

	page, err := store.GetByID(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.ClickThroughRate != 100.0 {
		t.Fatalf("expected 100%% rate after one view and one click, got %f", page.ClickThroughRate)
	}
}
