package seo

import (
	"context"
	"sort"
)

// CityStat is the per-city aggregate supplied by the repairer directory.
type CityStat struct {
	City          string
	RepairerCount int
	AverageRating float64
}

// Directory is the slice of the repairer directory the engine consumes.
type Directory interface {
	CityStats(ctx context.Context) ([]CityStat, error)
}

// Suggester derives suggested-city candidates by diffing the repairer
// directory against the cities already covered by a page. A candidate
// disappears from the list as soon as a page exists for its city.
type Suggester struct {
	directory Directory
	store     *Store
}

// NewSuggester constructs the suggester.
func NewSuggester(directory Directory, store *Store) (*Suggester, error) {
	if directory == nil {
		return nil, errMissingSuggester
	}
	if store == nil {
		return nil, errMissingStore
	}
	return &Suggester{directory: directory, store: store}, nil
}

// SuggestCities returns uncovered directory cities ordered by repairer
// count descending. Coverage is compared on slugified city values so
// spelling variants of an already-covered city are not re-suggested.
func (s *Suggester) SuggestCities(ctx context.Context) ([]SuggestedCity, error) {
	stats, err := s.directory.CityStats(ctx)
	if err != nil {
		return nil, err
	}

	covered, err := s.store.Cities(ctx)
	if err != nil {
		return nil, err
	}
	coveredSlugs := make(map[string]struct{}, len(covered))
	for _, city := range covered {
		coveredSlugs[Slugify(city)] = struct{}{}
	}

	suggestions := make([]SuggestedCity, 0, len(stats))
	for _, stat := range stats {
		if stat.RepairerCount <= 0 {
			continue
		}
		if _, exists := coveredSlugs[Slugify(stat.City)]; exists {
			continue
		}
		suggestions = append(suggestions, SuggestedCity{
			City:          stat.City,
			RepairerCount: stat.RepairerCount,
			AverageRating: stat.AverageRating,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].RepairerCount > suggestions[j].RepairerCount
	})
	return suggestions, nil
}
