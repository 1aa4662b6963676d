package seo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type staticIDGenerator struct {
	ids   []string
	index int
}

func (g *staticIDGenerator) NewID() (string, error) {
	if g.index >= len(g.ids) {
		return "", errors.New("exhausted ids")
	}
	id := g.ids[g.index]
	g.index++
	return id, nil
}

type sequentialIDGenerator struct {
	next int
}

func (g *sequentialIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("page-%d", g.next), nil
}

func mustCity(t *testing.T, value string) CityName {
	t.Helper()
	city, err := NewCityName(value)
	if err != nil {
		t.Fatalf("unexpected city error: %v", err)
	}
	return city
}

func mustServiceType(t *testing.T, value string) ServiceType {
	t.Helper()
	serviceType, err := ParseServiceType(value)
	if err != nil {
		t.Fatalf("unexpected service type error: %v", err)
	}
	return serviceType
}

func newTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:seo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&Page{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestStore(t *testing.T, provider IDProvider) (*Store, *gorm.DB) {
	t.Helper()
	db := newTestDatabase(t)
	if provider == nil {
		provider = &sequentialIDGenerator{}
	}
	store, err := NewStore(StoreConfig{
		Database:   db,
		Clock:      func() time.Time { return time.Unix(1750000000, 0) },
		IDProvider: provider,
	})
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	return store, db
}
