package repairers

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:repairers_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&Repairer{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return service, db
}

func seedRepairers(t *testing.T, db *gorm.DB, repairers ...Repairer) {
	t.Helper()
	for i := range repairers {
		if err := db.Create(&repairers[i]).Error; err != nil {
			t.Fatalf("failed to seed repairer: %v", err)
		}
	}
}

func TestCityStatsAggregatesActiveRepairers(t *testing.T) {
	service, db := newTestService(t)
	seedRepairers(t, db,
		Repairer{ID: "r1", Name: "Atelier Mobile", City: "Nantes", Rating: 4.5, IsActive: true},
		Repairer{ID: "r2", Name: "Répar'Express", City: "Nantes", Rating: 4.9, IsActive: true},
		Repairer{ID: "r3", Name: "PC Clinic", City: "Lyon", Rating: 4.0, IsActive: true},
		Repairer{ID: "r4", Name: "Fermé", City: "Lyon", Rating: 1.0, IsActive: false},
	)

	stats, err := service.CityStats(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected two cities, got %#v", stats)
	}
	if stats[0].City != "Nantes" || stats[0].RepairerCount != 2 {
		t.Fatalf("expected Nantes first with two repairers, got %#v", stats[0])
	}
	if stats[0].AverageRating != 4.7 {
		t.Fatalf("unexpected average rating: %f", stats[0].AverageRating)
	}
	if stats[1].City != "Lyon" || stats[1].RepairerCount != 1 {
		t.Fatalf("inactive repairers must be excluded, got %#v", stats[1])
	}
}

func TestSampleTestimonialsOrdersByRating(t *testing.T) {
	service, db := newTestService(t)
	seedRepairers(t, db,
		Repairer{ID: "r1", Name: "A", City: "Nantes", Rating: 4.2, ReviewCount: 10, Testimonial: "Bien", IsActive: true},
		Repairer{ID: "r2", Name: "B", City: "Nantes", Rating: 4.9, ReviewCount: 40, Testimonial: "Excellent", IsActive: true},
		Repairer{ID: "r3", Name: "C", City: "Nantes", Rating: 4.9, ReviewCount: 12, Testimonial: "Très bon", IsActive: true},
		Repairer{ID: "r4", Name: "D", City: "Nantes", Rating: 5.0, ReviewCount: 3, Testimonial: "", IsActive: true},
		Repairer{ID: "r5", Name: "E", City: "Lyon", Rating: 5.0, ReviewCount: 9, Testimonial: "Ailleurs", IsActive: true},
	)

	testimonials, err := service.SampleTestimonials(context.Background(), "Nantes", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(testimonials) != 2 {
		t.Fatalf("expected two testimonials, got %#v", testimonials)
	}
	if testimonials[0] != "Excellent" || testimonials[1] != "Très bon" {
		t.Fatalf("unexpected ordering: %#v", testimonials)
	}
}

func TestSampleTestimonialsRejectsEmptyCity(t *testing.T) {
	service, _ := newTestService(t)
	if _, err := service.SampleTestimonials(context.Background(), "  ", 3); err == nil {
		t.Fatalf("expected error for empty city")
	}
}
