package match

import (
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
)

func riderAt(id string, lat, lng float64) *domain.Rider {
	return &domain.Rider{
		ID:     id,
		Rating: 4.0,
		Online: true,
		Location: &domain.RiderLocation{
			Lat:       lat,
			Lng:       lng,
			UpdatedAt: time.Now(),
		},
	}
}

func TestFindNearby_SortedByDistance(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.200000, Lng: 106.816666}

	candidates := []*domain.Rider{
		riderAt("far", -6.260000, 106.816666),
		riderAt("near", -6.205000, 106.816666),
		riderAt("mid", -6.230000, 106.816666),
	}

	results, err := m.FindNearby(customer, candidates, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i := 1; i < len(results); i++ {
		if results[i-1].DistanceKm > results[i].DistanceKm {
			t.Errorf("results not sorted ascending: [%d]=%f > [%d]=%f",
				i-1, results[i-1].DistanceKm, i, results[i].DistanceKm)
		}
	}

	if results[0].Rider.ID != "near" {
		t.Errorf("expected nearest rider first, got %s", results[0].Rider.ID)
	}
}

func TestFindNearby_FiltersRidersWithoutLocation(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.2, Lng: 106.8}

	noLocation := &domain.Rider{ID: "ghost", Online: true}
	located := riderAt("located", -6.21, 106.8)

	results, err := m.FindNearby(customer, []*domain.Rider{noLocation, located}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 || results[0].Rider.ID != "located" {
		t.Errorf("expected only the located rider, got %d results", len(results))
	}
}

func TestFindNearby_FiltersBeyondRadius(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.2, Lng: 106.8}

	inside := riderAt("inside", -6.21, 106.8)   // ~1.1 km
	outside := riderAt("outside", -6.30, 106.8) // ~11 km

	results, err := m.FindNearby(customer, []*domain.Rider{outside, inside}, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 || results[0].Rider.ID != "inside" {
		t.Fatalf("expected only the in-radius rider, got %d results", len(results))
	}
}

func TestFindNearby_TieBrokenByRating(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.2, Lng: 106.8}

	lowRated := riderAt("low", -6.21, 106.8)
	lowRated.Rating = 3.5
	highRated := riderAt("high", -6.21, 106.8)
	highRated.Rating = 4.9

	results, err := m.FindNearby(customer, []*domain.Rider{lowRated, highRated}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].Rider.ID != "high" {
		t.Errorf("expected higher-rated rider first, got %s", results[0].Rider.ID)
	}
}

func TestFindNearby_TieBrokenByOnlineOverShiftOnly(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.2, Lng: 106.8}

	shiftOnly := riderAt("shift-only", -6.21, 106.8)
	shiftOnly.Online = false
	shiftOnly.ShiftActive = true

	online := riderAt("online", -6.21, 106.8)

	results, err := m.FindNearby(customer, []*domain.Rider{shiftOnly, online}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if results[0].Rider.ID != "online" {
		t.Errorf("expected online rider before shift-only, got %s", results[0].Rider.ID)
	}
}

func TestFindNearby_MissingCustomerLocation(t *testing.T) {
	m := NewMatcher(20)

	_, err := m.FindNearby(nil, []*domain.Rider{riderAt("r", -6.2, 106.8)}, 10)
	if !errors.Is(err, ErrLocationUnavailable) {
		t.Fatalf("expected ErrLocationUnavailable, got %v", err)
	}
}

func TestFindNearby_NoCandidatesIsEmptyNotError(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.2, Lng: 106.8}

	results, err := m.FindNearby(customer, nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d", len(results))
	}
}

func TestFindNearby_EtaUsesMatchingSpeed(t *testing.T) {
	m := NewMatcher(20)
	customer := &domain.Coordinate{Lat: -6.200000, Lng: 106.816666}
	rider := riderAt("r", -6.210000, 106.816666)

	results, err := m.FindNearby(customer, []*domain.Rider{rider}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].EtaMinutes != 4 {
		t.Errorf("eta = %d, want 4 at 20 km/h over ~1.11 km", results[0].EtaMinutes)
	}
}
