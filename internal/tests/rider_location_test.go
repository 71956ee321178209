package tests

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/feed"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// RIDER LOCATION EDGE CASES
// ──────────────────────────────────────────────

func newRiderService(riderRepo *MockRiderRepository, locationRepo *MockRiderLocationRepository, locationStore *MockLocationStore, changes feed.ChangeFeed) *service.RiderService {
	return service.NewRiderService(riderRepo, locationRepo, locationStore, nil, changes, testLogger())
}

func TestRiderLocation_SingleRowPerRider(t *testing.T) {
	t.Parallel()

	locationRepo := NewMockRiderLocationRepository()
	svc := newRiderService(NewMockRiderRepository(), locationRepo, NewMockLocationStore(), nil)
	ctx := context.Background()

	var lastLat float64
	for i := 0; i < 5; i++ {
		lastLat = -6.2 + float64(i)*0.001
		err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{
			RiderID: "rider-1",
			Lat:     lastLat,
			Lng:     106.816666,
		})
		if err != nil {
			t.Fatalf("ping %d failed: %v", i, err)
		}
	}

	if locationRepo.RowCount() != 1 {
		t.Errorf("expected a single location row, got %d", locationRepo.RowCount())
	}

	loc, err := locationRepo.Get(ctx, "rider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Lat != lastLat {
		t.Errorf("expected the last ping to win, got lat %v want %v", loc.Lat, lastLat)
	}
}

func TestRiderLocation_StalePingStillOverwrites(t *testing.T) {
	t.Parallel()

	locationRepo := NewMockRiderLocationRepository()
	svc := newRiderService(NewMockRiderRepository(), locationRepo, NewMockLocationStore(), nil)
	ctx := context.Background()

	now := time.Now()
	fresh := service.UpdateLocationRequest{RiderID: "rider-1", Lat: -6.2, Lng: 106.8, PingedAt: now}
	stale := service.UpdateLocationRequest{RiderID: "rider-1", Lat: -6.3, Lng: 106.9, PingedAt: now.Add(-time.Minute)}

	if err := svc.UpdateLocation(ctx, fresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.UpdateLocation(ctx, stale); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Arrival order decides, not the client timestamp.
	loc, err := locationRepo.Get(ctx, "rider-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.Lat != -6.3 {
		t.Errorf("expected the later arrival to win, got lat %v", loc.Lat)
	}
}

func TestRiderLocation_InvalidCoordinates_Fail(t *testing.T) {
	t.Parallel()

	svc := newRiderService(NewMockRiderRepository(), NewMockRiderLocationRepository(), NewMockLocationStore(), nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		lat, lng float64
	}{
		{"lat too high", 91, 0},
		{"lat too low", -91, 0},
		{"lng too high", 0, 181},
		{"lng too low", 0, -181},
	}

	for _, tc := range cases {
		err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{RiderID: "rider-1", Lat: tc.lat, Lng: tc.lng})
		if !errors.Is(err, service.ErrInvalidLocation) {
			t.Errorf("%s: expected ErrInvalidLocation, got %v", tc.name, err)
		}
	}
}

func TestRiderLocation_GeoIndexFailureDoesNotFailPing(t *testing.T) {
	t.Parallel()

	locationRepo := NewMockRiderLocationRepository()
	locationStore := NewMockLocationStore()
	locationStore.UpdateLocationError = ErrMockTimeout
	svc := newRiderService(NewMockRiderRepository(), locationRepo, locationStore, nil)

	err := svc.UpdateLocation(context.Background(), service.UpdateLocationRequest{RiderID: "rider-1", Lat: -6.2, Lng: 106.8})
	if err != nil {
		t.Fatalf("ping must survive an index failure, got %v", err)
	}
	if locationRepo.RowCount() != 1 {
		t.Errorf("expected the stored row to be written, got %d rows", locationRepo.RowCount())
	}
}

func TestRiderLocation_PingPublishedOnFeed(t *testing.T) {
	t.Parallel()

	changes := feed.NewMemoryFeed()
	defer changes.Shutdown()
	svc := newRiderService(NewMockRiderRepository(), NewMockRiderLocationRepository(), NewMockLocationStore(), changes)
	ctx := context.Background()

	sub, err := changes.Subscribe(ctx, feed.RiderLocationTopic("rider-1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer sub.Close()

	if err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{RiderID: "rider-1", Lat: -6.2, Lng: 106.8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case msg := <-sub.Messages():
		var loc domain.RiderLocation
		if err := json.Unmarshal(msg.Payload, &loc); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if loc.Lat != -6.2 || loc.Lng != 106.8 {
			t.Errorf("unexpected position %v,%v", loc.Lat, loc.Lng)
		}
	case <-time.After(time.Second):
		t.Fatal("no location published on the feed")
	}
}

func TestRiderStatus_FullyUnavailableLeavesGeoIndex(t *testing.T) {
	t.Parallel()

	riderRepo := NewMockRiderRepository()
	riderRepo.AddRider(&domain.Rider{ID: "rider-1", Online: true})
	locationStore := NewMockLocationStore()
	svc := newRiderService(riderRepo, NewMockRiderLocationRepository(), locationStore, nil)
	ctx := context.Background()

	if err := svc.UpdateLocation(ctx, service.UpdateLocationRequest{RiderID: "rider-1", Lat: -6.2, Lng: 106.8}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !locationStore.HasLocation("rider-1") {
		t.Fatal("expected rider-1 in the geo index after a ping")
	}

	// Off shift but still online keeps the rider matchable.
	if err := svc.SetStatus(ctx, "rider-1", true, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !locationStore.HasLocation("rider-1") {
		t.Error("online rider must stay in the geo index")
	}

	if err := svc.SetStatus(ctx, "rider-1", false, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if locationStore.HasLocation("rider-1") {
		t.Error("fully unavailable rider must leave the geo index")
	}
}
