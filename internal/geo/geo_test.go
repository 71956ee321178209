package geo

import (
	"math"
	"testing"

	"dispatch/internal/domain"
)

func TestDistanceKm_IdenticalPointsAreZero(t *testing.T) {
	points := []domain.Coordinate{
		{Lat: 0, Lng: 0},
		{Lat: -6.2, Lng: 106.816666},
		{Lat: 89.9, Lng: -179.9},
	}

	for _, p := range points {
		if d := DistanceKm(p, p); d != 0 {
			t.Errorf("DistanceKm(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistanceKm_Symmetry(t *testing.T) {
	a := domain.Coordinate{Lat: -6.2, Lng: 106.816666}
	b := domain.Coordinate{Lat: 1.29, Lng: 103.85}

	ab := DistanceKm(a, b)
	ba := DistanceKm(b, a)

	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: a->b=%f b->a=%f", ab, ba)
	}
}

func TestDistanceKm_Antipodal(t *testing.T) {
	a := domain.Coordinate{Lat: 0, Lng: 0}
	b := domain.Coordinate{Lat: 0, Lng: 180}

	d := DistanceKm(a, b)
	if math.IsNaN(d) || math.IsInf(d, 0) {
		t.Fatalf("antipodal distance not finite: %f", d)
	}

	// Half the Earth's circumference, within a kilometer.
	want := math.Pi * 6371.0
	if math.Abs(d-want) > 1.0 {
		t.Errorf("antipodal distance = %f, want ~%f", d, want)
	}
}

func TestDistanceKm_JakartaScenario(t *testing.T) {
	customer := domain.Coordinate{Lat: -6.200000, Lng: 106.816666}
	rider := domain.Coordinate{Lat: -6.210000, Lng: 106.816666}

	d := DistanceKm(customer, rider)
	if math.Abs(d-1.11) > 0.01 {
		t.Errorf("distance = %f, want ~1.11", d)
	}

	if eta := EtaMinutes(d, 20); eta != 4 {
		t.Errorf("eta = %d, want 4", eta)
	}
}

func TestEtaMinutes_NeverNegative(t *testing.T) {
	cases := []struct {
		distanceKm float64
		speedKmh   float64
	}{
		{0, 20},
		{-1, 20},
		{5, 20},
		{5, 0},
		{5, -10},
	}

	for _, c := range cases {
		if eta := EtaMinutes(c.distanceKm, c.speedKmh); eta < 0 {
			t.Errorf("EtaMinutes(%f, %f) = %d, want >= 0", c.distanceKm, c.speedKmh, eta)
		}
	}
}

func TestEtaMinutes_RoundsUp(t *testing.T) {
	// 1 km at 30 km/h is 2 minutes exactly; 1.01 km rounds up to 3.
	if eta := EtaMinutes(1.0, 30); eta != 2 {
		t.Errorf("eta = %d, want 2", eta)
	}
	if eta := EtaMinutes(1.01, 30); eta != 3 {
		t.Errorf("eta = %d, want 3", eta)
	}
}

func TestBetween_MissingCoordinates(t *testing.T) {
	p := &domain.Coordinate{Lat: -6.2, Lng: 106.8}

	if est := Between(nil, p, 20); est != nil {
		t.Errorf("expected nil estimate for missing origin, got %+v", est)
	}
	if est := Between(p, nil, 20); est != nil {
		t.Errorf("expected nil estimate for missing destination, got %+v", est)
	}
	if est := Between(nil, nil, 20); est != nil {
		t.Errorf("expected nil estimate for both missing, got %+v", est)
	}

	est := Between(p, p, 20)
	if est == nil {
		t.Fatal("expected estimate for present coordinates")
	}
	if est.DistanceKm != 0 || est.EtaMinutes != 0 {
		t.Errorf("identical points: got %+v, want zero distance and eta", est)
	}
}
