package domain

import "time"

// RiderLocation is a rider's last known position. Each rider has at most one
// current location record at any time; pings overwrite, they never append.
type RiderLocation struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Coordinate returns the location as a plain lat/lng point.
func (l *RiderLocation) Coordinate() *Coordinate {
	if l == nil {
		return nil
	}
	return &Coordinate{Lat: l.Lat, Lng: l.Lng}
}

// Rider represents a delivery rider in the system.
type Rider struct {
	ID          string
	Name        string
	Phone       string
	PhotoURL    string
	Rating      float64 // 0..5
	Stock       int
	Online      bool
	ShiftActive bool
	Location    *RiderLocation // nil when no ping has been received yet
}

// Available reports whether the rider can be offered orders at all.
func (r *Rider) Available() bool {
	return r.Online || r.ShiftActive
}

// RiderMatchResult is one ranked candidate for a customer location.
// It is computed per query and never persisted.
type RiderMatchResult struct {
	Rider      *Rider
	DistanceKm float64
	EtaMinutes int
}
