package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// RiderHandler handles HTTP requests for riders.
type RiderHandler struct {
	riderService *service.RiderService
	matchService *service.MatchService
	riderRepo    repository.RiderRepository
}

// NewRiderHandler creates a new RiderHandler.
func NewRiderHandler(riderService *service.RiderService, matchService *service.MatchService, riderRepo repository.RiderRepository) *RiderHandler {
	return &RiderHandler{
		riderService: riderService,
		matchService: matchService,
		riderRepo:    riderRepo,
	}
}

// RegisterRiderRequest is the HTTP request body for rider registration.
type RegisterRiderRequest struct {
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	PhotoURL string  `json:"photo_url,omitempty"`
	Rating   float64 `json:"rating,omitempty"`
	Stock    int     `json:"stock,omitempty"`
}

// UpdateLocationRequest is the HTTP request body for a rider location ping.
type UpdateLocationRequest struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	PingedAt string  `json:"pinged_at,omitempty"` // RFC3339; empty means now
}

// SetStatusRequest is the HTTP request body for rider availability flags.
type SetStatusRequest struct {
	Online      bool `json:"online"`
	ShiftActive bool `json:"shift_active"`
}

// RiderResponse is the HTTP response for rider data.
type RiderResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Phone       string         `json:"phone"`
	PhotoURL    string         `json:"photo_url,omitempty"`
	Rating      float64        `json:"rating"`
	Stock       int            `json:"stock"`
	Online      bool           `json:"online"`
	ShiftActive bool           `json:"shift_active"`
	Location    *CoordinateDTO `json:"location,omitempty"`
}

// MatchResultResponse is one ranked candidate in a nearby query.
type MatchResultResponse struct {
	Rider      RiderResponse `json:"rider"`
	DistanceKm float64       `json:"distance_km"`
	EtaMinutes int           `json:"eta_minutes"`
}

func toRiderResponse(r *domain.Rider) RiderResponse {
	resp := RiderResponse{
		ID:          r.ID,
		Name:        r.Name,
		Phone:       r.Phone,
		PhotoURL:    r.PhotoURL,
		Rating:      r.Rating,
		Stock:       r.Stock,
		Online:      r.Online,
		ShiftActive: r.ShiftActive,
	}
	if r.Location != nil {
		resp.Location = &CoordinateDTO{Lat: r.Location.Lat, Lng: r.Location.Lng}
	}
	return resp
}

// Register handles POST /v1/riders/register
func (h *RiderHandler) Register(c *gin.Context) {
	var req RegisterRiderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Name == "" || req.Phone == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name and phone are required"})
		return
	}

	existing, err := h.riderRepo.GetByPhone(c.Request.Context(), req.Phone)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{
			"message": "Rider already registered",
			"rider":   toRiderResponse(existing),
		})
		return
	}

	rider := &domain.Rider{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Phone:    req.Phone,
		PhotoURL: req.PhotoURL,
		Rating:   req.Rating,
		Stock:    req.Stock,
	}

	if err := h.riderRepo.Create(c.Request.Context(), rider); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toRiderResponse(rider))
}

// GetAll handles GET /v1/riders
func (h *RiderHandler) GetAll(c *gin.Context) {
	riders, err := h.riderRepo.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]RiderResponse, 0, len(riders))
	for _, r := range riders {
		response = append(response, toRiderResponse(r))
	}

	respondJSON(c, http.StatusOK, response)
}

// UpdateLocation handles POST /v1/riders/:id/location
func (h *RiderHandler) UpdateLocation(c *gin.Context) {
	var req UpdateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	svcReq := service.UpdateLocationRequest{
		RiderID: c.Param("id"),
		Lat:     req.Lat,
		Lng:     req.Lng,
	}
	if req.PingedAt != "" {
		t, err := time.Parse(time.RFC3339, req.PingedAt)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid pinged_at timestamp"})
			return
		}
		svcReq.PingedAt = t
	}

	if err := h.riderService.UpdateLocation(c.Request.Context(), svcReq); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetStatus handles POST /v1/riders/:id/status
func (h *RiderHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.riderService.SetStatus(c.Request.Context(), c.Param("id"), req.Online, req.ShiftActive); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// FindNearby handles GET /v1/riders/nearby?lat=&lng=&radius_km=
func (h *RiderHandler) FindNearby(c *gin.Context) {
	customer, err := parseCustomerLocation(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	radiusKm, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	results, err := h.matchService.FindNearby(c.Request.Context(), customer, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]MatchResultResponse, 0, len(results))
	for _, r := range results {
		response = append(response, MatchResultResponse{
			Rider:      toRiderResponse(r.Rider),
			DistanceKm: r.DistanceKm,
			EtaMinutes: r.EtaMinutes,
		})
	}

	respondJSON(c, http.StatusOK, response)
}

// parseCustomerLocation returns nil when no coordinates were supplied, which
// the match service reports as a location-unavailable error.
func parseCustomerLocation(c *gin.Context) (*domain.Coordinate, error) {
	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr == "" && lngStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("invalid lat")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, errors.New("invalid lng")
	}

	return &domain.Coordinate{Lat: lat, Lng: lng}, nil
}
