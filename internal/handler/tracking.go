package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"dispatch/internal/domain"
	"dispatch/internal/geo"
	"dispatch/internal/livesync"
	"dispatch/internal/service"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// TrackingHandler serves the customer tracking stream: order status changes,
// rider positions, and the distance/ETA recomputed against the order's fixed
// destination with the tracking-phase speed.
type TrackingHandler struct {
	orderService *service.OrderService
	riderService *service.RiderService
	live         *livesync.LiveSync
	speedKmh     float64
	log          *slog.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(
	orderService *service.OrderService,
	riderService *service.RiderService,
	live *livesync.LiveSync,
	trackingSpeedKmh float64,
	log *slog.Logger,
) *TrackingHandler {
	return &TrackingHandler{
		orderService: orderService,
		riderService: riderService,
		live:         live,
		speedKmh:     trackingSpeedKmh,
		log:          log,
	}
}

// snapshotFrame opens the stream with the stored order and rider profile.
type snapshotFrame struct {
	Type     string         `json:"type"` // "snapshot"
	Order    OrderResponse  `json:"order"`
	Rider    *RiderResponse `json:"rider,omitempty"`
	Degraded bool           `json:"degraded"`
}

// orderFrame carries one applied order patch.
type orderFrame struct {
	Type  string        `json:"type"` // "order"
	Order OrderResponse `json:"order"`
}

// locationFrame carries one rider position with the recomputed estimate.
// DistanceKm and EtaMinutes are absent when the order has no destination.
type locationFrame struct {
	Type       string   `json:"type"` // "location"
	Lat        float64  `json:"lat"`
	Lng        float64  `json:"lng"`
	UpdatedAt  string   `json:"updated_at"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	EtaMinutes *int     `json:"eta_minutes,omitempty"`
}

// degradedFrame tells the client to fall back to manual refresh.
type degradedFrame struct {
	Type string `json:"type"` // "degraded"
}

// Track handles GET /v1/orders/:id/track
func (h *TrackingHandler) Track(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	sess := &trackingSession{
		handler:  h,
		conn:     conn,
		snapshot: *order,
	}
	sess.run(c.Request.Context())
}

// trackingSession is one connected tracking screen. All writes go through
// write() so concurrent order and location pumps never interleave frames,
// and a response arriving after the client has gone is discarded silently.
type trackingSession struct {
	handler *TrackingHandler
	conn    *websocket.Conn

	mu        sync.Mutex
	snapshot  domain.Order
	delivered bool
	locHandle *livesync.Handle
}

func (s *trackingSession) run(ctx context.Context) {
	h := s.handler

	orderHandle, err := h.live.SubscribeOrder(ctx, s.snapshot.ID, s.onOrderPatch(ctx))
	if err != nil {
		h.log.Warn("order subscription failed", "order_id", s.snapshot.ID, "error", err)
	}

	if s.snapshot.RiderID != "" {
		s.subscribeRider(ctx, s.snapshot.RiderID)
	}

	s.sendSnapshot(ctx, orderHandle)

	// Block on the read side until the client goes away, then release both
	// feeds. Unsubscribe is idempotent, so racing a transport close is fine.
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			break
		}
	}

	h.live.Unsubscribe(orderHandle)
	s.mu.Lock()
	locHandle := s.locHandle
	s.mu.Unlock()
	h.live.Unsubscribe(locHandle)
	_ = s.conn.Close()
}

func (s *trackingSession) sendSnapshot(ctx context.Context, orderHandle *livesync.Handle) {
	frame := snapshotFrame{Type: "snapshot", Order: toOrderResponse(&s.snapshot)}
	if orderHandle != nil && orderHandle.Degraded() {
		frame.Degraded = true
	}

	if s.snapshot.RiderID != "" {
		if rider, err := s.handler.riderService.Profile(ctx, s.snapshot.RiderID); err == nil {
			r := toRiderResponse(rider)
			frame.Rider = &r
		}
	}

	s.write(frame)
}

// onOrderPatch folds each partial change into the session snapshot and
// forwards the result. Once the order is delivered, location estimates stop.
func (s *trackingSession) onOrderPatch(ctx context.Context) livesync.OrderHandler {
	return func(patch domain.OrderPatch) {
		s.mu.Lock()
		s.snapshot = livesync.ApplyPatch(s.snapshot, patch)
		if patch.Status != nil && *patch.Status == domain.OrderStatusDelivered {
			s.delivered = true
		}
		needRiderSub := s.snapshot.RiderID != "" && s.locHandle == nil
		snapshot := s.snapshot
		s.mu.Unlock()

		// The rider becomes known mid-stream when the accept lands after
		// the screen attached.
		if needRiderSub {
			s.subscribeRider(ctx, snapshot.RiderID)
		}

		s.write(orderFrame{Type: "order", Order: toOrderResponse(&snapshot)})
	}
}

func (s *trackingSession) subscribeRider(ctx context.Context, riderID string) {
	handle, err := s.handler.live.SubscribeRiderLocation(ctx, riderID, s.onLocation)
	if err != nil {
		s.handler.log.Warn("rider location subscription failed", "rider_id", riderID, "error", err)
		s.write(degradedFrame{Type: "degraded"})
		return
	}

	s.mu.Lock()
	s.locHandle = handle
	s.mu.Unlock()
}

func (s *trackingSession) onLocation(loc domain.RiderLocation) {
	s.mu.Lock()
	dest := s.snapshot.Destination
	done := s.delivered
	s.mu.Unlock()

	frame := locationFrame{
		Type:      "location",
		Lat:       loc.Lat,
		Lng:       loc.Lng,
		UpdatedAt: loc.UpdatedAt.Format(time.RFC3339),
	}

	// Recompute against the fixed destination until delivery; absent when
	// the order has no destination.
	if !done {
		if est := geo.Between(loc.Coordinate(), dest, s.handler.speedKmh); est != nil {
			frame.DistanceKm = &est.DistanceKm
			frame.EtaMinutes = &est.EtaMinutes
		}
	}

	s.write(frame)
}

func (s *trackingSession) write(frame any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(frame); err != nil {
		// Client already gone; the read loop will tear the session down.
		return
	}
}
