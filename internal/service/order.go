package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/feed"
	"dispatch/internal/metrics"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// riderAcceptLockTTL bounds how long a rider's accept lock can linger if the
// holder dies mid-call.
const riderAcceptLockTTL = 10 * time.Second

// EventPublisher receives committed order lifecycle events. Implementations
// must tolerate being called after the transition has already committed;
// publishing is best-effort and never rolls an order back.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, e domain.OrderStatusChanged) error
	DeliveryCompleted(ctx context.Context, e domain.DeliveryCompleted) error
}

// OrderService owns the order entity and its guarded transitions. Every
// transition is a single conditional update on the authoritative row, so two
// racing callers have exactly one winner; the loser observes a no-op and
// gets ErrIllegalTransition.
type OrderService struct {
	orderRepo repository.OrderRepository
	lockStore redis.LockStoreInterface // optional
	changes   feed.ChangeFeed          // optional
	events    EventPublisher           // optional
	notifier  *NotificationService     // optional
	log       *slog.Logger
}

// NewOrderService creates a new OrderService. lockStore, changes, events and
// notifier may each be nil; the state machine works without them.
func NewOrderService(
	orderRepo repository.OrderRepository,
	lockStore redis.LockStoreInterface,
	changes feed.ChangeFeed,
	events EventPublisher,
	notifier *NotificationService,
	log *slog.Logger,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		lockStore: lockStore,
		changes:   changes,
		events:    events,
		notifier:  notifier,
		log:       log,
	}
}

// CreateOrderRequest carries the finalized checkout payload. Totals are
// already validated by the cart collaborator and are not re-validated here.
type CreateOrderRequest struct {
	CustomerID      string
	RiderID         string // optional: empty means any rider may accept
	OrderType       domain.OrderType
	Destination     *domain.Coordinate
	DeliveryAddress string
	Items           []domain.OrderItem
	TotalPrice      float64
	DeliveryFee     float64
	DiscountAmount  float64
	VoucherID       string
	PaymentMethod   domain.PaymentMethod
}

// Create creates a new order in PENDING state.
func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	now := time.Now()
	order := &domain.Order{
		ID:              uuid.New().String(),
		CustomerID:      req.CustomerID,
		RiderID:         req.RiderID,
		Status:          domain.OrderStatusPending,
		OrderType:       req.OrderType,
		Destination:     req.Destination,
		DeliveryAddress: req.DeliveryAddress,
		Items:           req.Items,
		TotalPrice:      req.TotalPrice,
		DeliveryFee:     req.DeliveryFee,
		DiscountAmount:  req.DiscountAmount,
		VoucherID:       req.VoucherID,
		PaymentMethod:   req.PaymentMethod,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()

	if s.events != nil {
		if err := s.events.OrderCreated(ctx, order); err != nil {
			s.log.Warn("order created event publish failed", "order_id", order.ID, "error", err)
		}
	}

	status := order.Status
	s.publishPatch(ctx, domain.OrderPatch{
		OrderID:   order.ID,
		Status:    &status,
		UpdatedAt: now,
	})

	if s.notifier != nil && order.RiderID != "" {
		s.notifier.NotifyOrderOffered(order.RiderID, order.ID)
	}

	return order, nil
}

// Get retrieves an order by ID.
func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	return s.orderRepo.GetByID(ctx, orderID)
}

// List retrieves all orders.
func (s *OrderService) List(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.GetAll(ctx)
}

// Accept moves a PENDING order to ACCEPTED for its addressed rider. A
// second accept, by any path, finds the guard closed and the stored order
// unchanged.
func (s *OrderService) Accept(ctx context.Context, orderID, riderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	// An order past PENDING is already handled; only a still-open order
	// can be addressed to the wrong rider. The row guard below remains the
	// authority when the status moves between this read and the update.
	if order.Status != domain.OrderStatusPending {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}
	if order.RiderID != "" && order.RiderID != riderID {
		return nil, ErrRiderNotAddressed
	}

	// The rider lock absorbs a double-tapped accept before the status guard
	// commits. TTL expiry releases it on the success path.
	if s.lockStore != nil {
		locked, err := s.lockStore.AcquireRiderLock(ctx, riderID, riderAcceptLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrRiderBusy
		}
	}

	now := time.Now()
	ok, err := s.orderRepo.Accept(ctx, orderID, riderID, now)
	if err != nil {
		s.releaseLock(ctx, riderID)
		return nil, err
	}
	if !ok {
		s.releaseLock(ctx, riderID)
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}

	s.afterTransition(ctx, orderID, order.Status, domain.OrderStatusAccepted, domain.OrderPatch{
		OrderID:   orderID,
		RiderID:   &riderID,
		UpdatedAt: now,
	})

	if s.notifier != nil {
		s.notifier.NotifyOrderAccepted(order.CustomerID, orderID)
	}

	order.RiderID = riderID
	order.Status = domain.OrderStatusAccepted
	order.UpdatedAt = now
	return order, nil
}

// Reject moves a PENDING order to REJECTED, storing the reason. Terminal.
func (s *OrderService) Reject(ctx context.Context, orderID, riderID, reason string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}
	if order.RiderID != "" && order.RiderID != riderID {
		return nil, ErrRiderNotAddressed
	}

	now := time.Now()
	ok, err := s.orderRepo.Reject(ctx, orderID, riderID, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}

	s.afterTransition(ctx, orderID, order.Status, domain.OrderStatusRejected, domain.OrderPatch{
		OrderID:         orderID,
		RejectionReason: &reason,
		UpdatedAt:       now,
	})

	if s.notifier != nil {
		s.notifier.NotifyOrderRejected(order.CustomerID, orderID, reason)
	}

	order.Status = domain.OrderStatusRejected
	order.RejectionReason = reason
	order.UpdatedAt = now
	return order, nil
}

// MarkInProgress moves an ACCEPTED order to IN_PROGRESS.
func (s *OrderService) MarkInProgress(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusAccepted, domain.OrderStatusInProgress)
}

// MarkDelivered moves an IN_PROGRESS order to DELIVERED and emits exactly
// one DeliveryCompleted event: the guard admits a single winner, and the
// event follows only a won transition.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := s.transition(ctx, orderID, domain.OrderStatusInProgress, domain.OrderStatusDelivered)
	if err != nil {
		return nil, err
	}

	if s.events != nil {
		e := domain.DeliveryCompleted{OrderID: orderID}
		if err := s.events.DeliveryCompleted(ctx, e); err != nil {
			s.log.Warn("delivery completed event publish failed", "order_id", orderID, "error", err)
		}
	}

	return order, nil
}

// Complete moves a DELIVERED order to COMPLETED. Terminal.
func (s *OrderService) Complete(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusDelivered, domain.OrderStatusCompleted)
}

// Cancel moves any non-terminal order to CANCELLED. Which actor may cancel
// is the caller's policy; only "non-terminal" is enforced here.
func (s *OrderService) Cancel(ctx context.Context, orderID, actor string) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}

	now := time.Now()
	ok, err := s.orderRepo.Cancel(ctx, orderID, actor, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}

	s.afterTransition(ctx, orderID, order.Status, domain.OrderStatusCancelled, domain.OrderPatch{
		OrderID:     orderID,
		CancelledBy: &actor,
		UpdatedAt:   now,
	})

	if s.notifier != nil && order.RiderID != "" {
		s.notifier.NotifyOrderCancelled(order.RiderID, orderID)
	}

	order.Status = domain.OrderStatusCancelled
	order.CancelledBy = actor
	order.UpdatedAt = now
	return order, nil
}

// transition runs a plain from -> to guard and the shared post-commit work.
func (s *OrderService) transition(ctx context.Context, orderID string, from, to domain.OrderStatus) (*domain.Order, error) {
	if orderID == "" {
		return nil, ErrInvalidOrderID
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	// Fast fail on the in-memory state machine; the conditional update
	// below remains the authority under races.
	if !domain.CanTransition(order.Status, to) {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}

	now := time.Now()
	ok, err := s.orderRepo.UpdateStatus(ctx, orderID, from, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		metrics.IllegalTransitions.Inc()
		return nil, ErrIllegalTransition
	}

	s.afterTransition(ctx, orderID, from, to, domain.OrderPatch{
		OrderID:   orderID,
		UpdatedAt: now,
	})

	order.Status = to
	order.UpdatedAt = now
	return order, nil
}

// afterTransition emits the status-changed event and publishes the feed
// patch for a committed transition.
func (s *OrderService) afterTransition(ctx context.Context, orderID string, from, to domain.OrderStatus, patch domain.OrderPatch) {
	metrics.Transitions.WithLabelValues(string(to)).Inc()

	if s.events != nil {
		e := domain.OrderStatusChanged{OrderID: orderID, From: from, To: to}
		if err := s.events.OrderStatusChanged(ctx, e); err != nil {
			s.log.Warn("status changed event publish failed", "order_id", orderID, "error", err)
		}
	}

	patch.Status = &to
	s.publishPatch(ctx, patch)
}

// publishPatch pushes a partial order change onto the change feed. Failures
// degrade live screens to manual refresh; they never fail the transition.
func (s *OrderService) publishPatch(ctx context.Context, patch domain.OrderPatch) {
	if s.changes == nil {
		return
	}

	payload, err := json.Marshal(patch)
	if err != nil {
		s.log.Error("order patch marshal failed", "order_id", patch.OrderID, "error", err)
		return
	}
	if err := s.changes.Publish(ctx, feed.OrderTopic(patch.OrderID), payload); err != nil {
		s.log.Warn("order patch publish failed", "order_id", patch.OrderID, "error", err)
	}
}

func (s *OrderService) releaseLock(ctx context.Context, riderID string) {
	if s.lockStore == nil {
		return
	}
	_ = s.lockStore.ReleaseRiderLock(ctx, riderID)
}

func validateCreateRequest(req CreateOrderRequest) error {
	if req.CustomerID == "" {
		return ErrInvalidCustomerID
	}

	switch req.OrderType {
	case domain.OrderTypeOutletPickup, domain.OrderTypeOutletDelivery, domain.OrderTypeOnTheWheels:
	default:
		return ErrInvalidOrderType
	}

	if req.OrderType.RequiresDestination() {
		if req.Destination == nil {
			return ErrMissingDestination
		}
		if !isValidLatitude(req.Destination.Lat) || !isValidLongitude(req.Destination.Lng) {
			return ErrInvalidLocation
		}
	}

	return nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
