package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is a mock implementation of OrderRepository. The
// guarded mutations mirror the conditional-UPDATE semantics of the real
// repository: a failed guard returns (false, nil) and leaves the row alone.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order

	// Counters for verification
	CreateCallCount int32
	AcceptCallCount int32

	// Error injection
	CreateError error
	AcceptError error
	UpdateError error
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*domain.Order),
	}
}

// AddOrder adds an order to the mock repository.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) GetAll(ctx context.Context) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		copy := *o
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockOrderRepository) Accept(ctx context.Context, id, riderID string, at time.Time) (bool, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return false, m.AcceptError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}
	if order.RiderID != "" && order.RiderID != riderID {
		return false, nil
	}
	order.Status = domain.OrderStatusAccepted
	order.RiderID = riderID
	order.UpdatedAt = at
	return true, nil
}

func (m *MockOrderRepository) Reject(ctx context.Context, id, riderID, reason string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}
	if order.RiderID != "" && order.RiderID != riderID {
		return false, nil
	}
	order.Status = domain.OrderStatusRejected
	order.RiderID = riderID
	order.RejectionReason = reason
	order.UpdatedAt = at
	return true, nil
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, at time.Time) (bool, error) {
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status != from {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = at
	return true, nil
}

func (m *MockOrderRepository) Cancel(ctx context.Context, id, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	if order.Status.Terminal() {
		return false, nil
	}
	order.Status = domain.OrderStatusCancelled
	order.CancelledBy = actor
	order.UpdatedAt = at
	return true, nil
}

// GetOrder returns the order by ID (for test assertions).
func (m *MockOrderRepository) GetOrder(id string) *domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.orders[id]
}

// CountOrders returns the number of orders.
func (m *MockOrderRepository) CountOrders() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.orders)
}

// ──────────────────────────────────────────────
// MOCK RIDER REPOSITORY
// ──────────────────────────────────────────────

// MockRiderRepository is a mock implementation of RiderRepository.
type MockRiderRepository struct {
	mu     sync.RWMutex
	riders map[string]*domain.Rider

	// Counters for verification
	CreateCallCount   int32
	SetFlagsCallCount int32

	// Error injection
	CreateError        error
	ListAvailableError error
}

// NewMockRiderRepository creates a new mock rider repository.
func NewMockRiderRepository() *MockRiderRepository {
	return &MockRiderRepository{
		riders: make(map[string]*domain.Rider),
	}
}

// AddRider adds a rider to the mock repository.
func (m *MockRiderRepository) AddRider(rider *domain.Rider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
}

func (m *MockRiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.riders[rider.ID] = rider
	return nil
}

func (m *MockRiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rider, ok := m.riders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *rider
	return &copy, nil
}

func (m *MockRiderRepository) GetByPhone(ctx context.Context, phone string) (*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.riders {
		if r.Phone == phone {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockRiderRepository) GetAll(ctx context.Context) ([]*domain.Rider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rider, 0, len(m.riders))
	for _, r := range m.riders {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockRiderRepository) ListAvailable(ctx context.Context) ([]*domain.Rider, error) {
	if m.ListAvailableError != nil {
		return nil, m.ListAvailableError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Rider, 0, len(m.riders))
	for _, r := range m.riders {
		if r.Online || r.ShiftActive {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockRiderRepository) SetFlags(ctx context.Context, id string, online, shiftActive bool) error {
	atomic.AddInt32(&m.SetFlagsCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	rider, ok := m.riders[id]
	if !ok {
		return repository.ErrNotFound
	}
	rider.Online = online
	rider.ShiftActive = shiftActive
	return nil
}

// GetRider returns rider for test assertions.
func (m *MockRiderRepository) GetRider(id string) *domain.Rider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.riders[id]
}

// ──────────────────────────────────────────────
// MOCK RIDER LOCATION REPOSITORY
// ──────────────────────────────────────────────

// MockRiderLocationRepository keeps the single current-location row per
// rider in memory. Like the real table, an upsert always overwrites.
type MockRiderLocationRepository struct {
	mu        sync.RWMutex
	locations map[string]domain.RiderLocation

	// Counters
	UpsertCallCount int32

	// Error injection
	UpsertError error
}

// NewMockRiderLocationRepository creates a new mock location repository.
func NewMockRiderLocationRepository() *MockRiderLocationRepository {
	return &MockRiderLocationRepository{
		locations: make(map[string]domain.RiderLocation),
	}
}

func (m *MockRiderLocationRepository) Upsert(ctx context.Context, riderID string, loc domain.RiderLocation) error {
	atomic.AddInt32(&m.UpsertCallCount, 1)
	if m.UpsertError != nil {
		return m.UpsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[riderID] = loc
	return nil
}

func (m *MockRiderLocationRepository) Get(ctx context.Context, riderID string) (*domain.RiderLocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.locations[riderID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := loc
	return &copy, nil
}

// RowCount returns the number of stored location rows.
func (m *MockRiderLocationRepository) RowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.locations)
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of the rider geo index.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.RiderGeoEntry

	// Counters
	UpdateLocationCallCount int32

	// Error injection
	UpdateLocationError   error
	FindNearbyRidersError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.RiderGeoEntry, 0),
	}
}

// AddRiderLocation adds a rider location to the mock store.
func (m *MockLocationStore) AddRiderLocation(loc redis.RiderGeoEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = append(m.locations, loc)
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, riderID string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.RiderID == riderID {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.RiderGeoEntry{
		RiderID: riderID,
		Lat:     lat,
		Lng:     lng,
	})
	return nil
}

func (m *MockLocationStore) FindNearbyRiders(ctx context.Context, lat, lng, radiusKm float64) ([]redis.RiderGeoEntry, error) {
	if m.FindNearbyRidersError != nil {
		return nil, m.FindNearbyRidersError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations (mock doesn't do real geo filtering).
	result := make([]redis.RiderGeoEntry, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, riderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.RiderID == riderID {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a rider location exists in the index.
func (m *MockLocationStore) HasLocation(riderID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.RiderID == riderID {
			return true
		}
	}
	return false
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[string]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[string]time.Time),
	}
}

func (m *MockLockStore) AcquireRiderLock(ctx context.Context, riderID string, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	key := "lock:rider:" + riderID
	if expiry, exists := m.locks[key]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRiderLock(ctx context.Context, riderID string) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, "lock:rider:"+riderID)
	return nil
}

// IsLocked checks if a rider is locked (for test assertions).
func (m *MockLockStore) IsLocked(riderID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks["lock:rider:"+riderID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockEventPublisher records lifecycle events instead of writing to Kafka.
type MockEventPublisher struct {
	mu sync.Mutex

	Created     []*domain.Order
	Transitions []domain.OrderStatusChanged
	Deliveries  []domain.DeliveryCompleted

	// Error injection
	PublishError error
}

// NewMockEventPublisher creates a new mock event publisher.
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) OrderCreated(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Created = append(m.Created, order)
	return nil
}

func (m *MockEventPublisher) OrderStatusChanged(ctx context.Context, ev domain.OrderStatusChanged) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Transitions = append(m.Transitions, ev)
	return nil
}

func (m *MockEventPublisher) DeliveryCompleted(ctx context.Context, ev domain.DeliveryCompleted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.Deliveries = append(m.Deliveries, ev)
	return nil
}

// TransitionCount returns the number of recorded status changes.
func (m *MockEventPublisher) TransitionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Transitions)
}

// DeliveryCount returns the number of recorded delivery events.
func (m *MockEventPublisher) DeliveryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Deliveries)
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockDBConstraint = errors.New("mock: unique constraint violation")
	ErrMockTimeout      = errors.New("mock: operation timeout")
)
