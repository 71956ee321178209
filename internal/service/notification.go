package service

import (
	"log/slog"
	"time"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationOrderOffered      NotificationType = "ORDER_OFFERED"
	NotificationOrderAccepted     NotificationType = "ORDER_ACCEPTED"
	NotificationOrderRejected     NotificationType = "ORDER_REJECTED"
	NotificationOrderCancelled    NotificationType = "ORDER_CANCELLED"
	NotificationDeliveryCompleted NotificationType = "DELIVERY_COMPLETED"
)

// Notification represents a notification to be handed to a delivery channel.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// NotificationService hands notifications to whatever delivery channels are
// wired in production (push, SMS, in-app). Here it records the intent in the
// log; the alert/sound mechanics belong to an external collaborator.
type NotificationService struct {
	log *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(log *slog.Logger) *NotificationService {
	return &NotificationService{log: log}
}

// NotifyOrderOffered tells a rider a new order is addressed to them.
func (s *NotificationService) NotifyOrderOffered(riderID, orderID string) {
	s.send(Notification{
		Type:        NotificationOrderOffered,
		RecipientID: riderID,
		Title:       "New Order",
		Message:     "A new order is waiting for your response",
		Data:        map[string]interface{}{"order_id": orderID},
		CreatedAt:   time.Now(),
	})
}

// NotifyOrderAccepted tells the customer their order was accepted.
func (s *NotificationService) NotifyOrderAccepted(customerID, orderID string) {
	s.send(Notification{
		Type:        NotificationOrderAccepted,
		RecipientID: customerID,
		Title:       "Order Accepted",
		Message:     "A rider accepted your order",
		Data:        map[string]interface{}{"order_id": orderID},
		CreatedAt:   time.Now(),
	})
}

// NotifyOrderCancelled tells the assigned rider the order was cancelled.
func (s *NotificationService) NotifyOrderCancelled(riderID, orderID string) {
	s.send(Notification{
		Type:        NotificationOrderCancelled,
		RecipientID: riderID,
		Title:       "Order Cancelled",
		Message:     "The order was cancelled",
		Data:        map[string]interface{}{"order_id": orderID},
		CreatedAt:   time.Now(),
	})
}

// NotifyOrderRejected tells the customer their order was rejected.
func (s *NotificationService) NotifyOrderRejected(customerID, orderID, reason string) {
	s.send(Notification{
		Type:        NotificationOrderRejected,
		RecipientID: customerID,
		Title:       "Order Rejected",
		Message:     "Your order was rejected: " + reason,
		Data:        map[string]interface{}{"order_id": orderID, "reason": reason},
		CreatedAt:   time.Now(),
	})
}

// NotifyDelivered raises the side-channel signal for a delivered order.
// LiveSync calls this when the order feed reports DELIVERED; it is what the
// customer app turns into the arrival alert and sound.
func (s *NotificationService) NotifyDelivered(orderID string) {
	s.send(Notification{
		Type:      NotificationDeliveryCompleted,
		Title:     "Order Delivered",
		Message:   "Your order has arrived",
		Data:      map[string]interface{}{"order_id": orderID},
		CreatedAt: time.Now(),
	})
}

func (s *NotificationService) send(n Notification) {
	s.log.Info("notification queued",
		"type", string(n.Type),
		"recipient_id", n.RecipientID,
		"message", n.Message,
	)
}
