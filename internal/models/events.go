package models

import "time"

// Event types published to the order-events topic
const (
	EventTypeOrderCreated       = "ORDER_CREATED"
	EventTypeOrderStatusChanged = "ORDER_STATUS_CHANGED"
	EventTypeOrderItemsChanged  = "ORDER_ITEMS_CHANGED"
	EventTypeWaiterCalled       = "WAITER_CALLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderCreatedEvent published when an order is placed
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64       `json:"order_id"`
	TableID     int64       `json:"table_id"`
	TotalAmount float64     `json:"total_amount"`
	Items       []OrderItem `json:"items"`
}

// OrderStatusChangedEvent published on every status update, including no-op
// updates (Changed is false when the status did not actually move).
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID        int64   `json:"order_id"`
	TableID        int64   `json:"table_id"`
	PreviousStatus string  `json:"previous_status"`
	Status         string  `json:"status"`
	Changed        bool    `json:"changed"`
	TotalAmount    float64 `json:"total_amount"`
}

// OrderItemsChangedEvent published when an order's line items are mutated
type OrderItemsChangedEvent struct {
	BaseEvent
	OrderID     int64       `json:"order_id"`
	TableID     int64       `json:"table_id"`
	TotalAmount float64     `json:"total_amount"`
	Items       []OrderItem `json:"items"`
}

// WaiterCalledEvent published when a customer requests a waiter
type WaiterCalledEvent struct {
	BaseEvent
	TableID     int64 `json:"table_id"`
	TableNumber int   `json:"table_number"`
}
