package broker

import (
	"context"
	"fmt"

	"github.com/mrcolv86/bierserv/internal/models"
)

// EventPublisher handles publishing order lifecycle events to the
// order-events topic feeding the reporting pipeline.
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderCreated publishes an OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderStatusChanged publishes an OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderItemsChanged publishes an OrderItemsChanged event
func (ep *EventPublisher) PublishOrderItemsChanged(ctx context.Context, event *models.OrderItemsChangedEvent) error {
	key := fmt.Sprintf("order-%d", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishWaiterCalled publishes a WaiterCalled event
func (ep *EventPublisher) PublishWaiterCalled(ctx context.Context, event *models.WaiterCalledEvent) error {
	key := fmt.Sprintf("table-%d", event.TableID)
	return ep.producer.PublishEvent(ctx, key, event)
}
