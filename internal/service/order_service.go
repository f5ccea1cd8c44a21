package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mrcolv86/bierserv/internal/models"
	"github.com/mrcolv86/bierserv/internal/util"
	"github.com/mrcolv86/bierserv/internal/ws"

	"go.uber.org/zap"
)

// Store describes the persistence gateway the lifecycle manager consumes.
// Satisfied by *store.Store; narrowed to an interface so the service is
// testable with a fake.
type Store interface {
	GetTableByID(ctx context.Context, id int64) (*models.Table, error)
	SetTableOccupied(ctx context.Context, tableID int64, since time.Time) error
	SetTableFree(ctx context.Context, tableID int64) error
	CountActiveOrdersForTable(ctx context.Context, tableID int64) (int, error)

	CreateOrderWithItems(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrders(ctx context.Context, limit int) ([]models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) error

	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
	GetOrderItemByID(ctx context.Context, id int64) (*models.OrderItem, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderItem(ctx context.Context, item *models.OrderItem) error
	DeleteOrderItem(ctx context.Context, id int64) error
	RecomputeOrderTotal(ctx context.Context, orderID int64) (float64, error)

	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetVariationByID(ctx context.Context, id int64) (*models.ProductVariation, error)

	CreateNotification(ctx context.Context, n *models.Notification) error
}

// Broadcaster fans events out to live connections. Satisfied by *ws.Router.
type Broadcaster interface {
	Broadcast(target ws.Target, msgType string, data interface{}) (attempted, delivered int)
}

// Pusher is the best-effort push notification gateway. Failures are always
// caught at the call site and logged, never propagated.
type Pusher interface {
	PushToRole(ctx context.Context, role, title, body string) error
}

// EventPublisher mirrors lifecycle events onto the reporting stream.
// Satisfied by *broker.EventPublisher.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderItemsChanged(ctx context.Context, event *models.OrderItemsChangedEvent) error
	PublishWaiterCalled(ctx context.Context, event *models.WaiterCalledEvent) error
}

// allowedTransitions is the full order state machine. Anything outside it
// is rejected; a same-status update is treated as a no-op resync, not a
// transition.
var allowedTransitions = map[string][]string{
	models.OrderStatusNew:       {models.OrderStatusPreparing, models.OrderStatusCancelled},
	models.OrderStatusPreparing: {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered: {models.OrderStatusCompleted},
	models.OrderStatusCompleted: {},
	models.OrderStatusCancelled: {},
}

func transitionAllowed(from, to string) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderService is the order lifecycle manager: it owns the status state
// machine, derives order totals from persisted items, and drives table
// occupancy and notifications through the broadcaster.
type OrderService struct {
	store     Store
	router    Broadcaster
	pusher    Pusher
	publisher EventPublisher
	logger    *zap.Logger

	// serializes status updates per order id
	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// NewOrderService creates a new order service
func NewOrderService(store Store, router Broadcaster, pusher Pusher, publisher EventPublisher) *OrderService {
	return &OrderService{
		store:     store,
		router:    router,
		pusher:    pusher,
		publisher: publisher,
		logger:    util.GetLogger(),
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (s *OrderService) orderLock(orderID int64) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[orderID]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[orderID] = mu
	}
	return mu
}

// CreateOrderRequest represents a request to place an order
type CreateOrderRequest struct {
	TableID int64              `json:"table_id" binding:"required"`
	Items   []OrderItemRequest `json:"items" binding:"required,min=1"`
}

// OrderItemRequest represents one line item in an order request. Prices
// are never accepted from the client; the unit price is snapshotted from
// the product or variation on the server.
type OrderItemRequest struct {
	ProductID   int64  `json:"product_id" binding:"required"`
	VariationID *int64 `json:"variation_id,omitempty"`
	Quantity    int    `json:"quantity" binding:"required,min=1"`
	Notes       string `json:"notes,omitempty"`
}

// OrderPayload is the order snapshot carried by broadcasts and responses
type OrderPayload struct {
	Order models.Order       `json:"order"`
	Items []models.OrderItem `json:"items"`
	Table *models.Table      `json:"table,omitempty"`
}

// CreateOrder validates the table, persists the order and its items in one
// transaction, derives the total from the persisted items, flips the table
// to occupied if needed, and notifies staff.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*OrderPayload, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CreateOrder")
	defer span.End()

	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	table, err := s.store.GetTableByID(ctx, req.TableID)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		item, err := s.resolveItem(ctx, itemReq)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	order := &models.Order{
		TableID: table.ID,
		Status:  models.OrderStatusNew,
	}

	if err := s.store.CreateOrderWithItems(ctx, order, items); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("table_id", table.ID),
		zap.Float64("total", order.TotalAmount))

	if table.Status != models.TableStatusOccupied {
		now := time.Now()
		if err := s.store.SetTableOccupied(ctx, table.ID, now); err != nil {
			s.logger.Error("Failed to mark table occupied",
				zap.Int64("table_id", table.ID), zap.Error(err))
		} else {
			table.Status = models.TableStatusOccupied
			table.OccupiedSince = &now
			s.router.Broadcast(ws.TargetAll(), ws.MsgTableUpdated, table)
		}
	}

	s.createNotification(ctx, nil,
		fmt.Sprintf("New order #%d at table %d", order.ID, table.Number),
		models.NotificationTypeOrder)

	payload := &OrderPayload{Order: *order, Items: items, Table: table}
	s.router.Broadcast(ws.TargetAll(), ws.MsgNewOrder, payload)

	s.publishEvent(ctx, func() error {
		return s.publisher.PublishOrderCreated(ctx, &models.OrderCreatedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderCreated),
			OrderID:     order.ID,
			TableID:     table.ID,
			TotalAmount: order.TotalAmount,
			Items:       items,
		})
	})

	return payload, nil
}

func (s *OrderService) resolveItem(ctx context.Context, req OrderItemRequest) (*models.OrderItem, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.store.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	unitPrice := product.Price
	if req.VariationID != nil {
		variation, err := s.store.GetVariationByID(ctx, *req.VariationID)
		if err != nil {
			return nil, err
		}
		if variation.ProductID != product.ID {
			return nil, ErrVariationMismatch
		}
		unitPrice = variation.Price
	}

	return &models.OrderItem{
		ProductID:   req.ProductID,
		VariationID: req.VariationID,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		Notes:       req.Notes,
	}, nil
}

// StatusUpdatePayload is carried by ORDER_UPDATED broadcasts. Changed is
// false for no-op updates, which are still emitted so UIs can resync.
type StatusUpdatePayload struct {
	Order          models.Order       `json:"order"`
	Items          []models.OrderItem `json:"items,omitempty"`
	PreviousStatus string             `json:"previous_status"`
	Changed        bool               `json:"changed"`
}

// UpdateOrderStatus validates and persists a status transition, then emits
// the side effects: an ORDER_UPDATED broadcast always; delivery
// notifications when the order becomes delivered; a table-free flip when
// the last active order for the table reaches a terminal status.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if _, ok := allowedTransitions[newStatus]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}

	mu := s.orderLock(orderID)
	mu.Lock()
	defer mu.Unlock()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	changed := previous != newStatus

	if changed && !transitionAllowed(previous, newStatus) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, newStatus)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = newStatus
	order.UpdatedAt = time.Now()

	if changed {
		util.OrderStatusTransitionsTotal.WithLabelValues(previous, newStatus).Inc()
	}

	s.router.Broadcast(ws.TargetAll(), ws.MsgOrderUpdated, StatusUpdatePayload{
		Order:          *order,
		PreviousStatus: previous,
		Changed:        changed,
	})

	if changed && newStatus == models.OrderStatusDelivered {
		s.notifyDelivered(ctx, order)
	}

	if changed && models.IsTerminalStatus(newStatus) {
		s.maybeFreeTable(ctx, order.TableID)
	}

	s.publishEvent(ctx, func() error {
		return s.publisher.PublishOrderStatusChanged(ctx, &models.OrderStatusChangedEvent{
			BaseEvent:      newBaseEvent(models.EventTypeOrderStatusChanged),
			OrderID:        order.ID,
			TableID:        order.TableID,
			PreviousStatus: previous,
			Status:         newStatus,
			Changed:        changed,
			TotalAmount:    order.TotalAmount,
		})
	})

	return order, nil
}

// notifyDelivered fires the delivery side effects: staff and customer
// notification records, a personalized push to authenticated customers at
// the table, and one DELIVERY_READY broadcast per staff role. Three
// discrete role broadcasts, not one staff target.
func (s *OrderService) notifyDelivered(ctx context.Context, order *models.Order) {
	s.createNotification(ctx, nil,
		fmt.Sprintf("Order #%d is ready for delivery", order.ID),
		models.NotificationTypeOrder)
	s.createNotification(ctx, nil,
		fmt.Sprintf("Your order #%d is on its way", order.ID),
		models.NotificationTypeOrder)

	s.router.Broadcast(ws.TargetCustomersAtTable(order.TableID), ws.MsgOrderStatusUpdate, map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"message":  fmt.Sprintf("Your order #%d is on its way", order.ID),
	})

	for _, role := range []string{models.RoleWaiter, models.RoleAdmin, models.RoleManager} {
		s.router.Broadcast(ws.TargetRole(role), ws.MsgDeliveryReady, map[string]interface{}{
			"order_id": order.ID,
			"table_id": order.TableID,
		})
	}
}

// maybeFreeTable flips the table back to free when no non-terminal orders
// remain for it.
func (s *OrderService) maybeFreeTable(ctx context.Context, tableID int64) {
	active, err := s.store.CountActiveOrdersForTable(ctx, tableID)
	if err != nil {
		s.logger.Error("Failed to count active orders",
			zap.Int64("table_id", tableID), zap.Error(err))
		return
	}
	if active > 0 {
		return
	}

	if err := s.store.SetTableFree(ctx, tableID); err != nil {
		s.logger.Error("Failed to free table",
			zap.Int64("table_id", tableID), zap.Error(err))
		return
	}

	table, err := s.store.GetTableByID(ctx, tableID)
	if err != nil {
		s.logger.Error("Failed to reload table",
			zap.Int64("table_id", tableID), zap.Error(err))
		return
	}
	s.router.Broadcast(ws.TargetAll(), ws.MsgTableUpdated, table)
}

// AddOrderItem appends a line item to an existing order, recomputes the
// total, and broadcasts the refreshed item list.
func (s *OrderService) AddOrderItem(ctx context.Context, orderID int64, req OrderItemRequest) (*OrderPayload, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.AddOrderItem")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	item, err := s.resolveItem(ctx, req)
	if err != nil {
		return nil, err
	}
	item.OrderID = order.ID

	if err := s.store.CreateOrderItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create order item: %w", err)
	}

	return s.afterItemsChanged(ctx, order)
}

// UpdateOrderItem changes quantity/notes on a line item and recomputes the
// parent order's total.
func (s *OrderService) UpdateOrderItem(ctx context.Context, itemID int64, quantity int, notes string) (*OrderPayload, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateOrderItem")
	defer span.End()

	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	item, err := s.store.GetOrderItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.Notes = notes
	if err := s.store.UpdateOrderItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update order item: %w", err)
	}

	return s.afterItemsChanged(ctx, order)
}

// DeleteOrderItem removes a line item and recomputes the parent order's
// total.
func (s *OrderService) DeleteOrderItem(ctx context.Context, itemID int64) (*OrderPayload, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.DeleteOrderItem")
	defer span.End()

	item, err := s.store.GetOrderItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}

	order, err := s.store.GetOrderByID(ctx, item.OrderID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteOrderItem(ctx, itemID); err != nil {
		return nil, fmt.Errorf("failed to delete order item: %w", err)
	}

	return s.afterItemsChanged(ctx, order)
}

func (s *OrderService) afterItemsChanged(ctx context.Context, order *models.Order) (*OrderPayload, error) {
	total, err := s.store.RecomputeOrderTotal(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to recompute total: %w", err)
	}
	order.TotalAmount = total

	items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	payload := &OrderPayload{Order: *order, Items: items}
	s.router.Broadcast(ws.TargetAll(), ws.MsgOrderUpdated, payload)

	s.publishEvent(ctx, func() error {
		return s.publisher.PublishOrderItemsChanged(ctx, &models.OrderItemsChangedEvent{
			BaseEvent:   newBaseEvent(models.EventTypeOrderItemsChanged),
			OrderID:     order.ID,
			TableID:     order.TableID,
			TotalAmount: total,
			Items:       items,
		})
	})

	return payload, nil
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderPayload, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	return &OrderPayload{Order: *order, Items: items}, nil
}

// ListOrders retrieves recent orders
func (s *OrderService) ListOrders(ctx context.Context, limit int) ([]models.Order, error) {
	return s.store.GetOrders(ctx, limit)
}

// HandleWaiterCall resolves the table, records a waiter_request
// notification, broadcasts it, and attempts best-effort pushes to the
// waiter and manager roles. Push failures are logged and swallowed; the
// WebSocket broadcast is the primary channel.
func (s *OrderService) HandleWaiterCall(ctx context.Context, tableID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.HandleWaiterCall")
	defer span.End()

	table, err := s.store.GetTableByID(ctx, tableID)
	if err != nil {
		return err
	}

	util.WaiterCallsTotal.Inc()

	message := fmt.Sprintf("Table %d is calling a waiter", table.Number)
	s.createNotification(ctx, nil, message, models.NotificationTypeWaiterRequest)

	s.router.Broadcast(ws.TargetAll(), ws.MsgWaiterCalled, map[string]interface{}{
		"table_id":     table.ID,
		"table_number": table.Number,
	})

	for _, role := range []string{models.RoleWaiter, models.RoleManager} {
		if err := s.pusher.PushToRole(ctx, role, "Waiter requested", message); err != nil {
			util.PushFailuresTotal.Inc()
			s.logger.Warn("Push notification failed",
				zap.String("role", role),
				zap.Int64("table_id", table.ID),
				zap.Error(err))
		}
	}

	s.publishEvent(ctx, func() error {
		return s.publisher.PublishWaiterCalled(ctx, &models.WaiterCalledEvent{
			BaseEvent:   newBaseEvent(models.EventTypeWaiterCalled),
			TableID:     table.ID,
			TableNumber: table.Number,
		})
	})

	return nil
}

// createNotification persists a write-once notification row and mirrors it
// to live connections. Persistence failures are logged; the record is
// non-critical to the triggering mutation.
func (s *OrderService) createNotification(ctx context.Context, recipientID *int64, message, notifType string) {
	n := &models.Notification{
		RecipientID: recipientID,
		Message:     message,
		Type:        notifType,
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		s.logger.Error("Failed to create notification", zap.Error(err))
		return
	}
	s.router.Broadcast(ws.TargetAll(), ws.MsgNewNotification, n)
}

// publishEvent mirrors an event onto the reporting stream; failures never
// fail the mutation that already succeeded.
func (s *OrderService) publishEvent(ctx context.Context, publish func() error) {
	if s.publisher == nil {
		return
	}
	if err := publish(); err != nil {
		s.logger.Warn("Failed to publish event", zap.Error(err))
	}
}
