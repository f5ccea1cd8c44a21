package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mrcolv86/bierserv/internal/models"
	"github.com/mrcolv86/bierserv/internal/store"
	"github.com/mrcolv86/bierserv/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory persistence gateway for service tests
type fakeStore struct {
	tables        map[int64]*models.Table
	orders        map[int64]*models.Order
	items         map[int64]*models.OrderItem
	products      map[int64]*models.Product
	variations    map[int64]*models.ProductVariation
	notifications []models.Notification
	nextID        int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables:     make(map[int64]*models.Table),
		orders:     make(map[int64]*models.Order),
		items:      make(map[int64]*models.OrderItem),
		products:   make(map[int64]*models.Product),
		variations: make(map[int64]*models.ProductVariation),
		nextID:     1,
	}
}

func (f *fakeStore) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *fakeStore) GetTableByID(_ context.Context, id int64) (*models.Table, error) {
	table, ok := f.tables[id]
	if !ok {
		return nil, fmt.Errorf("table %d: %w", id, store.ErrNotFound)
	}
	copy := *table
	return &copy, nil
}

func (f *fakeStore) SetTableOccupied(_ context.Context, tableID int64, since time.Time) error {
	f.tables[tableID].Status = models.TableStatusOccupied
	f.tables[tableID].OccupiedSince = &since
	return nil
}

func (f *fakeStore) SetTableFree(_ context.Context, tableID int64) error {
	f.tables[tableID].Status = models.TableStatusFree
	f.tables[tableID].OccupiedSince = nil
	return nil
}

func (f *fakeStore) CountActiveOrdersForTable(_ context.Context, tableID int64) (int, error) {
	count := 0
	for _, order := range f.orders {
		if order.TableID == tableID && !models.IsTerminalStatus(order.Status) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CreateOrderWithItems(_ context.Context, order *models.Order, items []models.OrderItem) error {
	order.ID = f.id()
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	stored := *order
	f.orders[order.ID] = &stored

	var total float64
	for i := range items {
		items[i].ID = f.id()
		items[i].OrderID = order.ID
		storedItem := items[i]
		f.items[items[i].ID] = &storedItem
		total += items[i].UnitPrice * float64(items[i].Quantity)
	}

	order.TotalAmount = total
	f.orders[order.ID].TotalAmount = total
	return nil
}

func (f *fakeStore) GetOrderByID(_ context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, store.ErrNotFound)
	}
	copy := *order
	return &copy, nil
}

func (f *fakeStore) GetOrders(_ context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	for _, order := range f.orders {
		orders = append(orders, *order)
	}
	if len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID int64, status string) error {
	f.orders[orderID].Status = status
	return nil
}

func (f *fakeStore) CreateOrderItem(_ context.Context, item *models.OrderItem) error {
	item.ID = f.id()
	stored := *item
	f.items[item.ID] = &stored
	return nil
}

func (f *fakeStore) GetOrderItemByID(_ context.Context, id int64) (*models.OrderItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, fmt.Errorf("order item %d: %w", id, store.ErrNotFound)
	}
	copy := *item
	return &copy, nil
}

func (f *fakeStore) GetOrderItemsByOrderID(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	for _, item := range f.items {
		if item.OrderID == orderID {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeStore) UpdateOrderItem(_ context.Context, item *models.OrderItem) error {
	stored := f.items[item.ID]
	stored.Quantity = item.Quantity
	stored.Notes = item.Notes
	return nil
}

func (f *fakeStore) DeleteOrderItem(_ context.Context, id int64) error {
	delete(f.items, id)
	return nil
}

func (f *fakeStore) RecomputeOrderTotal(_ context.Context, orderID int64) (float64, error) {
	var total float64
	for _, item := range f.items {
		if item.OrderID == orderID {
			total += item.UnitPrice * float64(item.Quantity)
		}
	}
	f.orders[orderID].TotalAmount = total
	return total, nil
}

func (f *fakeStore) GetProductByID(_ context.Context, id int64) (*models.Product, error) {
	product, ok := f.products[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	copy := *product
	return &copy, nil
}

func (f *fakeStore) GetVariationByID(_ context.Context, id int64) (*models.ProductVariation, error) {
	variation, ok := f.variations[id]
	if !ok {
		return nil, fmt.Errorf("variation %d: %w", id, store.ErrNotFound)
	}
	copy := *variation
	return &copy, nil
}

func (f *fakeStore) CreateNotification(_ context.Context, n *models.Notification) error {
	n.ID = f.id()
	n.CreatedAt = time.Now()
	f.notifications = append(f.notifications, *n)
	return nil
}

type broadcastCall struct {
	target  ws.Target
	msgType string
	data    interface{}
}

type fakeBroadcaster struct {
	calls []broadcastCall
}

func (f *fakeBroadcaster) Broadcast(target ws.Target, msgType string, data interface{}) (int, int) {
	f.calls = append(f.calls, broadcastCall{target: target, msgType: msgType, data: data})
	return 1, 1
}

func (f *fakeBroadcaster) byType(msgType string) []broadcastCall {
	var matched []broadcastCall
	for _, call := range f.calls {
		if call.msgType == msgType {
			matched = append(matched, call)
		}
	}
	return matched
}

type fakePusher struct {
	pushes []string
	err    error
}

func (f *fakePusher) PushToRole(_ context.Context, role, title, body string) error {
	f.pushes = append(f.pushes, role)
	return f.err
}

type fakePublisher struct {
	eventTypes []string
}

func (f *fakePublisher) PublishOrderCreated(_ context.Context, e *models.OrderCreatedEvent) error {
	f.eventTypes = append(f.eventTypes, e.EventType)
	return nil
}

func (f *fakePublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	f.eventTypes = append(f.eventTypes, e.EventType)
	return nil
}

func (f *fakePublisher) PublishOrderItemsChanged(_ context.Context, e *models.OrderItemsChangedEvent) error {
	f.eventTypes = append(f.eventTypes, e.EventType)
	return nil
}

func (f *fakePublisher) PublishWaiterCalled(_ context.Context, e *models.WaiterCalledEvent) error {
	f.eventTypes = append(f.eventTypes, e.EventType)
	return nil
}

func newTestService() (*OrderService, *fakeStore, *fakeBroadcaster, *fakePusher, *fakePublisher) {
	st := newFakeStore()
	router := &fakeBroadcaster{}
	pusher := &fakePusher{}
	publisher := &fakePublisher{}
	return NewOrderService(st, router, pusher, publisher), st, router, pusher, publisher
}

func seedTable(st *fakeStore, id int64, number int) {
	st.tables[id] = &models.Table{ID: id, Number: number, Status: models.TableStatusFree}
}

func seedProduct(st *fakeStore, id int64, price float64) {
	st.products[id] = &models.Product{ID: id, Name: fmt.Sprintf("product-%d", id), Price: price, Available: true}
}

func TestCreateOrderComputesTotalAndOccupiesTable(t *testing.T) {
	svc, st, router, _, publisher := newTestService()
	seedTable(st, 7, 7)
	seedProduct(st, 1, 10.0)

	payload, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 7,
		Items:   []OrderItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, 20.0, payload.Order.TotalAmount)
	assert.Equal(t, models.OrderStatusNew, payload.Order.Status)
	assert.Equal(t, models.TableStatusOccupied, st.tables[7].Status)
	assert.NotNil(t, st.tables[7].OccupiedSince)

	tableUpdates := router.byType(ws.MsgTableUpdated)
	require.Len(t, tableUpdates, 1)
	assert.Equal(t, ws.TargetAll(), tableUpdates[0].target)

	newOrders := router.byType(ws.MsgNewOrder)
	require.Len(t, newOrders, 1)
	assert.Equal(t, ws.TargetAll(), newOrders[0].target)

	require.Len(t, st.notifications, 1)
	assert.Equal(t, models.NotificationTypeOrder, st.notifications[0].Type)

	assert.Contains(t, publisher.eventTypes, models.EventTypeOrderCreated)
}

func TestCreateOrderOnOccupiedTableSkipsFlip(t *testing.T) {
	svc, st, router, _, _ := newTestService()
	seedTable(st, 7, 7)
	seedProduct(st, 1, 10.0)
	now := time.Now()
	st.tables[7].Status = models.TableStatusOccupied
	st.tables[7].OccupiedSince = &now

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 7,
		Items:   []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.Empty(t, router.byType(ws.MsgTableUpdated))
}

func TestCreateOrderUnknownTable(t *testing.T) {
	svc, _, router, _, _ := newTestService()

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 99,
		Items:   []OrderItemRequest{{ProductID: 1, Quantity: 1}},
	})

	assert.True(t, errors.Is(err, store.ErrNotFound))
	// a failed mutation never reaches the broadcast router
	assert.Empty(t, router.calls)
}

func TestCreateOrderWithoutItems(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 7, 7)

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{TableID: 7})
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateOrderSnapshotsVariationPrice(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	variationID := int64(50)
	st.variations[variationID] = &models.ProductVariation{ID: variationID, ProductID: 1, Name: "500ml", Price: 14.5}

	payload, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 1,
		Items:   []OrderItemRequest{{ProductID: 1, VariationID: &variationID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 29.0, payload.Order.TotalAmount)
}

func TestCreateOrderRejectsForeignVariation(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	seedProduct(st, 2, 8.0)
	variationID := int64(50)
	st.variations[variationID] = &models.ProductVariation{ID: variationID, ProductID: 2, Name: "300ml", Price: 6.0}

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 1,
		Items:   []OrderItemRequest{{ProductID: 1, VariationID: &variationID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, ErrVariationMismatch)
}

func placeOrder(t *testing.T, svc *OrderService, st *fakeStore, tableID int64) *models.Order {
	t.Helper()
	payload, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: tableID,
		Items:   []OrderItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	return &payload.Order
}

func TestStatusTransitionTable(t *testing.T) {
	cases := []struct {
		from    string
		to      string
		allowed bool
	}{
		{models.OrderStatusNew, models.OrderStatusPreparing, true},
		{models.OrderStatusNew, models.OrderStatusCancelled, true},
		{models.OrderStatusPreparing, models.OrderStatusDelivered, true},
		{models.OrderStatusPreparing, models.OrderStatusCancelled, true},
		{models.OrderStatusDelivered, models.OrderStatusCompleted, true},
		{models.OrderStatusNew, models.OrderStatusDelivered, false},
		{models.OrderStatusNew, models.OrderStatusCompleted, false},
		{models.OrderStatusDelivered, models.OrderStatusCancelled, false},
		{models.OrderStatusCompleted, models.OrderStatusNew, false},
		{models.OrderStatusCompleted, models.OrderStatusCancelled, false},
		{models.OrderStatusCancelled, models.OrderStatusPreparing, false},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", tc.from, tc.to), func(t *testing.T) {
			svc, st, _, _, _ := newTestService()
			seedTable(st, 1, 1)
			seedProduct(st, 1, 10.0)
			order := placeOrder(t, svc, st, 1)
			st.orders[order.ID].Status = tc.from

			_, err := svc.UpdateOrderStatus(context.Background(), order.ID, tc.to)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestUpdateStatusUnknownStatus(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 1)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, "exploded")
	assert.ErrorIs(t, err, ErrUnknownStatus)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	svc, _, _, _, _ := newTestService()

	_, err := svc.UpdateOrderStatus(context.Background(), 404, models.OrderStatusPreparing)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestNoopStatusUpdateStillBroadcasts(t *testing.T) {
	svc, st, router, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 1)
	router.calls = nil

	updated, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusNew)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusNew, updated.Status)

	updates := router.byType(ws.MsgOrderUpdated)
	require.Len(t, updates, 1)
	payload := updates[0].data.(StatusUpdatePayload)
	assert.Equal(t, models.OrderStatusNew, payload.PreviousStatus)
	assert.False(t, payload.Changed)
}

func TestDeliveredTriggersCustomerPushAndThreeRoleBroadcasts(t *testing.T) {
	svc, st, router, _, _ := newTestService()
	seedTable(st, 7, 7)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 7)
	st.orders[order.ID].Status = models.OrderStatusPreparing
	router.calls = nil

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)

	statusPushes := router.byType(ws.MsgOrderStatusUpdate)
	require.Len(t, statusPushes, 1)
	assert.Equal(t, ws.TargetCustomersAtTable(7), statusPushes[0].target)

	deliveryReady := router.byType(ws.MsgDeliveryReady)
	require.Len(t, deliveryReady, 3)
	targets := []ws.Target{deliveryReady[0].target, deliveryReady[1].target, deliveryReady[2].target}
	assert.Contains(t, targets, ws.TargetRole(models.RoleWaiter))
	assert.Contains(t, targets, ws.TargetRole(models.RoleAdmin))
	assert.Contains(t, targets, ws.TargetRole(models.RoleManager))
}

func TestDeliveredTwiceDoesNotRenotify(t *testing.T) {
	svc, st, router, _, _ := newTestService()
	seedTable(st, 7, 7)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 7)
	st.orders[order.ID].Status = models.OrderStatusDelivered
	router.calls = nil

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)

	assert.Empty(t, router.byType(ws.MsgDeliveryReady))
	assert.Len(t, router.byType(ws.MsgOrderUpdated), 1)
}

func TestCompletingLastOrderFreesTable(t *testing.T) {
	svc, st, router, _, _ := newTestService()
	seedTable(st, 7, 7)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 7)
	st.orders[order.ID].Status = models.OrderStatusDelivered
	router.calls = nil

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, models.TableStatusFree, st.tables[7].Status)
	assert.Nil(t, st.tables[7].OccupiedSince)

	tableUpdates := router.byType(ws.MsgTableUpdated)
	require.Len(t, tableUpdates, 1)
	assert.Equal(t, ws.TargetAll(), tableUpdates[0].target)
}

func TestCompletingWithOtherActiveOrdersKeepsTableOccupied(t *testing.T) {
	svc, st, router, _, _ := newTestService()
	seedTable(st, 7, 7)
	seedProduct(st, 1, 10.0)
	first := placeOrder(t, svc, st, 7)
	placeOrder(t, svc, st, 7)
	st.orders[first.ID].Status = models.OrderStatusDelivered
	router.calls = nil

	_, err := svc.UpdateOrderStatus(context.Background(), first.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	assert.Equal(t, models.TableStatusOccupied, st.tables[7].Status)
	assert.Empty(t, router.byType(ws.MsgTableUpdated))
}

func TestCancellingLastOrderFreesTable(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 3, 3)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 3)

	_, err := svc.UpdateOrderStatus(context.Background(), order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusCancelled, st.orders[order.ID].Status)
	assert.Equal(t, models.TableStatusFree, st.tables[3].Status)
	assert.Nil(t, st.tables[3].OccupiedSince)
}

func TestAddOrderItemRecomputesTotal(t *testing.T) {
	svc, st, router, _, publisher := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	seedProduct(st, 2, 4.5)
	order := placeOrder(t, svc, st, 1)
	router.calls = nil

	payload, err := svc.AddOrderItem(context.Background(), order.ID, OrderItemRequest{ProductID: 2, Quantity: 3})
	require.NoError(t, err)

	assert.Equal(t, 20.0+13.5, payload.Order.TotalAmount)
	assert.Len(t, payload.Items, 2)

	updates := router.byType(ws.MsgOrderUpdated)
	require.Len(t, updates, 1)
	assert.Equal(t, ws.TargetAll(), updates[0].target)
	assert.Contains(t, publisher.eventTypes, models.EventTypeOrderItemsChanged)
}

func TestUpdateOrderItemRecomputesTotal(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	payload, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 1,
		Items:   []OrderItemRequest{{ProductID: 1, Quantity: 2}},
	})
	require.NoError(t, err)
	itemID := payload.Items[0].ID

	updated, err := svc.UpdateOrderItem(context.Background(), itemID, 5, "no foam")
	require.NoError(t, err)
	assert.Equal(t, 50.0, updated.Order.TotalAmount)

	_, err = svc.UpdateOrderItem(context.Background(), itemID, 0, "")
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestDeleteOrderItemRecomputesTotal(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	seedProduct(st, 2, 4.0)
	payload, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		TableID: 1,
		Items: []OrderItemRequest{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 24.0, payload.Order.TotalAmount)

	var itemToDelete int64
	for _, item := range payload.Items {
		if item.ProductID == 2 {
			itemToDelete = item.ID
		}
	}

	after, err := svc.DeleteOrderItem(context.Background(), itemToDelete)
	require.NoError(t, err)
	assert.Equal(t, 20.0, after.Order.TotalAmount)
	assert.Len(t, after.Items, 1)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, st, _, _, _ := newTestService()
	seedTable(st, 1, 1)
	seedProduct(st, 1, 10.0)
	order := placeOrder(t, svc, st, 1)

	first, err := st.RecomputeOrderTotal(context.Background(), order.ID)
	require.NoError(t, err)
	second, err := st.RecomputeOrderTotal(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	_ = svc
}

func TestHandleWaiterCall(t *testing.T) {
	svc, st, router, pusher, publisher := newTestService()
	seedTable(st, 4, 12)

	err := svc.HandleWaiterCall(context.Background(), 4)
	require.NoError(t, err)

	require.Len(t, st.notifications, 1)
	assert.Equal(t, models.NotificationTypeWaiterRequest, st.notifications[0].Type)

	called := router.byType(ws.MsgWaiterCalled)
	require.Len(t, called, 1)
	assert.Equal(t, ws.TargetAll(), called[0].target)

	assert.Equal(t, []string{models.RoleWaiter, models.RoleManager}, pusher.pushes)
	assert.Contains(t, publisher.eventTypes, models.EventTypeWaiterCalled)
}

func TestHandleWaiterCallSwallowsPushFailures(t *testing.T) {
	svc, st, _, pusher, _ := newTestService()
	seedTable(st, 4, 12)
	pusher.err = errors.New("relay unreachable")

	err := svc.HandleWaiterCall(context.Background(), 4)
	assert.NoError(t, err)
}

func TestHandleWaiterCallUnknownTable(t *testing.T) {
	svc, _, router, _, _ := newTestService()

	err := svc.HandleWaiterCall(context.Background(), 99)
	assert.True(t, errors.Is(err, store.ErrNotFound))
	assert.Empty(t, router.calls)
}
