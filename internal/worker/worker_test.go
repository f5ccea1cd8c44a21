package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mrcolv86/bierserv/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReportStore struct {
	sales     map[time.Time]float64
	counts    map[time.Time]int
	processed map[string]bool
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{
		sales:     make(map[time.Time]float64),
		counts:    make(map[time.Time]int),
		processed: make(map[string]bool),
	}
}

func (f *fakeReportStore) AddDailySales(_ context.Context, day time.Time, amount float64) error {
	f.sales[day] += amount
	f.counts[day]++
	return nil
}

func (f *fakeReportStore) IsEventProcessed(_ context.Context, eventID string) (bool, error) {
	return f.processed[eventID], nil
}

func (f *fakeReportStore) MarkEventProcessed(_ context.Context, eventID, _ string) error {
	f.processed[eventID] = true
	return nil
}

func statusEvent(t *testing.T, eventID, status string, changed bool, amount float64, ts time.Time) kafka.Message {
	t.Helper()
	event := models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   eventID,
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: ts,
		},
		OrderID:     1,
		TableID:     7,
		Status:      status,
		Changed:     changed,
		TotalAmount: amount,
	}
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: raw}
}

func TestCompletedOrderCountsTowardDailySales(t *testing.T) {
	st := newFakeReportStore()
	w := &ReportingWorker{store: st, logger: zap.NewNop()}

	ts := time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)
	err := w.handleMessage(context.Background(), statusEvent(t, "e1", models.OrderStatusCompleted, true, 42.5, ts))
	require.NoError(t, err)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 42.5, st.sales[day])
	assert.Equal(t, 1, st.counts[day])
	assert.True(t, st.processed["e1"])
}

func TestDuplicateEventIsSkipped(t *testing.T) {
	st := newFakeReportStore()
	w := &ReportingWorker{store: st, logger: zap.NewNop()}

	ts := time.Date(2025, 6, 1, 19, 30, 0, 0, time.UTC)
	msg := statusEvent(t, "e1", models.OrderStatusCompleted, true, 42.5, ts)

	require.NoError(t, w.handleMessage(context.Background(), msg))
	require.NoError(t, w.handleMessage(context.Background(), msg))

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 42.5, st.sales[day])
	assert.Equal(t, 1, st.counts[day])
}

func TestNonCompletedEventsAreIgnored(t *testing.T) {
	st := newFakeReportStore()
	w := &ReportingWorker{store: st, logger: zap.NewNop()}

	ts := time.Now().UTC()
	require.NoError(t, w.handleMessage(context.Background(), statusEvent(t, "e1", models.OrderStatusPreparing, true, 10, ts)))
	require.NoError(t, w.handleMessage(context.Background(), statusEvent(t, "e2", models.OrderStatusCompleted, false, 10, ts)))

	assert.Empty(t, st.sales)
}

func TestMalformedEventsAreSkippedWithoutError(t *testing.T) {
	st := newFakeReportStore()
	w := &ReportingWorker{store: st, logger: zap.NewNop()}

	err := w.handleMessage(context.Background(), kafka.Message{Value: []byte("not json")})
	assert.NoError(t, err)
	assert.Empty(t, st.sales)
}
