package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mrcolv86/bierserv/internal/broker"
	"github.com/mrcolv86/bierserv/internal/models"
	"github.com/mrcolv86/bierserv/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ReportStore is the slice of the persistence gateway the reporting worker
// writes through.
type ReportStore interface {
	AddDailySales(ctx context.Context, day time.Time, amount float64) error
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// ReportingWorker consumes the order-events topic and maintains the
// daily_sales aggregate behind the dashboard's reports screen. An order
// counts toward sales when it reaches completed.
type ReportingWorker struct {
	consumer *broker.Consumer
	store    ReportStore
	logger   *zap.Logger
}

// NewReportingWorker creates a reporting worker
func NewReportingWorker(consumer *broker.Consumer, store ReportStore) *ReportingWorker {
	return &ReportingWorker{
		consumer: consumer,
		store:    store,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *ReportingWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting reporting worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *ReportingWorker) Stop() error {
	w.logger.Info("Stopping reporting worker")
	return w.consumer.Close()
}

func (w *ReportingWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		w.logger.Warn("Skipping unparseable event", zap.Error(err))
		return nil
	}

	if base.EventType != models.EventTypeOrderStatusChanged {
		return nil
	}

	var event models.OrderStatusChangedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Warn("Skipping malformed status event", zap.Error(err))
		return nil
	}

	if !event.Changed || event.Status != models.OrderStatusCompleted {
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		return nil
	}

	day := event.Timestamp.UTC().Truncate(24 * time.Hour)
	if err := w.store.AddDailySales(ctx, day, event.TotalAmount); err != nil {
		return err
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		w.logger.Error("Failed to mark event processed",
			zap.String("event_id", event.EventID), zap.Error(err))
	}

	w.logger.Info("Daily sales updated",
		zap.Int64("order_id", event.OrderID),
		zap.Float64("amount", event.TotalAmount))
	return nil
}
