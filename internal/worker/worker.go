package worker

import (
	"context"

	"pos-service/internal/broker"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker consumes sale events and raises low stock alerts
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(
	consumer *broker.Consumer,
	alerts *service.StockAlertService,
) *StockAlertWorker {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnSaleCreated(alerts.HandleSaleCreated)

	return &StockAlertWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		logger:       util.GetLogger(),
	}
}

// Start blocks consuming until ctx is cancelled
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}
