package service

import (
	"context"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlertStore is what the stock alert handler reads and records
type AlertStore interface {
	GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// StockAlertPublisher publishes low stock alerts
type StockAlertPublisher interface {
	PublishStockLow(ctx context.Context, event *models.StockLowEvent) error
}

// StockAlertService reacts to committed sales by flagging products that
// dropped to their minimum stock level.
type StockAlertService struct {
	store     AlertStore
	publisher StockAlertPublisher
	logger    *zap.Logger
}

// NewStockAlertService creates a new stock alert service
func NewStockAlertService(store AlertStore, publisher StockAlertPublisher) *StockAlertService {
	return &StockAlertService{
		store:     store,
		publisher: publisher,
		logger:    util.GetLogger(),
	}
}

// HandleSaleCreated re-reads every product in the sale and publishes a
// STOCK_LOW event for each one at or below its alert level. Redelivered
// events are skipped.
func (sa *StockAlertService) HandleSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	ctx, span := util.StartSpan(ctx, "StockAlertService.HandleSaleCreated")
	defer span.End()

	processed, err := sa.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		sa.logger.Info("Event already processed", zap.String("event_id", event.EventID))
		return nil
	}

	ids := make([]string, 0, len(event.Items))
	seen := make(map[string]bool, len(event.Items))
	for _, item := range event.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := sa.store.GetProductsByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to get sold products: %w", err)
	}

	for i := range products {
		p := &products[i]
		if !p.IsLowStock() {
			continue
		}

		alert := &models.StockLowEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeStockLow,
				Timestamp: event.Timestamp,
			},
			ProductID:     p.ID,
			Name:          p.Name,
			StockQuantity: p.StockQuantity,
			MinStockAlert: p.MinStockAlert,
			TriggeredBy:   event.SaleID,
		}

		sa.logger.Warn("Product stock is low",
			zap.String("product_id", p.ID),
			zap.String("name", p.Name),
			zap.Int("stock", p.StockQuantity),
			zap.Int("min_stock_alert", p.MinStockAlert))
		util.LowStockAlertsTotal.Inc()

		if sa.publisher == nil {
			continue
		}
		if err := sa.publisher.PublishStockLow(ctx, alert); err != nil {
			return fmt.Errorf("failed to publish stock alert for %s: %w", p.ID, err)
		}
	}

	if err := sa.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		sa.logger.Error("Failed to mark event processed", zap.Error(err))
	}
	return nil
}
