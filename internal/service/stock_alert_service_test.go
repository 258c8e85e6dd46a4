package service

import (
	"context"
	"testing"

	"pos-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAlertStore struct {
	products  []models.Product
	requested []string
	processed map[string]bool
}

func (f *fakeAlertStore) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	f.requested = ids
	return f.products, nil
}

func (f *fakeAlertStore) IsEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return f.processed[eventID], nil
}

func (f *fakeAlertStore) MarkEventProcessed(ctx context.Context, eventID, eventType string) error {
	f.processed[eventID] = true
	return nil
}

func saleEvent() *models.SaleCreatedEvent {
	return &models.SaleCreatedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeSaleCreated, Timestamp: saleTime},
		SaleID:    "sale-1",
		Items: []models.SaleItemData{
			{ProductID: "P1", Qty: 1},
			{ProductID: "P2", Qty: 2},
			{ProductID: "P1", Qty: 1},
		},
	}
}

func TestHandleSaleCreatedPublishesLowStock(t *testing.T) {
	as := &fakeAlertStore{
		processed: map[string]bool{},
		products: []models.Product{
			{ID: "P1", Name: "Shirt", StockQuantity: 2, MinStockAlert: 2},
			{ID: "P2", Name: "Pant", StockQuantity: 9, MinStockAlert: 5},
		},
	}
	pub := &fakePublisher{}
	sa := NewStockAlertService(as, pub)

	require.NoError(t, sa.HandleSaleCreated(context.Background(), saleEvent()))

	assert.Equal(t, []string{"P1", "P2"}, as.requested)
	require.Len(t, pub.alerts, 1)
	assert.Equal(t, "P1", pub.alerts[0].ProductID)
	assert.Equal(t, "sale-1", pub.alerts[0].TriggeredBy)
	assert.Equal(t, models.EventTypeStockLow, pub.alerts[0].EventType)
	assert.True(t, as.processed["evt-1"])
}

func TestHandleSaleCreatedSkipsRedelivery(t *testing.T) {
	as := &fakeAlertStore{
		processed: map[string]bool{"evt-1": true},
		products:  []models.Product{{ID: "P1", StockQuantity: 0, MinStockAlert: 2}},
	}
	pub := &fakePublisher{}
	sa := NewStockAlertService(as, pub)

	require.NoError(t, sa.HandleSaleCreated(context.Background(), saleEvent()))
	assert.Empty(t, pub.alerts)
	assert.Nil(t, as.requested)
}
