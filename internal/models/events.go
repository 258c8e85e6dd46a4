package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeSaleCreated = "SALE_CREATED"
	EventTypeStockLow    = "STOCK_LOW"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"eventId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCreatedEvent published after a sale commits
type SaleCreatedEvent struct {
	BaseEvent
	SaleID       string          `json:"saleId"`
	BillNo       string          `json:"billNo"`
	UserID       string          `json:"userId"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Items        []SaleItemData  `json:"items"`
	PurchaseDate time.Time       `json:"purchaseDate"`
}

// StockLowEvent published when a sold product drops to its alert threshold
type StockLowEvent struct {
	BaseEvent
	ProductID     string `json:"productId"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stockQuantity"`
	MinStockAlert int    `json:"minStockAlert"`
	TriggeredBy   string `json:"triggeredBy"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}
