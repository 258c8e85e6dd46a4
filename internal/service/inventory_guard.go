package service

import (
	"context"
	"errors"
	"fmt"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockTx is the part of a sale transaction the guard touches
type StockTx interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
}

// InventoryGuard validates and decrements stock for one sale line inside
// the enclosing transaction. Undoing earlier lines on failure is left to
// the transaction rollback.
type InventoryGuard struct {
	logger *zap.Logger
}

// NewInventoryGuard creates a new inventory guard
func NewInventoryGuard() *InventoryGuard {
	return &InventoryGuard{
		logger: util.GetLogger(),
	}
}

// Take removes qty units of productID from stock and returns the frozen
// line snapshot priced at price.
func (g *InventoryGuard) Take(ctx context.Context, tx StockTx, productID string, qty int, price decimal.Decimal) (models.LineItem, error) {
	ctx, span := util.StartSpan(ctx, "InventoryGuard.Take")
	var err error
	defer func() { util.EndSpan(span, err) }()

	product, err := tx.GetProduct(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		util.StockRejectionsTotal.WithLabelValues("not_found").Inc()
		err = &ProductNotFoundError{ProductID: productID}
		return models.LineItem{}, err
	}
	if err != nil {
		err = fmt.Errorf("failed to read product %s: %w", productID, err)
		return models.LineItem{}, err
	}

	if product.StockQuantity < qty {
		util.StockRejectionsTotal.WithLabelValues("insufficient_stock").Inc()
		err = &InsufficientStockError{
			ProductID: productID,
			Name:      product.Name,
			Requested: qty,
			Available: product.StockQuantity,
		}
		return models.LineItem{}, err
	}

	ok, err := tx.DecrementStock(ctx, productID, qty)
	if err != nil {
		return models.LineItem{}, err
	}
	if !ok {
		// another sale committed a decrement after our read
		available := 0
		if current, readErr := tx.GetProduct(ctx, productID); readErr == nil {
			available = current.StockQuantity
		}
		g.logger.Info("Stock changed during sale",
			zap.String("product_id", productID),
			zap.Int("requested", qty),
			zap.Int("available", available))

		util.StockRejectionsTotal.WithLabelValues("lost_race").Inc()
		err = &InsufficientStockError{
			ProductID: productID,
			Name:      product.Name,
			Requested: qty,
			Available: available,
		}
		return models.LineItem{}, err
	}

	return models.LineItem{
		ProductID: product.ID,
		Qty:       qty,
		Price:     price,
		Name:      product.Name,
		Category:  product.Category,
	}, nil
}
