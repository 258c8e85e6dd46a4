package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultMinStockAlert = 5

// CatalogStore is the product persistence used by the catalog
type CatalogStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id string) (*models.Product, error)
	GetLowStockProducts(ctx context.Context, threshold int) ([]models.Product, error)
}

// CatalogService handles product creation, lookup and the low stock report
type CatalogService struct {
	store            CatalogStore
	defaultThreshold int
	logger           *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(store CatalogStore, lowStockThreshold int) *CatalogService {
	return &CatalogService{
		store:            store,
		defaultThreshold: lowStockThreshold,
		logger:           util.GetLogger(),
	}
}

// CreateProductRequest represents a request to add a product
type CreateProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	Category      string          `json:"category" binding:"required"`
	StockQuantity int             `json:"stockQuantity"`
	MinStockAlert *int            `json:"minStockAlert,omitempty"`
	CostPrice     decimal.Decimal `json:"costPrice"`
	SellPrice     decimal.Decimal `json:"sellPrice"`
	Supplier      string          `json:"supplier,omitempty"`
}

// CreateProduct validates and stores a new product
func (cs *CatalogService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.CreateProduct")
	defer span.End()

	product, err := buildProduct(req)
	if err != nil {
		return nil, err
	}

	if err := cs.store.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	cs.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("category", product.Category),
		zap.Int("stock", product.StockQuantity))

	return product, nil
}

// GetProduct returns a product or store.ErrNotFound
func (cs *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := cs.store.GetProductByID(ctx, id)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			err = fmt.Errorf("failed to get product: %w", err)
		}
		return nil, err
	}
	return product, nil
}

// ListLowStock returns products with stock at or below threshold, lowest
// first. A threshold below zero uses the configured default.
func (cs *CatalogService) ListLowStock(ctx context.Context, threshold int) ([]models.Product, error) {
	if threshold < 0 {
		threshold = cs.defaultThreshold
	}

	products, err := cs.store.GetLowStockProducts(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

func buildProduct(req *CreateProductRequest) (*models.Product, error) {
	if req == nil {
		return nil, &ValidationError{Field: "request", Message: "missing body"}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be blank"}
	}
	if !models.ValidCategory(req.Category) {
		return nil, &ValidationError{Field: "category", Message: "unknown category " + req.Category}
	}
	if req.StockQuantity < 0 {
		return nil, &ValidationError{Field: "stockQuantity", Message: "must not be negative"}
	}

	minAlert := defaultMinStockAlert
	if req.MinStockAlert != nil {
		minAlert = *req.MinStockAlert
	}
	if minAlert < 1 {
		return nil, &ValidationError{Field: "minStockAlert", Message: "must be at least 1"}
	}

	if req.CostPrice.IsNegative() {
		return nil, &ValidationError{Field: "costPrice", Message: "must not be negative"}
	}
	if req.SellPrice.IsNegative() {
		return nil, &ValidationError{Field: "sellPrice", Message: "must not be negative"}
	}
	if msg := checkAmount(req.CostPrice); msg != "" {
		return nil, &ValidationError{Field: "costPrice", Message: msg}
	}
	if msg := checkAmount(req.SellPrice); msg != "" {
		return nil, &ValidationError{Field: "sellPrice", Message: msg}
	}

	return &models.Product{
		ID:            uuid.New().String(),
		Name:          name,
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
		MinStockAlert: minAlert,
		CostPrice:     req.CostPrice,
		SellPrice:     req.SellPrice,
		Supplier:      strings.TrimSpace(req.Supplier),
	}, nil
}
