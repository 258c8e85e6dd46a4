package store

import (
	"context"
	"database/sql"
	"errors"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateProduct inserts a catalog product
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (
			id, name, category, stock_quantity, min_stock_alert,
			cost_price, sell_price, supplier
		)
		VALUES (:id, :name, :category, :stock_quantity, :min_stock_alert,
			:cost_price, :sell_price, :supplier)
		RETURNING created_at`

	query, args, err := sqlx.Named(query, product)
	if err != nil {
		return err
	}
	return s.db.GetContext(ctx, &product.CreatedAt, s.db.Rebind(query), args...)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products by IDs
func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM products WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var products []models.Product
	err = s.db.SelectContext(ctx, &products, query, args...)
	return products, err
}

// GetLowStockProducts lists products whose stock is at or below threshold
func (s *Store) GetLowStockProducts(ctx context.Context, threshold int) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE stock_quantity <= $1 ORDER BY stock_quantity ASC, name ASC", threshold)
	return products, err
}

// EnsureUser inserts an employee account unless one with the same id or
// username exists. created reports whether a row was written.
func (s *Store) EnsureUser(ctx context.Context, user *models.User) (created bool, err error) {
	err = s.db.GetContext(ctx, &user.CreatedAt, `
		INSERT INTO users (id, username, role) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING
		RETURNING created_at`,
		user.ID, user.Username, user.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
