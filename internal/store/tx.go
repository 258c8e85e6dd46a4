package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
)

type pgTx struct {
	tx *sqlx.Tx
}

// GetProduct reads a product inside the transaction
func (t *pgTx) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock subtracts qty only while stock still covers it. The check
// and the write are one statement, so concurrent sales cannot both pass
// against the same stale level. Returns false when no row qualified.
func (t *pgTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = stock_quantity - $1 WHERE id = $2 AND stock_quantity >= $1",
		qty, productID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// NextBillOrdinal increments and returns the counter for year in one
// statement. The row stays locked until the transaction ends, and a
// rollback restores the previous value.
func (t *pgTx) NextBillOrdinal(ctx context.Context, year int) (int64, error) {
	query := `
		INSERT INTO bill_sequences (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = bill_sequences.last_value + 1
		RETURNING last_value`

	var ordinal int64
	if err := t.tx.GetContext(ctx, &ordinal, query, year); err != nil {
		return 0, fmt.Errorf("failed to advance bill sequence: %w", err)
	}
	return ordinal, nil
}

// GetUser reads an employee inside the transaction
func (t *pgTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := t.tx.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// InsertSale persists a new sale
func (t *pgTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sales (
			id, bill_no, customer_name, customer_phone, items, total_amount,
			discount, status, payment_method, purchase_date, user_id, sold_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at`

	return t.tx.GetContext(ctx, &sale.CreatedAt, query,
		sale.ID, sale.BillNo, sale.CustomerName, sale.CustomerPhone, sale.Items, sale.TotalAmount,
		sale.Discount, sale.Status, sale.PaymentMethod, sale.PurchaseDate, sale.UserID, sale.SoldBy)
}
