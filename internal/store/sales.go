package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-service/internal/models"
)

// SaleFilter narrows ListSales
type SaleFilter struct {
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}

// GetSaleByID retrieves a sale by ID
func (s *Store) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale, "SELECT * FROM sales WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns one page of sales, newest first, plus the total count
func (s *Store) ListSales(ctx context.Context, f SaleFilter) ([]models.Sale, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if f.UserID != "" {
		args = append(args, f.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if f.StartDate != nil {
		args = append(args, *f.StartDate)
		conditions = append(conditions, fmt.Sprintf("purchase_date >= $%d", len(args)))
	}
	if f.EndDate != nil {
		args = append(args, *f.EndDate)
		conditions = append(conditions, fmt.Sprintf("purchase_date <= $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.GetContext(ctx, &total, "SELECT count(*) FROM sales"+whereClause, args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM sales" + whereClause + " ORDER BY purchase_date DESC"
	if f.Limit > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, (page-1)*f.Limit)
	}

	sales := []models.Sale{}
	if err := s.db.SelectContext(ctx, &sales, query, args...); err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}

// SearchCustomersByPhoneRange scans distinct phones in [lower, upper) that
// also start with prefix, in ascending byte order, one row per phone with
// the most recent customer name. An empty upper leaves the range open.
func (s *Store) SearchCustomersByPhoneRange(ctx context.Context, prefix, lower, upper string, limit int) ([]models.CustomerMatch, error) {
	args := []interface{}{lower, prefix + "%"}
	query := `
		SELECT DISTINCT ON (customer_phone) customer_phone, customer_name
		FROM sales
		WHERE customer_phone >= $1 AND customer_phone LIKE $2`

	if upper != "" {
		args = append(args, upper)
		query += fmt.Sprintf(" AND customer_phone < $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY customer_phone ASC, purchase_date DESC LIMIT $%d", len(args))

	matches := []models.CustomerMatch{}
	if err := s.db.SelectContext(ctx, &matches, query, args...); err != nil {
		return nil, fmt.Errorf("phone range scan failed: %w", err)
	}
	return matches, nil
}
