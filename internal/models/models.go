package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a stock-keeping unit in the catalog
type Product struct {
	ID            string          `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	Category      string          `db:"category" json:"category"`
	StockQuantity int             `db:"stock_quantity" json:"stockQuantity"`
	MinStockAlert int             `db:"min_stock_alert" json:"minStockAlert"`
	CostPrice     decimal.Decimal `db:"cost_price" json:"costPrice"`
	SellPrice     decimal.Decimal `db:"sell_price" json:"sellPrice"`
	Supplier      string          `db:"supplier" json:"supplier,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// IsLowStock reports whether the product is at or below its alert threshold
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockAlert
}

// User represents an employee who can issue sales
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Sale is an immutable record of a completed transaction
type Sale struct {
	ID            string          `db:"id" json:"id"`
	BillNo        string          `db:"bill_no" json:"billNo"`
	CustomerName  string          `db:"customer_name" json:"customerName"`
	CustomerPhone string          `db:"customer_phone" json:"customerPhone"`
	Items         LineItems       `db:"items" json:"items"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"totalAmount"`
	Discount      decimal.Decimal `db:"discount" json:"discount"`
	Status        string          `db:"status" json:"status"`
	PaymentMethod *string         `db:"payment_method" json:"paymentMethod,omitempty"`
	PurchaseDate  time.Time       `db:"purchase_date" json:"purchaseDate"`
	UserID        string          `db:"user_id" json:"userId"`
	SoldBy        string          `db:"sold_by" json:"soldBy"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
}

// LineItem is one product line embedded in a sale. Name, category and price
// are frozen at the time of sale.
type LineItem struct {
	ProductID string          `json:"productId"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
}

// Subtotal returns qty x price
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Qty)))
}

// LineItems is stored as a JSONB column
type LineItems []LineItem

// Value implements driver.Valuer
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *LineItems) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = LineItems{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for line items: %T", src)
	}
	return json.Unmarshal(data, l)
}

// CustomerMatch is one phone search result
type CustomerMatch struct {
	Phone string `db:"customer_phone" json:"phone"`
	Name  string `db:"customer_name" json:"name"`
}

// Sale statuses
const (
	SaleStatusPaid    = "PAID"
	SaleStatusPending = "PENDING"
)

// Product categories
const (
	CategoryShirt  = "SHIRT"
	CategoryPant   = "PANT"
	CategoryTShirt = "TSHIRT"
	CategoryShorts = "SHORTS"
	CategoryBlazer = "BLAZER"
	CategoryJeans  = "JEANS"
	CategoryKurta  = "KURTA"
)

var categories = map[string]struct{}{
	CategoryShirt:  {},
	CategoryPant:   {},
	CategoryTShirt: {},
	CategoryShorts: {},
	CategoryBlazer: {},
	CategoryJeans:  {},
	CategoryKurta:  {},
}

// ValidCategory reports whether c belongs to the fixed category set
func ValidCategory(c string) bool {
	_, ok := categories[c]
	return ok
}

// User roles
const (
	RoleOwner    = "OWNER"
	RoleEmployee = "EMPLOYEE"
)
