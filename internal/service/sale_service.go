package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"pos-service/internal/clock"
	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Discount policies for a discount larger than the basket total
const (
	DiscountReject = "reject"
	DiscountClamp  = "clamp"
	DiscountAllow  = "allow"
)

// ParseDiscountPolicy accepts a policy name in any case. An empty name
// means DiscountReject.
func ParseDiscountPolicy(name string) (string, error) {
	policy := strings.ToLower(strings.TrimSpace(name))
	switch policy {
	case "":
		return DiscountReject, nil
	case DiscountReject, DiscountClamp, DiscountAllow:
		return policy, nil
	}
	return "", fmt.Errorf("unknown discount policy %q: want reject, clamp or allow", name)
}

// Amounts are stored as NUMERIC(12,2): two decimal places and an absolute
// value below 10^10.
const moneyPlaces = 2

var maxStoredAmount = decimal.New(1, 10)

// SaleStore is the persistence the sale engine depends on
type SaleStore interface {
	RunInTx(ctx context.Context, fn func(tx store.SaleTx) error) error
	GetSaleByID(ctx context.Context, id string) (*models.Sale, error)
	ListSales(ctx context.Context, f store.SaleFilter) ([]models.Sale, int, error)
}

// SaleEventPublisher publishes committed sales
type SaleEventPublisher interface {
	PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error
}

// IdempotencyStore remembers which sale answered an idempotency key
type IdempotencyStore interface {
	GetIdempotencyKey(ctx context.Context, key string) (string, bool, error)
	SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
}

// SaleOptions tunes the sale engine
type SaleOptions struct {
	TxTimeout      time.Duration
	MaxRetries     int
	DiscountPolicy string
	IdempotencyTTL time.Duration
}

// SaleService records sales atomically: stock, bill number and the sale
// row commit together or not at all.
type SaleService struct {
	store     SaleStore
	guard     *InventoryGuard
	bills     *BillNumberAllocator
	publisher SaleEventPublisher
	idem      IdempotencyStore
	clock     clock.Clock
	opts      SaleOptions
	logger    *zap.Logger
}

// NewSaleService creates a new sale service. publisher and idem may be nil.
func NewSaleService(
	store SaleStore,
	guard *InventoryGuard,
	bills *BillNumberAllocator,
	publisher SaleEventPublisher,
	idem IdempotencyStore,
	clk clock.Clock,
	opts SaleOptions,
) *SaleService {
	if clk == nil {
		clk = clock.Real{}
	}
	logger := util.GetLogger()
	policy, err := ParseDiscountPolicy(opts.DiscountPolicy)
	if err != nil {
		logger.Error("Falling back to reject discount policy", zap.Error(err))
		policy = DiscountReject
	}
	opts.DiscountPolicy = policy

	return &SaleService{
		store:     store,
		guard:     guard,
		bills:     bills,
		publisher: publisher,
		idem:      idem,
		clock:     clk,
		opts:      opts,
		logger:    logger,
	}
}

// CreateSaleRequest represents a request to record a sale
type CreateSaleRequest struct {
	CustomerName   string            `json:"customerName" binding:"required"`
	CustomerPhone  string            `json:"customerPhone" binding:"required"`
	Items          []SaleItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount       decimal.Decimal   `json:"discount"`
	Status         string            `json:"status"`
	PaymentMethod  *string           `json:"paymentMethod,omitempty"`
	IdempotencyKey string            `json:"-"`
}

// SaleItemRequest represents one basket line
type SaleItemRequest struct {
	ProductID string          `json:"productId" binding:"required"`
	Qty       int             `json:"qty" binding:"required"`
	Price     decimal.Decimal `json:"price"`
}

// saleInput is a validated, normalized request
type saleInput struct {
	customerName  string
	customerPhone string
	items         []SaleItemRequest
	discount      decimal.Decimal
	status        string
	paymentMethod *string
	employeeID    string
}

// CreateSale validates the basket, decrements stock line by line, prices it,
// assigns a bill number and stores the sale, all in one transaction.
func (s *SaleService) CreateSale(ctx context.Context, req *CreateSaleRequest, employeeID string) (*models.Sale, error) {
	if req == nil {
		return nil, &ValidationError{Field: "request", Message: "missing body"}
	}

	ctx, span := util.StartSpan(ctx, "SaleService.CreateSale",
		attribute.Int("sale.items", len(req.Items)))
	var err error
	defer func() { util.EndSpan(span, err) }()

	start := time.Now()
	defer func() {
		util.SaleLatency.Observe(time.Since(start).Seconds())
	}()

	input, err := normalizeSaleRequest(req, employeeID)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	var sale *models.Sale
	if req.IdempotencyKey != "" && s.idem != nil {
		sale, err = s.createIdempotent(ctx, req.IdempotencyKey, input)
	} else {
		sale, err = s.createSale(ctx, input)
	}
	return sale, err
}

func (s *SaleService) createIdempotent(ctx context.Context, key string, input *saleInput) (*models.Sale, error) {
	existing, err := s.recordedSale(ctx, key)
	if err != nil || existing != nil {
		return existing, err
	}

	lockKey := "sale:" + key
	acquired, err := s.idem.AcquireLock(ctx, lockKey, s.lockTTL())
	if err != nil {
		s.logger.Warn("Idempotency lock failed, processing without it",
			zap.String("idempotency_key", key), zap.Error(err))
		return s.createSale(ctx, input)
	}
	if !acquired {
		util.SalesFailedTotal.WithLabelValues("duplicate_in_flight").Inc()
		return nil, &DuplicateRequestError{Key: key}
	}
	defer func() {
		if err := s.idem.ReleaseLock(context.Background(), lockKey); err != nil {
			s.logger.Warn("Failed to release idempotency lock", zap.String("lock", lockKey), zap.Error(err))
		}
	}()

	// the previous holder of the lock may have finished between the first
	// lookup and AcquireLock
	existing, err = s.recordedSale(ctx, key)
	if err != nil || existing != nil {
		return existing, err
	}

	sale, err := s.createSale(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := s.idem.SetIdempotencyKey(ctx, key, sale.ID, s.opts.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key",
			zap.String("idempotency_key", key), zap.Error(err))
	}
	return sale, nil
}

// recordedSale returns the sale already stored under key, or nil when the
// key is unused. A failed key lookup is logged and treated as unused. A key
// whose sale cannot be read is an error: selling again would take stock twice.
func (s *SaleService) recordedSale(ctx context.Context, key string) (*models.Sale, error) {
	saleID, found, err := s.idem.GetIdempotencyKey(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed",
			zap.String("idempotency_key", key), zap.Error(err))
		return nil, nil
	}
	if !found {
		return nil, nil
	}

	existing, err := s.store.GetSaleByID(ctx, saleID)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("idempotency").Inc()
		s.logger.Error("Idempotency key points at unreadable sale",
			zap.String("idempotency_key", key), zap.String("sale_id", saleID), zap.Error(err))
		return nil, fmt.Errorf("idempotency key %q refers to sale %s that cannot be read: %v", key, saleID, err)
	}

	s.logger.Info("Duplicate sale request detected",
		zap.String("idempotency_key", key),
		zap.String("sale_id", existing.ID))
	return existing, nil
}

func (s *SaleService) lockTTL() time.Duration {
	ttl := s.opts.TxTimeout * time.Duration(s.opts.MaxRetries+1)
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return ttl + 5*time.Second
}

// createSale runs the sale transaction, retrying transient store conflicts.
// Domain failures return as is; every other failure becomes TransactionAbortedError.
func (s *SaleService) createSale(ctx context.Context, input *saleInput) (*models.Sale, error) {
	for attempt := 0; ; attempt++ {
		sale, err := s.runSaleTx(ctx, input)
		if err == nil {
			s.afterCommit(ctx, sale)
			return sale, nil
		}

		if reason, ok := failureReason(err); ok {
			util.SalesFailedTotal.WithLabelValues(reason).Inc()
			return nil, err
		}

		if store.IsRetryable(err) && attempt < s.opts.MaxRetries && ctx.Err() == nil {
			util.SaleTxRetriesTotal.Inc()
			s.logger.Warn("Retrying sale transaction",
				zap.Int("attempt", attempt+1), zap.Error(err))
			continue
		}

		util.SalesFailedTotal.WithLabelValues("tx_aborted").Inc()
		s.logger.Error("Sale transaction aborted",
			zap.String("employee_id", input.employeeID), zap.Error(err))
		return nil, &TransactionAbortedError{Err: err}
	}
}

func (s *SaleService) runSaleTx(ctx context.Context, input *saleInput) (*models.Sale, error) {
	if s.opts.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TxTimeout)
		defer cancel()
	}

	now := s.clock.Now()
	var sale *models.Sale

	err := s.store.RunInTx(ctx, func(tx store.SaleTx) error {
		items := make(models.LineItems, 0, len(input.items))
		total := decimal.Zero

		for _, item := range input.items {
			line, err := s.guard.Take(ctx, tx, item.ProductID, item.Qty, item.Price)
			if err != nil {
				return err
			}
			items = append(items, line)
			total = total.Add(line.Subtotal())
		}

		finalTotal, err := applyDiscount(total, input.discount, s.opts.DiscountPolicy)
		if err != nil {
			return err
		}
		if finalTotal.Abs().GreaterThanOrEqual(maxStoredAmount) {
			return &ValidationError{Field: "total", Message: "sale total " + finalTotal.String() + " is out of range"}
		}

		billNo, err := s.bills.Next(ctx, tx, now.Year())
		if err != nil {
			return err
		}

		user, err := tx.GetUser(ctx, input.employeeID)
		if errors.Is(err, store.ErrNotFound) {
			return &ValidationError{Field: "employee", Message: "unknown employee " + input.employeeID}
		}
		if err != nil {
			return err
		}

		candidate := &models.Sale{
			ID:            uuid.New().String(),
			BillNo:        billNo,
			CustomerName:  input.customerName,
			CustomerPhone: input.customerPhone,
			Items:         items,
			TotalAmount:   finalTotal,
			Discount:      input.discount,
			Status:        input.status,
			PaymentMethod: input.paymentMethod,
			PurchaseDate:  now,
			UserID:        user.ID,
			SoldBy:        user.Username,
		}
		if err := tx.InsertSale(ctx, candidate); err != nil {
			return err
		}

		sale = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *SaleService) afterCommit(ctx context.Context, sale *models.Sale) {
	util.SalesCreatedTotal.Inc()
	revenue, _ := sale.TotalAmount.Float64()
	if revenue > 0 {
		util.SaleRevenueTotal.Add(revenue)
	}

	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID),
		zap.String("bill_no", sale.BillNo),
		zap.String("total", sale.TotalAmount.String()))

	if s.publisher == nil {
		return
	}

	items := make([]models.SaleItemData, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, models.SaleItemData{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			Price:     item.Price,
		})
	}

	event := &models.SaleCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCreated,
			Timestamp: s.clock.Now(),
		},
		SaleID:       sale.ID,
		BillNo:       sale.BillNo,
		UserID:       sale.UserID,
		TotalAmount:  sale.TotalAmount,
		Items:        items,
		PurchaseDate: sale.PurchaseDate,
	}

	if err := s.publisher.PublishSaleCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCreated event",
			zap.String("sale_id", sale.ID), zap.Error(err))
	}
}

// applyDiscount subtracts a flat discount from total under policy
func applyDiscount(total, discount decimal.Decimal, policy string) (decimal.Decimal, error) {
	final := total.Sub(discount)
	if !final.IsNegative() {
		return final, nil
	}

	switch policy {
	case DiscountAllow:
		return final, nil
	case DiscountClamp:
		return decimal.Zero, nil
	default:
		return decimal.Zero, &ValidationError{
			Field:   "discount",
			Message: "discount " + discount.String() + " exceeds basket total " + total.String(),
		}
	}
}

func normalizeSaleRequest(req *CreateSaleRequest, employeeID string) (*saleInput, error) {
	employeeID = strings.TrimSpace(employeeID)
	if employeeID == "" {
		return nil, &ValidationError{Field: "employee", Message: "employee id is required"}
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return nil, &ValidationError{Field: "customerName", Message: "must not be blank"}
	}

	phone := NormalizePhone(req.CustomerPhone)
	if phone == "" {
		return nil, &ValidationError{Field: "customerPhone", Message: "must contain digits"}
	}

	if len(req.Items) == 0 {
		return nil, &ValidationError{Field: "items", Message: "basket is empty"}
	}
	for i, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return nil, &ValidationError{Field: itemField(i, "productId"), Message: "is required"}
		}
		if item.Qty < 1 {
			return nil, &ValidationError{Field: itemField(i, "qty"), Message: "must be at least 1"}
		}
		if item.Price.IsNegative() {
			return nil, &ValidationError{Field: itemField(i, "price"), Message: "must not be negative"}
		}
		if msg := checkAmount(item.Price); msg != "" {
			return nil, &ValidationError{Field: itemField(i, "price"), Message: msg}
		}
	}

	if req.Discount.IsNegative() {
		return nil, &ValidationError{Field: "discount", Message: "must not be negative"}
	}
	if msg := checkAmount(req.Discount); msg != "" {
		return nil, &ValidationError{Field: "discount", Message: msg}
	}

	status := req.Status
	if status == "" {
		status = models.SaleStatusPaid
	}
	if status != models.SaleStatusPaid && status != models.SaleStatusPending {
		return nil, &ValidationError{Field: "status", Message: "must be PAID or PENDING"}
	}

	return &saleInput{
		customerName:  name,
		customerPhone: phone,
		items:         req.Items,
		discount:      req.Discount,
		status:        status,
		paymentMethod: req.PaymentMethod,
		employeeID:    employeeID,
	}, nil
}

// checkAmount reports why d cannot be stored as money, or "" if it can
func checkAmount(d decimal.Decimal) string {
	if !d.Equal(d.Round(moneyPlaces)) {
		return "must have at most 2 decimal places"
	}
	if d.Abs().GreaterThanOrEqual(maxStoredAmount) {
		return "is out of range"
	}
	return ""
}

func itemField(i int, name string) string {
	return "items[" + strconv.Itoa(i) + "]." + name
}
