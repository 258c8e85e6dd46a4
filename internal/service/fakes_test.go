package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
)

// fakeStore is an in-memory SaleStore. Transactions are serialized and
// work on a copy of the state that is swapped in only on commit.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]models.Product
	users    map[string]models.User
	counters map[int]int64
	sales    []models.Sale

	insertErr error
	txErrs    []error
	txCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string]models.Product{},
		users: map[string]models.User{
			"emp-1": {ID: "emp-1", Username: "asha", Role: models.RoleEmployee},
		},
		counters: map[int]int64{},
	}
}

func (f *fakeStore) addProduct(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ID] = p
}

func (f *fakeStore) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[id].StockQuantity
}

func (f *fakeStore) saleCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sales)
}

func (f *fakeStore) RunInTx(ctx context.Context, fn func(tx store.SaleTx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.txCalls++
	if len(f.txErrs) > 0 {
		err := f.txErrs[0]
		f.txErrs = f.txErrs[1:]
		return err
	}

	tx := &fakeTx{
		products:  make(map[string]models.Product, len(f.products)),
		counters:  make(map[int]int64, len(f.counters)),
		users:     f.users,
		insertErr: f.insertErr,
	}
	for k, v := range f.products {
		tx.products[k] = v
	}
	for k, v := range f.counters {
		tx.counters[k] = v
	}

	if err := fn(tx); err != nil {
		return err
	}

	f.products = tx.products
	f.counters = tx.counters
	f.sales = append(f.sales, tx.sales...)
	return nil
}

func (f *fakeStore) GetSaleByID(ctx context.Context, id string) (*models.Sale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sales {
		if f.sales[i].ID == id {
			sale := f.sales[i]
			return &sale, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListSales(ctx context.Context, filter store.SaleFilter) ([]models.Sale, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matched := []models.Sale{}
	for i := len(f.sales) - 1; i >= 0; i-- {
		s := f.sales[i]
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if filter.StartDate != nil && s.PurchaseDate.Before(*filter.StartDate) {
			continue
		}
		if filter.EndDate != nil && s.PurchaseDate.After(*filter.EndDate) {
			continue
		}
		matched = append(matched, s)
	}

	start := (filter.Page - 1) * filter.Limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

// SearchCustomersByPhoneRange mirrors the SQL scan over committed sales
func (f *fakeStore) SearchCustomersByPhoneRange(ctx context.Context, prefix, lower, upper string, limit int) ([]models.CustomerMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	latest := map[string]models.Sale{}
	for _, s := range f.sales {
		phone := s.CustomerPhone
		if phone < lower || (upper != "" && phone >= upper) || !strings.HasPrefix(phone, prefix) {
			continue
		}
		if prev, ok := latest[phone]; !ok || !s.PurchaseDate.Before(prev.PurchaseDate) {
			latest[phone] = s
		}
	}

	matches := make([]models.CustomerMatch, 0, len(latest))
	for phone, s := range latest {
		matches = append(matches, models.CustomerMatch{Phone: phone, Name: s.CustomerName})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Phone < matches[j].Phone })
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

type fakeTx struct {
	products  map[string]models.Product
	counters  map[int]int64
	users     map[string]models.User
	sales     []models.Sale
	insertErr error
}

func (t *fakeTx) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	p, ok := t.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (t *fakeTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	p, ok := t.products[productID]
	if !ok || p.StockQuantity < qty {
		return false, nil
	}
	p.StockQuantity -= qty
	t.products[productID] = p
	return true, nil
}

func (t *fakeTx) NextBillOrdinal(ctx context.Context, year int) (int64, error) {
	t.counters[year]++
	return t.counters[year], nil
}

func (t *fakeTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, ok := t.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (t *fakeTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	if t.insertErr != nil {
		return t.insertErr
	}
	sale.CreatedAt = sale.PurchaseDate
	t.sales = append(t.sales, *sale)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	sales  []*models.SaleCreatedEvent
	alerts []*models.StockLowEvent
	err    error
}

func (p *fakePublisher) PublishSaleCreated(ctx context.Context, event *models.SaleCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sales = append(p.sales, event)
	return p.err
}

func (p *fakePublisher) PublishStockLow(ctx context.Context, event *models.StockLowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, event)
	return p.err
}

type fakeIdempotency struct {
	mu     sync.Mutex
	keys   map[string]string
	locks  map[string]bool
	getErr error
}

func newFakeIdempotency() *fakeIdempotency {
	return &fakeIdempotency{keys: map[string]string{}, locks: map[string]bool{}}
}

func (f *fakeIdempotency) GetIdempotencyKey(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.keys[key]
	return v, ok, nil
}

func (f *fakeIdempotency) SetIdempotencyKey(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = value.(string)
	return nil
}

func (f *fakeIdempotency) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks[lockKey] {
		return false, nil
	}
	f.locks[lockKey] = true
	return true, nil
}

func (f *fakeIdempotency) ReleaseLock(ctx context.Context, lockKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locks, lockKey)
	return nil
}
