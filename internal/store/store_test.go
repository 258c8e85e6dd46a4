package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"pos-service/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL or skips the test
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	s, err := NewStore(url, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seedProduct(t *testing.T, s *Store, stock int) *models.Product {
	t.Helper()

	p := &models.Product{
		ID:            uuid.New().String(),
		Name:          "Oxford Shirt",
		Category:      models.CategoryShirt,
		StockQuantity: stock,
		MinStockAlert: 2,
		CostPrice:     decimal.NewFromInt(40),
		SellPrice:     decimal.NewFromInt(100),
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func seedUser(t *testing.T, s *Store) *models.User {
	t.Helper()

	user := &models.User{ID: uuid.New().String(), Username: "tester-" + uuid.New().String(), Role: models.RoleEmployee}
	created, err := s.EnsureUser(context.Background(), user)
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(fmt.Errorf("wrapped: %w", &pq.Error{Code: "40P01"})))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("connection refused")))
}

func TestDecrementStockIsConditional(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 3)

	err := s.RunInTx(ctx, func(tx SaleTx) error {
		ok, err := tx.DecrementStock(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = tx.DecrementStock(ctx, p.ID, 2)
		require.NoError(t, err)
		assert.False(t, ok, "only 1 left")
		return nil
	})
	require.NoError(t, err)

	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)
}

func TestConcurrentDecrementNeverOversells(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	p := seedProduct(t, s, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.RunInTx(ctx, func(tx SaleTx) error {
				ok, err := tx.DecrementStock(ctx, p.ID, 3)
				if err != nil {
					return err
				}
				if ok {
					mu.Lock()
					succeeded++
					mu.Unlock()
				}
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	got, err := s.GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)
}

func TestBillOrdinalRollbackDoesNotBurn(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	year := 1900 + int(time.Now().UnixNano()%1000)

	var first int64
	require.NoError(t, s.RunInTx(ctx, func(tx SaleTx) error {
		var err error
		first, err = tx.NextBillOrdinal(ctx, year)
		return err
	}))

	rollback := errors.New("abort")
	err := s.RunInTx(ctx, func(tx SaleTx) error {
		_, err := tx.NextBillOrdinal(ctx, year)
		require.NoError(t, err)
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	var next int64
	require.NoError(t, s.RunInTx(ctx, func(tx SaleTx) error {
		var err error
		next, err = tx.NextBillOrdinal(ctx, year)
		return err
	}))
	assert.Equal(t, first+1, next)
}

func seedSale(t *testing.T, s *Store, userID, name, phone string, at time.Time) {
	t.Helper()

	err := s.RunInTx(context.Background(), func(tx SaleTx) error {
		return tx.InsertSale(context.Background(), &models.Sale{
			ID:            uuid.New().String(),
			BillNo:        "TEST-" + uuid.New().String(),
			CustomerName:  name,
			CustomerPhone: phone,
			Items:         models.LineItems{},
			TotalAmount:   decimal.NewFromInt(10),
			Discount:      decimal.Zero,
			Status:        models.SaleStatusPaid,
			PurchaseDate:  at,
			UserID:        userID,
			SoldBy:        "tester",
		})
	})
	require.NoError(t, err)
}

func TestSearchCustomersByPhoneRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s)

	// unique 6-digit space per run keeps reruns isolated
	base := fmt.Sprintf("7%05d", time.Now().UnixNano()%100000)
	now := time.Now().UTC()
	seedSale(t, s, user.ID, "Old Name", base+"0002", now.Add(-time.Hour))
	seedSale(t, s, user.ID, "New Name", base+"0002", now)
	seedSale(t, s, user.ID, "Anita", base+"0001", now)
	seedSale(t, s, user.ID, "Outside", base+"1000", now)

	matches, err := s.SearchCustomersByPhoneRange(ctx, base+"0", base+"0", base+"1", 10)
	require.NoError(t, err)
	assert.Equal(t, []models.CustomerMatch{
		{Phone: base + "0001", Name: "Anita"},
		{Phone: base + "0002", Name: "New Name"},
	}, matches)

	matches, err = s.SearchCustomersByPhoneRange(ctx, base, base, "", 1)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestSearchCustomersAllNinesPrefix(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)

	suffix := fmt.Sprintf("%07d", time.Now().UnixNano()%10000000)
	inside := "999" + suffix
	outside := "1000" + suffix
	below := "998" + suffix
	t.Cleanup(func() {
		_, _ = s.db.Exec("DELETE FROM sales WHERE customer_phone = ANY($1)", pq.Array([]string{inside, outside, below}))
	})

	now := time.Now().UTC()
	seedSale(t, s, user.ID, "Inside", inside, now)
	seedSale(t, s, user.ID, "Outside", outside, now)
	seedSale(t, s, user.ID, "Below", below, now)

	// "999" has no successor of the same length, so the range is open ended
	matches, err := s.SearchCustomersByPhoneRange(ctx, "999", "999", "", 1000)
	require.NoError(t, err)

	phones := make([]string, 0, len(matches))
	for _, m := range matches {
		assert.True(t, strings.HasPrefix(m.Phone, "999"), m.Phone)
		phones = append(phones, m.Phone)
	}
	assert.Contains(t, phones, inside)
	assert.NotContains(t, phones, outside)
	assert.NotContains(t, phones, below)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	user := seedUser(t, s)

	again := &models.User{ID: user.ID, Username: user.Username, Role: models.RoleOwner}
	created, err := s.EnsureUser(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	taken := &models.User{ID: uuid.New().String(), Username: user.Username, Role: models.RoleEmployee}
	created, err = s.EnsureUser(ctx, taken)
	require.NoError(t, err)
	assert.False(t, created, "username already in use")

	err = s.RunInTx(ctx, func(tx SaleTx) error {
		got, err := tx.GetUser(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEmployee, got.Role, "existing row untouched")
		return nil
	})
	require.NoError(t, err)
}

func TestProcessedEvents(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	id := uuid.New().String()

	done, err := s.IsEventProcessed(ctx, id)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, s.MarkEventProcessed(ctx, id, models.EventTypeSaleCreated))
	require.NoError(t, s.MarkEventProcessed(ctx, id, models.EventTypeSaleCreated), "marking twice is harmless")

	done, err = s.IsEventProcessed(ctx, id)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestLowStockProductsOrdered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	low := seedProduct(t, s, 0)

	products, err := s.GetLowStockProducts(ctx, 0)
	require.NoError(t, err)

	found := false
	for _, p := range products {
		assert.LessOrEqual(t, p.StockQuantity, 0)
		if p.ID == low.ID {
			found = true
		}
	}
	assert.True(t, found)
}
