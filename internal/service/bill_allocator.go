package service

import (
	"context"
	"fmt"

	"pos-service/internal/util"
)

// BillCounter advances the persistent per-year bill counter
type BillCounter interface {
	NextBillOrdinal(ctx context.Context, year int) (int64, error)
}

// BillNumberAllocator issues year-scoped sequential bill numbers. The
// counter lives in the store and is advanced inside the sale transaction,
// so numbers are unique under concurrency and a rolled-back sale returns
// its number to the sequence.
type BillNumberAllocator struct {
	prefix string
}

// NewBillNumberAllocator creates an allocator producing BILL-<year>-<nnn>
func NewBillNumberAllocator() *BillNumberAllocator {
	return &BillNumberAllocator{prefix: "BILL"}
}

// Next allocates the next bill number for year
func (a *BillNumberAllocator) Next(ctx context.Context, counter BillCounter, year int) (string, error) {
	ordinal, err := counter.NextBillOrdinal(ctx, year)
	if err != nil {
		return "", fmt.Errorf("failed to allocate bill number: %w", err)
	}
	util.BillNumbersAllocatedTotal.Inc()
	return FormatBillNumber(a.prefix, year, ordinal), nil
}

// FormatBillNumber pads the ordinal to three digits; larger ordinals keep all digits
func FormatBillNumber(prefix string, year int, ordinal int64) string {
	return fmt.Sprintf("%s-%d-%03d", prefix, year, ordinal)
}
