package service

import (
	"context"
	"math"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/store"
	"pos-service/internal/util"
)

// ListSalesRequest filters the sales history
type ListSalesRequest struct {
	UserID    string     `form:"userId"`
	StartDate *time.Time `form:"startDate" time_format:"2006-01-02"`
	EndDate   *time.Time `form:"endDate" time_format:"2006-01-02"`
	Page      int        `form:"page,default=1" binding:"min=1"`
	Limit     int        `form:"limit,default=20" binding:"min=1,max=100"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// ListSalesResponse is one page of sales, newest first
type ListSalesResponse struct {
	Sales      []models.Sale `json:"sales"`
	Pagination Pagination    `json:"pagination"`
}

// GetSale retrieves a sale by ID
func (s *SaleService) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.GetSale")
	defer span.End()

	return s.store.GetSaleByID(ctx, id)
}

// ListSales retrieves a page of sales
func (s *SaleService) ListSales(ctx context.Context, req *ListSalesRequest) (*ListSalesResponse, error) {
	ctx, span := util.StartSpan(ctx, "SaleService.ListSales")
	defer span.End()

	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 {
		req.Limit = 20
	}

	// endDate names a calendar day; include all of it
	var endDate *time.Time
	if req.EndDate != nil {
		end := req.EndDate.Add(24*time.Hour - time.Nanosecond)
		endDate = &end
	}

	sales, total, err := s.store.ListSales(ctx, store.SaleFilter{
		UserID:    req.UserID,
		StartDate: req.StartDate,
		EndDate:   endDate,
		Page:      req.Page,
		Limit:     req.Limit,
	})
	if err != nil {
		return nil, err
	}

	return &ListSalesResponse{
		Sales: sales,
		Pagination: Pagination{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: int(math.Ceil(float64(total) / float64(req.Limit))),
		},
	}, nil
}
