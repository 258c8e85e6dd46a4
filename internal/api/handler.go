package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Request headers
const (
	HeaderEmployeeID     = "X-Employee-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// SaleService is the sale engine as seen by the HTTP layer
type SaleService interface {
	CreateSale(ctx context.Context, req *service.CreateSaleRequest, employeeID string) (*models.Sale, error)
	GetSale(ctx context.Context, id string) (*models.Sale, error)
	ListSales(ctx context.Context, req *service.ListSalesRequest) (*service.ListSalesResponse, error)
}

// CustomerSearch answers phone prefix lookups
type CustomerSearch interface {
	SearchByPhonePrefix(ctx context.Context, prefix string, limit int) ([]models.CustomerMatch, error)
}

// Catalog is the product surface
type Catalog interface {
	CreateProduct(ctx context.Context, req *service.CreateProductRequest) (*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]models.Product, error)
}

// RateLimiter counts requests per client
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (redisclient.RateLimitResult, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes request defaults and limits
type Options struct {
	SearchDefaultLimit int
	SearchMaxLimit     int
	RateLimitMax       int
	RateLimitWindow    time.Duration
}

// Handler contains HTTP handlers
type Handler struct {
	sales   SaleService
	search  CustomerSearch
	catalog Catalog
	limiter RateLimiter
	checks  map[string]Pinger
	opts    Options
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler. limiter may be nil to disable
// rate limiting.
func NewHandler(
	sales SaleService,
	search CustomerSearch,
	catalog Catalog,
	limiter RateLimiter,
	checks map[string]Pinger,
	opts Options,
) *Handler {
	if opts.SearchDefaultLimit < 1 {
		opts.SearchDefaultLimit = 10
	}
	if opts.SearchMaxLimit < opts.SearchDefaultLimit {
		opts.SearchMaxLimit = opts.SearchDefaultLimit
	}
	return &Handler{
		sales:   sales,
		search:  search,
		catalog: catalog,
		limiter: limiter,
		checks:  checks,
		opts:    opts,
		logger:  util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	if h.limiter != nil && h.opts.RateLimitMax > 0 {
		v1.Use(rateLimitMiddleware(h.limiter, h.opts.RateLimitMax, h.opts.RateLimitWindow, h.logger))
	}
	{
		v1.POST("/sales", h.createSale)
		v1.GET("/sales", h.listSales)
		v1.GET("/sales/search/phone", h.searchCustomers)
		v1.GET("/sales/:id", h.getSale)

		v1.POST("/products", h.createProduct)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/reports/low-stock", h.lowStock)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.checks {
		if err := dep.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createSale handles sale creation
func (h *Handler) createSale(c *gin.Context) {
	var req service.CreateSaleRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	req.IdempotencyKey = c.GetHeader(HeaderIdempotencyKey)

	sale, err := h.sales.CreateSale(c.Request.Context(), &req, c.GetHeader(HeaderEmployeeID))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sale":    sale,
		"message": "Stock updated",
	})
}

// listSales handles the paginated sales history
func (h *Handler) listSales(c *gin.Context) {
	var req service.ListSalesRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		writeBindError(c, err)
		return
	}

	resp, err := h.sales.ListSales(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getSale handles get sale by ID
func (h *Handler) getSale(c *gin.Context) {
	sale, err := h.sales.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sale)
}

// searchCustomers handles phone prefix lookups
func (h *Handler) searchCustomers(c *gin.Context) {
	limit := h.opts.SearchDefaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSONError(c, http.StatusBadRequest, "ValidationError", "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > h.opts.SearchMaxLimit {
		limit = h.opts.SearchMaxLimit
	}

	matches, err := h.search.SearchByPhonePrefix(c.Request.Context(), c.Query("prefix"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, matches)
}

// createProduct handles catalog inserts
func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// getProduct handles get product by ID
func (h *Handler) getProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

type lowStockQuery struct {
	Threshold *int `form:"threshold" binding:"omitempty,min=1"`
}

// lowStock handles the low stock report
func (h *Handler) lowStock(c *gin.Context) {
	var q lowStockQuery

	if err := c.ShouldBindQuery(&q); err != nil {
		writeBindError(c, err)
		return
	}

	threshold := -1
	if q.Threshold != nil {
		threshold = *q.Threshold
	}

	products, err := h.catalog.ListLowStock(c.Request.Context(), threshold)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, products)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}

// requestLogger writes one structured line per request
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
