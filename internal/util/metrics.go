package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sales_created_total",
		Help: "Total number of sales committed",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sales_failed_total",
		Help: "Total number of rejected or aborted sales",
	}, []string{"reason"})

	SaleTxRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_tx_retries_total",
		Help: "Total number of sale transactions retried after a transient conflict",
	})

	SaleLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sale_create_latency_seconds",
		Help:    "Latency of sale creation including the store transaction",
		Buckets: prometheus.DefBuckets,
	})

	SaleRevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sale_revenue_total",
		Help: "Sum of final sale totals",
	})

	StockRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_rejections_total",
		Help: "Total number of sale lines rejected by the inventory guard",
	}, []string{"reason"})

	BillNumbersAllocatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bill_numbers_allocated_total",
		Help: "Total number of bill numbers handed out, including rolled back ones",
	})

	SearchCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "customer_search_cache_hits_total",
		Help: "Phone prefix lookups answered from cache",
	})

	SearchCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "customer_search_cache_misses_total",
		Help: "Phone prefix lookups that ran a range scan",
	})

	LowStockAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "low_stock_alerts_total",
		Help: "Total number of low stock alerts raised after sales",
	})

	EventsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_events_dropped_total",
		Help: "Messages committed after the handler kept failing",
	}, []string{"topic"})

	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "http_rate_limited_total",
		Help: "Total number of requests rejected by the rate limiter",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
