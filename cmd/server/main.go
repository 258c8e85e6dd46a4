package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-service/config"
	"pos-service/internal/api"
	"pos-service/internal/broker"
	"pos-service/internal/cache"
	"pos-service/internal/clock"
	"pos-service/internal/models"
	"pos-service/internal/redisclient"
	"pos-service/internal/service"
	"pos-service/internal/store"
	"pos-service/internal/util"
	"pos-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.LogLevel); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pos service", zap.String("env", cfg.Server.Env))

	discountPolicy, err := service.ParseDiscountPolicy(cfg.Business.DiscountPolicy)
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	tp, err := util.InitTracer(cfg.Observ.JaegerEndpoint, cfg.Server.Env)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL, store.Options{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		migrateCancel()
		logger.Fatal("Failed to apply schema", zap.Error(err))
	}
	migrateCancel()
	logger.Info("Database connected")

	seeds := make([]models.User, 0, len(cfg.Seed.Employees))
	for _, e := range cfg.Seed.Employees {
		seeds = append(seeds, models.User{ID: e.ID, Username: e.Username, Role: e.Role})
	}
	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := service.SeedEmployees(seedCtx, db, seeds); err != nil {
		seedCancel()
		logger.Fatal("Failed to seed employees", zap.Error(err))
	}
	seedCancel()

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	salesProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer salesProducer.Close()
	alertsProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicAlerts)
	defer alertsProducer.Close()
	logger.Info("Kafka producers initialized",
		zap.String("sales_topic", cfg.Kafka.TopicSales),
		zap.String("alerts_topic", cfg.Kafka.TopicAlerts))

	eventPublisher := broker.NewEventPublisher(salesProducer, alertsProducer)

	clk := clock.Real{}
	saleService := service.NewSaleService(
		db,
		service.NewInventoryGuard(),
		service.NewBillNumberAllocator(),
		eventPublisher,
		redisClient,
		clk,
		service.SaleOptions{
			TxTimeout:      cfg.Business.SaleTxTimeout,
			MaxRetries:     cfg.Business.SaleTxMaxRetries,
			DiscountPolicy: discountPolicy,
			IdempotencyTTL: cfg.Business.IdempotencyTTL,
		},
	)

	searchCache := cache.NewTTLCache[string, []models.CustomerMatch](
		cfg.Business.SearchCacheSize, cfg.Business.SearchCacheTTL, clk)
	customerSearch := service.NewCustomerSearch(db, searchCache)
	catalogService := service.NewCatalogService(db, cfg.Business.LowStockThreshold)
	stockAlerts := service.NewStockAlertService(db, eventPublisher)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	saleConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.ConsumerGroup)
	alertWorker := worker.NewStockAlertWorker(saleConsumer, stockAlerts)
	go func() {
		if err := alertWorker.Start(workerCtx); err != nil && err != context.Canceled {
			logger.Error("Stock alert worker error", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		saleService,
		customerSearch,
		catalogService,
		redisClient,
		map[string]api.Pinger{"postgres": db, "redis": redisClient},
		api.Options{
			SearchDefaultLimit: cfg.Business.SearchDefaultLimit,
			SearchMaxLimit:     cfg.Business.SearchMaxLimit,
			RateLimitMax:       cfg.Business.RateLimitMax,
			RateLimitWindow:    cfg.Business.RateLimitWindow,
		},
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := alertWorker.Stop(); err != nil {
		logger.Error("Failed to stop stock alert worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
