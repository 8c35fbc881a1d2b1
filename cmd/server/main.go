package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/wealthflow-portfolio/internal/adapter/events"
	grpcadapter "github.com/simaogato/wealthflow-portfolio/internal/adapter/grpc"
	httpadapter "github.com/simaogato/wealthflow-portfolio/internal/adapter/http"
	"github.com/simaogato/wealthflow-portfolio/internal/adapter/pricing"
	"github.com/simaogato/wealthflow-portfolio/internal/adapter/repository/memory"
	"github.com/simaogato/wealthflow-portfolio/internal/adapter/repository/postgres"
	"github.com/simaogato/wealthflow-portfolio/internal/config"
	"github.com/simaogato/wealthflow-portfolio/internal/domain"
	"github.com/simaogato/wealthflow-portfolio/internal/logging"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/analytics"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/goal"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/position"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/seeder"
	"github.com/simaogato/wealthflow-portfolio/internal/usecase/valuation"
)

const shutdownTimeout = 10 * time.Second

// stores groups the repositories the services run on
type stores struct {
	holdings     domain.HoldingRepository
	transactions domain.TransactionRepository
	goals        domain.GoalRepository
	prices       domain.PriceRepository
	lookup       domain.PriceLookup
	close        func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	ctx := context.Background()

	// 1. Setup storage (postgres when configured, in-memory otherwise)
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer st.close()

	// 2. Price lookup: store -> rate limit -> cache
	limited := pricing.NewRateLimited(st.lookup, pricing.WithRateLimit(cfg.PriceRateLimit))
	prices, err := pricing.NewCached(limited, 0, cfg.PriceCacheTTL)
	if err != nil {
		logger.Fatal("Failed to create price cache", zap.Error(err))
	}
	defer prices.Close()

	// 3. Event publisher
	var publisher domain.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopicPrefix, logger)
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
		logger.Info("Publishing events to kafka", zap.Strings("brokers", cfg.KafkaBrokers))
	} else {
		publisher = events.NewLogPublisher(logger)
	}

	// 4. Initialize Services (Use Cases)
	valuationOpts := valuation.Options{LookupTimeout: cfg.PriceLookupTimeout}
	valuationService := valuation.NewValuationService(st.holdings, prices, valuationOpts, logger)
	analyticsService := analytics.NewAnalyticsService(st.holdings, st.transactions, prices, valuationOpts,
		analytics.Options{PercentPlaces: cfg.PercentPlaces, TopExpenses: cfg.TopExpenses}, logger)
	goalService := goal.NewGoalService(st.goals, analyticsService, publisher,
		goal.Options{TrailingBuckets: cfg.TrailingBuckets}, logger)
	positionService := position.NewPositionService(st.holdings, st.transactions, st.prices, publisher, logger)
	positionService.PriceCache = prices

	if cfg.SeedDemo {
		demo := seeder.NewDemoSeeder(st.holdings, st.transactions, st.goals, st.prices, time.Now)
		if err := demo.Seed(ctx); err != nil {
			logger.Fatal("Failed to seed demo portfolio", zap.Error(err))
		}
		logger.Info("Demo portfolio seeded")
	}

	// 5. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)
	grpcadapter.RegisterPortfolioServer(grpcServer, grpcadapter.NewServer(
		valuationService, analyticsService, goalService, positionService, cfg.DefaultCurrency))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Fatal("Failed to listen", zap.String("port", cfg.GRPCPort), zap.Error(err))
	}
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", lis.Addr().String()))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("Failed to serve gRPC server", zap.Error(err))
		}
	}()

	// 6. Start HTTP Server
	api := httpadapter.NewServer(valuationService, analyticsService, goalService, positionService, logger, cfg.APIToken)
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.R,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to serve HTTP server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(logger, grpcServer, httpServer)
}

// openStores connects to postgres when DATABASE_URL is set and falls back to the in-memory store
func openStores(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using the in-memory store")
		store := memory.NewStore()
		return &stores{
			holdings:     store,
			transactions: store,
			goals:        store,
			prices:       store,
			lookup:       store,
			close:        func() error { return nil },
		}, nil
	}

	db, err := postgres.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	priceRepo := postgres.NewPriceRepository(db)
	return &stores{
		holdings:     postgres.NewHoldingRepository(db),
		transactions: postgres.NewTransactionRepository(db),
		goals:        postgres.NewGoalRepository(db),
		prices:       priceRepo,
		lookup:       priceRepo,
		close:        db.Close,
	}, nil
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down both servers
func waitForShutdown(logger *zap.Logger, grpcServer *grpclib.Server, httpServer *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	logger.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
}
