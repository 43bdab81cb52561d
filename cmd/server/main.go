package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/barninzuniversity/DropAi-V2-sub000/internal/adapter/events"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/adapter/handler"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/adapter/metrics"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/adapter/storage"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/config"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/domain"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/core/service"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/logger"
	"github.com/barninzuniversity/DropAi-V2-sub000/internal/port"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []func()
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		log.Info("connections closed")
	}()

	// State backend
	store, closeStore, err := openStateStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open state store", zap.String("backend", cfg.StateBackend), zap.Error(err))
	}
	closers = append(closers, closeStore)
	store = storage.NewTimeoutStore(store, cfg.PersistenceTimeout)

	// Order archive
	var orders port.OrderRepository
	if cfg.ArchiveEnabled() {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)

		if err := db.PingContext(ctx); err != nil {
			log.Fatal("failed to ping mysql", zap.Error(err))
		}
		archive := storage.NewMySQLAdapter(db)
		if err := archive.EnsureSchema(ctx); err != nil {
			log.Fatal("failed to prepare order archive", zap.Error(err))
		}
		orders = archive
		closers = append(closers, func() { db.Close() })
		log.Info("connected to mysql")
	}

	// Engine
	ledger := service.NewInventoryLedger(store, log.Named("ledger"))
	restored := ledger.Restore(ctx)
	cart := service.NewCart(ledger, store, log.Named("cart"))
	lines := cart.Restore(ctx)
	log.Info("state restored", zap.Int("products", restored), zap.Int("cart_lines", lines))

	products := storage.DemoProducts()
	if cfg.CatalogFile != "" {
		if products, err = storage.LoadCatalogFile(cfg.CatalogFile); err != nil {
			log.Fatal("failed to load catalog", zap.Error(err))
		}
	}
	catalog := storage.NewMemoryCatalog(products)
	for _, p := range products {
		if _, err := ledger.Initialize(ctx, p.ID, p.InitialStock); err != nil {
			log.Warn("failed to initialize product stock", zap.String("product_id", p.ID), zap.Error(err))
		}
	}
	log.Info("catalog seeded", zap.Int("products", len(products)))

	// Observers
	prom := metrics.New()
	prom.SeedStock(ledger.Snapshot())
	closers = append(closers, ledger.OnChange(prom.ObserveInventory))

	if cfg.EventsEnabled() {
		publisher := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic), 0, log.Named("events"))
		unsubscribe := publisher.Subscribe(ledger)
		closers = append(closers, func() {
			unsubscribe()
			if err := publisher.Close(); err != nil {
				log.Warn("failed to close kafka writer", zap.Error(err))
			}
		})
		log.Info("publishing inventory events", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	checkout := service.NewCheckoutService(cart, ledger, cfg.OrderQueueSize, log.Named("checkout"), service.WithRecorder(prom))

	// Start worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, checkout.OrderQueue(), orders, prom, log.Named("archive"))
		}(i)
	}
	log.Info("started archive workers", zap.Int("workers", cfg.WorkerCount), zap.Bool("archive_enabled", orders != nil))

	// gRPC server
	grpcServer, healthServer := handler.NewGRPCServer(log.Named("grpc"))
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	go func() {
		log.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("gRPC server error", zap.Error(err))
		}
	}()

	// HTTP server
	httpHandler := handler.NewHTTPHandler(handler.Dependencies{
		Cart:     cart,
		Ledger:   ledger,
		Checkout: checkout,
		Catalog:  catalog,
		Orders:   orders,
		Metrics:  prom.Handler(),
		Logger:   log.Named("http"),
		Timeout:  cfg.RequestTimeout,
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpHandler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(handler.ServiceName, grpc_health_v1.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	log.Info("HTTP server stopped")

	grpcServer.GracefulStop()
	log.Info("gRPC server stopped")

	// Close order queue and wait for workers
	checkout.Close()
	wg.Wait()
	log.Info("workers stopped")
}

func openStateStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (port.StateStore, func(), error) {
	breaker := storage.BreakerSettings{
		Name:        cfg.StateBackend,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	}

	switch cfg.StateBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: 20,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			rdb.Close()
			return nil, nil, err
		}
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		store := storage.NewBreakerStore(storage.NewRedisAdapter(rdb, cfg.RedisPrefix), breaker, log)
		return store, func() { rdb.Close() }, nil

	case config.BackendMongo:
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		if err := client.Ping(ctx, nil); err != nil {
			client.Disconnect(context.Background())
			return nil, nil, err
		}
		log.Info("connected to mongo", zap.String("database", cfg.MongoDatabase))
		store := storage.NewBreakerStore(storage.NewMongoStore(client.Database(cfg.MongoDatabase), cfg.MongoCollection), breaker, log)
		return store, func() { client.Disconnect(context.Background()) }, nil

	default:
		log.Warn("using in-memory state, nothing survives a restart")
		return storage.NewMemoryStore(), func() {}, nil
	}
}

func workerLoop(id int, queue <-chan domain.Order, orders port.OrderRepository, prom *metrics.Prometheus, log *zap.Logger) {
	for order := range queue {
		if orders == nil {
			log.Debug("order settled, archive disabled", zap.Int("worker", id), zap.String("order_id", order.ID))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := orders.SaveOrder(ctx, order); err != nil {
			// stock is already committed; the order is only missing from history
			prom.ArchiveFailed()
			log.Error("failed to archive order",
				zap.Int("worker", id),
				zap.String("order_id", order.ID),
				zap.Error(err))
		} else {
			log.Debug("archived order", zap.Int("worker", id), zap.String("order_id", order.ID))
		}
		cancel()
	}
}
