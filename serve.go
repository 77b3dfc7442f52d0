package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Aayush8356/Vendora/internal/catalog"
	"github.com/Aayush8356/Vendora/internal/config"
	deliverygrpc "github.com/Aayush8356/Vendora/internal/delivery/grpc"
	deliveryhttp "github.com/Aayush8356/Vendora/internal/delivery/http"
	"github.com/Aayush8356/Vendora/internal/entity"
	"github.com/Aayush8356/Vendora/internal/messaging"
	"github.com/Aayush8356/Vendora/internal/messaging/kafka"
	"github.com/Aayush8356/Vendora/internal/messaging/watermill"
	"github.com/Aayush8356/Vendora/internal/repository"
	"github.com/Aayush8356/Vendora/internal/repository/memory"
	"github.com/Aayush8356/Vendora/internal/repository/postgres"
	"github.com/Aayush8356/Vendora/internal/repository/redis"
	"github.com/Aayush8356/Vendora/internal/service"
)

const sweepInterval = time.Minute

func serve(ctx context.Context, cfg *config.Config) error {
	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.Migrate(db); err != nil {
		return err
	}

	productRepo := postgres.NewProductRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	eventStore := postgres.NewEventStore(db)

	catalogSvc := service.NewCatalogService(productRepo, categoryRepo)
	seedData, err := catalog.Load()
	if err != nil {
		return err
	}
	if err := catalogSvc.Seed(ctx, seedData); err != nil {
		return err
	}

	// --- Cart snapshots ---
	cartStore, closeStore, err := newCartStore(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer closeStore()

	// --- Broker ---
	var broker messaging.Broker
	if len(cfg.KafkaBrokers) > 0 {
		broker = kafka.NewKafkaBroker(cfg.KafkaBrokers)
		slog.Info("Using Kafka broker", "brokers", cfg.KafkaBrokers)
	} else {
		broker = watermill.NewChannelBroker(slog.Default())
		slog.Info("Using in-process broker")
	}
	defer broker.Close()

	// --- Services ---
	rules := cfg.PricingRules()
	persistence, err := service.NewCartPersistence(cartStore, rules, cfg.CartTTL)
	if err != nil {
		return err
	}
	cartSvc := service.NewCartService(productRepo, persistence, eventStore, broker, service.CartServiceConfig{
		Rules:       rules,
		CartTTL:     cfg.CartTTL,
		IdleTimeout: cfg.CartIdleTimeout,
	})
	orderSvc := service.NewOrderService(orderRepo, cartSvc, eventStore, broker)

	// --- HTTP API ---
	limiter := deliveryhttp.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	mux := http.NewServeMux()
	deliveryhttp.NewHandler(catalogSvc, cartSvc, orderSvc, cfg.CartTTL).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           deliveryhttp.EnableCORS(deliveryhttp.LogRequests(limiter.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// --- gRPC health ---
	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}
	healthServer := deliverygrpc.NewHealthServer()

	// --- Start everything ---
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Consumer: carts.updated → activity log
	go broker.Consume(ctx, messaging.TopicCartsUpdated, "vendora-carts", func(ctx context.Context, payload []byte) error {
		var event entity.CartUpdated
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal CartUpdated event: %w", err)
		}
		slog.Debug("Cart updated", "session_id", event.SessionID, "command", event.Command, "items", event.ItemCount, "total", event.Total)
		return nil
	})

	// Consumer: orders.placed → OrderService (confirms order)
	go broker.Consume(ctx, messaging.TopicOrdersPlaced, "vendora-orders", orderSvc.HandleOrderPlaced)

	go limiter.Run(ctx, sweepInterval, 3*time.Minute)
	go sweep(ctx, cartSvc, cartStore)

	go func() {
		if err := healthServer.Serve(grpcLis); err != nil {
			slog.Error("gRPC server error", "err", err)
			cancel()
		}
	}()

	go func() {
		slog.Info("🚀 HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	slog.Info("🔄 Consumers started")

	<-ctx.Done()
	slog.Info("Shutting down...")
	healthServer.SetServing(false)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "err", err)
	}
	healthServer.Stop()
	return nil
}

// newCartStore opens the snapshot backend chosen by CART_STORE.
func newCartStore(ctx context.Context, cfg *config.Config, db *sqlx.DB) (repository.CartStore, func(), error) {
	switch cfg.CartStore {
	case config.CartStoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redis.NewCartStore(client), func() { client.Close() }, nil
	case config.CartStoreMemory:
		return memory.NewCartStore(), func() {}, nil
	default:
		return postgres.NewCartStore(db), func() {}, nil
	}
}

// sweep evicts idle cart sessions and purges expired snapshots from stores
// without native expiry.
func sweep(ctx context.Context, carts *service.CartService, store repository.CartStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	purger, _ := store.(repository.CartPurger)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := carts.Sweep(now.UTC()); n > 0 {
				slog.Debug("Evicted idle cart sessions", "count", n, "active", carts.ActiveSessions())
			}
			if purger == nil {
				continue
			}
			if n, err := purger.PurgeExpired(ctx); err != nil {
				slog.Error("Failed to purge expired carts", "err", err)
			} else if n > 0 {
				slog.Info("Purged expired carts", "count", n)
			}
		}
	}
}
