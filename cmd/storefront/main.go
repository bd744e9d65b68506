package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/accounts"
	"github.com/fjod/storefront/internal/admin"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/config"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"github.com/fjod/storefront/internal/grpcserver"
	h "github.com/fjod/storefront/internal/http"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/payment"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	checkoutSessionTTL = time.Hour
	sweepInterval      = 5 * time.Minute
	outboxTick         = time.Second
	notifierGroupID    = "storefront-notifier"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("storefront exited with error", "error", err)
		_ = tp.Shutdown(context.Background())
		os.Exit(1)
	}
	_ = tp.Shutdown(context.Background())
	log.Info("storefront stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	rules, err := cfg.PricingRules()
	if err != nil {
		return err
	}

	// Catalog
	products, err := openCatalog(cfg)
	if err != nil {
		return err
	}
	defer products.Close()

	// Cart
	cartRepo, closeCart, err := openCartRepository(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeCart()

	var cache cart.Cache = cart.NoopCache{}
	if cfg.Backends.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Backends.RedisAddr,
			Password: cfg.Backends.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, cart cache disabled", "addr", cfg.Backends.RedisAddr, "error", err)
		} else {
			log.Info("redis ping succeeded", "addr", cfg.Backends.RedisAddr)
			cache = cart.NewRedisCache(redisClient)
		}
	}
	carts := cart.NewService(cartRepo, cache, products, rules, cfg.Shop.MaxLineQuantity)

	// Accounts
	pointsUnit, err := decimal.NewFromString(cfg.Shop.PointsUnit)
	if err != nil {
		return err
	}
	tiers := make([]accounts.TierLevel, 0, len(cfg.Shop.Tiers))
	for _, t := range cfg.Shop.Tiers {
		tiers = append(tiers, accounts.TierLevel{Tier: domain.LoyaltyTier(t.Name), MinPoints: t.MinPoints})
	}
	accts := accounts.NewService(accounts.NewMemoryStore(), accounts.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL), accounts.Options{
		Tiers:         tiers,
		PointsUnit:    pointsUnit,
		AdminUsername: cfg.Auth.AdminUsername,
		AdminPassword: cfg.Auth.AdminPassword,
	})

	// Orders
	orderRepo, err := openOrders(cfg)
	if err != nil {
		return err
	}
	defer orderRepo.Close()

	if cfg.Shop.SeedDemoData {
		if err := accts.SeedDemoUser(ctx, cfg.Auth.DemoEmail, cfg.Auth.DemoPassword); err != nil {
			return err
		}
		if err := orders.Seed(ctx, orderRepo, orders.DemoOrders(accounts.DemoUserID)); err != nil {
			return err
		}
	}

	// Events
	outbox := events.NewMemoryOutbox()
	var publisher events.Publisher = events.LogPublisher{}
	if len(cfg.Backends.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Backends.KafkaTopic, cfg.Backends.KafkaBrokers...)
		log.Info("publishing order events to kafka", "topic", cfg.Backends.KafkaTopic)
	}
	defer publisher.Close()

	bgCtx, cancelBackground := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBackground()

	if len(cfg.Backends.KafkaBrokers) > 0 {
		consumer := events.NewConsumer(cfg.Backends.KafkaTopic, notifierGroupID, cfg.Backends.KafkaBrokers...)
		consumer.Handle(events.TypeOrderPlaced, events.NotifyOrderPlaced)
		defer consumer.Close()
		go consumer.Run(bgCtx)
	}
	pollerDone := make(chan struct{})
	go func() {
		defer close(pollerDone)
		events.NewPoller(outbox, publisher, outboxTick).Run(bgCtx)
	}()

	// Checkout
	gateway := payment.NewBreakerGateway(payment.StubGateway{}, 5, 30*time.Second)
	checkoutSvc := checkout.NewService(carts, accts, products, orderRepo, gateway, outbox, rules)
	go sweepCheckouts(bgCtx, checkoutSvc)

	// HTTP
	timeout := cfg.RequestTimeout
	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(products, timeout),
		Auth:     h.NewAuthHandler(accts, carts, timeout, cfg.Env == "prod"),
		Cart:     h.NewCartHandler(carts, timeout),
		Checkout: h.NewCheckoutHandler(checkoutSvc, timeout),
		Profile:  h.NewProfileHandler(accts, orderRepo, timeout),
		Admin:    h.NewAdminHandler(admin.NewService(products, orderRepo, cfg.Shop.LowStockThreshold), timeout),
	}, accts, h.RouterOptions{RequestTimeout: timeout, MaxBodyBytes: cfg.MaxRequestBodySize})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	grpcSrv := grpcserver.New()

	errCh := make(chan error, 2)
	go func() {
		log.Info("storefront starting", "http_port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down server...")
	case serveErr = <-errCh:
		log.Error("server error", "error", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	grpcSrv.Drain()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	grpcSrv.Stop(shutdownCtx)

	cancelBackground()
	<-pollerDone
	return serveErr
}

func openCatalog(cfg *config.Config) (catalog.Store, error) {
	if cfg.Backends.Catalog != config.BackendSQLite {
		return catalog.NewMemoryStore(catalog.DemoProducts()...), nil
	}
	store, err := catalog.NewSQLiteStore(cfg.Backends.CatalogDBPath)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(); err != nil {
		store.Close()
		return nil, err
	}
	slog.Info("catalog database ready", "path", cfg.Backends.CatalogDBPath)
	return store, nil
}

func openCartRepository(ctx context.Context, cfg *config.Config) (cart.Repository, func(), error) {
	if cfg.Backends.Cart != config.BackendMongo {
		return cart.NewMemoryRepository(), func() {}, nil
	}
	db, err := cart.ConnectMongoDB(ctx, cfg.Backends.MongoURI, cfg.Backends.MongoDBName)
	if err != nil {
		return nil, nil, err
	}
	disconnect := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = db.Client().Disconnect(ctx)
	}

	repo := cart.NewMongoRepository(db)
	if err := repo.CreateIndexes(ctx); err != nil {
		disconnect()
		return nil, nil, err
	}
	slog.Info("connected to mongodb", "db", cfg.Backends.MongoDBName)
	return repo, disconnect, nil
}

func openOrders(cfg *config.Config) (orders.Repository, error) {
	if cfg.Backends.Orders != config.BackendPostgres {
		return orders.NewMemoryRepository(), nil
	}
	pg := cfg.Backends.Postgres
	repo, err := orders.NewPostgresRepository(orders.Credentials{
		Host:     pg.Host,
		Port:     pg.Port,
		User:     pg.User,
		Password: pg.Password,
		DBName:   pg.DBName,
	})
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(); err != nil {
		repo.Close()
		return nil, err
	}
	slog.Info("connected to postgres", "host", pg.Host, "db", pg.DBName)
	return repo, nil
}

func sweepCheckouts(ctx context.Context, svc *checkout.Service) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := svc.Sweep(checkoutSessionTTL); n > 0 {
				logger.FromContext(ctx).Info("expired checkout sessions removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
