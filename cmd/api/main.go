package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/servicecart/api"
	"github.com/angelmondragon/servicecart/api/routes"
	"github.com/angelmondragon/servicecart/internal/bookings"
	"github.com/angelmondragon/servicecart/internal/cart"
	"github.com/angelmondragon/servicecart/pkg/config"
	"github.com/angelmondragon/servicecart/pkg/db"
	"github.com/angelmondragon/servicecart/pkg/env"
	"github.com/angelmondragon/servicecart/pkg/instance"
	"github.com/angelmondragon/servicecart/pkg/logger"
	"github.com/angelmondragon/servicecart/pkg/metrics"
	"github.com/angelmondragon/servicecart/pkg/migrate"
	"github.com/angelmondragon/servicecart/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	cartMetrics := metrics.NewCartMetrics(reg)

	slot, err := selectSlot(cfg, dbClient, redisClient)
	if err != nil {
		return err
	}

	registry, err := cart.NewRegistry(cart.RegistryParams{
		Backend:        slot,
		Logger:         logg,
		Metrics:        cartMetrics,
		PersistTimeout: cfg.Cart.PersistTimeout,
		MaxOpen:        cfg.Cart.MaxOpen,
	})
	if err != nil {
		return err
	}

	bookingService, err := bookings.NewService(bookings.ServiceParams{
		Repo:    bookings.NewRepository(dbClient.DB()),
		Carts:   registry,
		Logger:  logg,
		Metrics: cartMetrics,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Deps{
		DB:       dbClient,
		Redis:    redisClient,
		Carts:    registry,
		Bookings: bookingService,
		Metrics:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	addr := ":" + env.First(cfg.App.Port, "PORT")
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"addr":         addr,
		"instance":     instance.ID(),
		"cart_backend": cfg.Cart.NormalizedBackend(),
		"admin":        cfg.App.AdminEnabled(),
	})
	logg.Info(logCtx, "starting api server")

	if err := api.Serve(ctx, api.NewServer(addr, handler), nil, api.DefaultShutdownGrace); err != nil {
		return err
	}
	logg.Info(logCtx, "api server stopped")
	return nil
}

// selectSlot picks where carts are persisted. Config validation guarantees redis is present
// when the redis backend is selected.
func selectSlot(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client) (cart.Slot, error) {
	switch cfg.Cart.NormalizedBackend() {
	case config.CartBackendRedis:
		if redisClient == nil {
			return nil, errRedisRequired
		}
		return cart.NewRedisSlot(redisClient, cfg.Cart.SlotTTL), nil
	case config.CartBackendMemory:
		return cart.NewMemorySlot(), nil
	default:
		return cart.NewSQLSlot(dbClient.DB()), nil
	}
}
