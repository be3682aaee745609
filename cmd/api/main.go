package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/georgemunganga/shopu-backend/internal/config"
	"github.com/georgemunganga/shopu-backend/internal/modules/auth"
	"github.com/georgemunganga/shopu-backend/internal/modules/catalog"
	"github.com/georgemunganga/shopu-backend/internal/modules/order"
	"github.com/georgemunganga/shopu-backend/internal/modules/user"
	"github.com/georgemunganga/shopu-backend/internal/platform/logging"
	"github.com/georgemunganga/shopu-backend/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(logging.Options{Mode: cfg.LogMode, Filename: cfg.LogFile})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	bus := EventBus.New()

	// ── Identity ────────────────────────────────────────────
	userService := user.NewService(be.users, logger.Named("user"))
	authService := auth.NewService(be.users, cfg.JWTSecret)
	authn := auth.NewMiddleware(authService, logger.Named("auth")).Authenticate

	// ── Catalog & Orders ────────────────────────────────────
	catalogService := catalog.NewService(be.products, logger.Named("catalog"))
	orderService := order.NewService(be.orders,
		order.WithLogger(logger.Named("order")),
		order.WithMetrics(m),
		order.WithEventBus(bus),
		order.WithTimeouts(cfg.StatusWriteTimeout, cfg.StockTxTimeout),
		order.WithBatchConcurrency(cfg.BatchConcurrency),
	)

	hub := order.NewHub(orderService, bus, logger.Named("stream"))
	if err := hub.Start(); err != nil {
		return err
	}
	defer hub.Stop()

	if cfg.SeedDemo {
		if err := seedDemo(ctx, be.users, userService, catalogService); err != nil {
			return err
		}
		logger.Info("demo data loaded")
	}

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(m.Middleware)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", m.Handler())

	user.NewHandler(userService, authn).RegisterRoutes(router)
	catalog.NewHandler(catalogService, authn).RegisterRoutes(router)
	order.NewHandler(orderService, hub, authn).RegisterRoutes(router)

	// ── Start Server ────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("shop API listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
