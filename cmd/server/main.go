package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"tikiti/internal/cache"
	"tikiti/internal/config"
	"tikiti/internal/database"
	"tikiti/internal/handlers"
	"tikiti/internal/repositories"
	"tikiti/internal/services"
	"tikiti/pkg/logger"
)

func main() {
	log := logger.WithComponent("server")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	db, err := database.NewConnection(database.Config{Path: cfg.Database.Path})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis is optional; without it the in-flight guard falls back to a
	// single-process in-memory claim table.
	var guard cache.InFlightGuard = cache.NewMemoryInFlightGuard()
	if cfg.Redis.Addr != "" {
		rdb, err := database.InitRedis(cfg.Redis)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		guard = cache.NewRedisInFlightGuard(rdb)
	}

	orderRepo := repositories.NewOrderRepository(db.DB)
	paymentRepo := repositories.NewPaymentRepository(db.DB)
	couponRepo := repositories.NewCouponRepository(db.DB)
	ticketRepo := repositories.NewTicketRepository(db.DB)
	eventRepo := repositories.NewEventRepository(db.DB)

	watcher := services.NewOrderWatcher()
	couponService := services.NewCouponService(couponRepo, orderRepo)
	checkoutService := services.NewCheckoutService(orderRepo, eventRepo, couponService)
	issuer := services.NewTicketIssuerService(orderRepo, cfg.Ticket.TokenSecret)
	pusher := services.NewDarajaClient(cfg.Daraja)
	gateway := services.NewPaymentGatewayService(
		orderRepo, paymentRepo, pusher, issuer, guard, watcher, cfg.Checkout.PaymentCeiling)
	reconciler := services.NewReconciliationService(orderRepo, paymentRepo, issuer, watcher)
	redemption := services.NewRedemptionService(ticketRepo, issuer)

	router := handlers.NewRouter(handlers.RouterConfig{
		Checkout: handlers.NewCheckoutHandler(checkoutService),
		Orders:   handlers.NewOrderHandler(orderRepo, gateway, watcher),
		Payments: handlers.NewPaymentHandler(reconciler, redemption),
		Events:   handlers.NewEventHandler(eventRepo),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	expiry := services.NewExpiryWorker(orderRepo, watcher,
		cfg.Checkout.PaymentCeiling, cfg.Checkout.ExpirySweepInterval)
	go expiry.Run(ctx)

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
