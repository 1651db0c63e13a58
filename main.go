package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"storefront/internal/auth"
	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/logging"
	"storefront/internal/metrics"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/payment"
	"storefront/internal/server"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
	"storefront/internal/store/mongostore"
	"storefront/internal/store/redisstore"
	"storefront/internal/users"
)

func main() {
	cfg := config.Load()

	logger := logging.MustNew(cfg.ServiceName, cfg.AppEnv, cfg.LogFile)
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var eventLog store.EventLog
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, webhook dedupe falls back to the database", zap.Error(err))
		} else {
			eventLog = redisstore.NewEventLog(rdb, redisstore.DefaultEventTTL)
		}
	}

	var (
		repos store.Repositories
		ping  handlers.Pinger
	)
	switch cfg.StoreDriver {
	case "memory":
		repos = memstore.New()
		logger.Warn("using in-memory store, data is lost on restart")
	default:
		client, err := database.Connect(ctx, cfg.MongoURI)
		if err != nil {
			logger.Fatal("mongo connect failed", zap.Error(err))
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()

		db := client.Database(cfg.DBName)
		logger.Info("mongo connected", zap.String("db", db.Name()))
		if err := database.EnsureIndexes(ctx, db, logger); err != nil {
			logger.Warn("index bootstrap incomplete", zap.Error(err))
		}
		repos = mongostore.New(db, eventLog)
		ping = func(ctx context.Context) error { return database.Ping(ctx, db) }
	}
	if eventLog != nil {
		repos.Events = eventLog
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var gateway payment.Gateway
	if cfg.PaymentsEnabled() {
		gateway = payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, orders require manual payment")
	}

	var notifier notify.Notifier = notify.Disabled{}
	if cfg.ResendAPIKey != "" {
		notifier = notify.NewResendNotifier(notify.ResendConfig{
			APIKey:        cfg.ResendAPIKey,
			From:          cfg.ResendFromEmail,
			VerifiedEmail: cfg.ResendVerifiedEmail,
			ReplyTo:       cfg.ResendReplyTo,
		}, logger)
	} else {
		logger.Warn("RESEND_API_KEY not set, emails are skipped")
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	}
	defer publisher.Close()

	authService := auth.NewService(repos, auth.Config{
		Secret:     cfg.JWTSecret,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, logger)
	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logger.Error("ensure admin failed", zap.Error(err))
		}
	}

	router := server.NewRouter(server.Deps{
		Auth:    authService,
		Catalog: catalog.NewService(repos, logger),
		Cart:    cart.NewService(repos, logger),
		Orders: orders.NewService(orders.Deps{
			Repos:     repos,
			Gateway:   gateway,
			Currency:  cfg.PaymentCurrency,
			Notifier:  notifier,
			Publisher: publisher,
			Metrics:   m,
			Logger:    logger,
		}),
		Users:         users.NewService(repos, logger),
		Logger:        logger,
		Metrics:       m,
		Gatherer:      reg,
		Ping:          ping,
		Production:    cfg.Production(),
		FrontendURL:   cfg.FrontendURL,
		AuthRateLimit: cfg.AuthRateLimit,
		AuthRateBurst: cfg.AuthRateBurst,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
		return
	}
	logger.Info("http server stopped")
}
