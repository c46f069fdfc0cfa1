package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ferremas/backoffice/api/controllers"
	"github.com/ferremas/backoffice/api/routes"
	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/internal/auth"
	"github.com/ferremas/backoffice/internal/currency"
	"github.com/ferremas/backoffice/internal/inventory"
	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/internal/orders"
	"github.com/ferremas/backoffice/internal/payments"
	product "github.com/ferremas/backoffice/internal/products"
	"github.com/ferremas/backoffice/internal/users"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/exchangerates"
	"github.com/ferremas/backoffice/pkg/instance"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/metrics"
	"github.com/ferremas/backoffice/pkg/migrate"
	"github.com/ferremas/backoffice/pkg/pubsub"
	"github.com/ferremas/backoffice/pkg/redis"
	"github.com/ferremas/backoffice/pkg/webpay"
)

const shutdownTimeout = 15 * time.Second

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

	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	domainMetrics := metrics.NewDomainMetrics(registry)

	readiness := map[string]controllers.Pinger{"database": dbClient, "redis": redisClient}
	sinks := []notify.Sink{notify.NewRedisSink(redisClient)}
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		sinks = append(sinks, notify.NewPubSubSink(pubsubClient))
		readiness["pubsub"] = pubsubClient
	}

	queue, err := notify.NewQueue(notify.QueueParams{
		BufferSize:     cfg.Notifier.BufferSize,
		PublishTimeout: time.Duration(cfg.Notifier.PublishTimeoutMS) * time.Millisecond,
		Sinks:          sinks,
		Logger:         logg,
		Metrics:        domainMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification queue", err)
		os.Exit(1)
	}
	alertDispatcher := alerts.NewDispatcher(queue, domainMetrics)

	userService, err := users.NewService(users.ServiceParams{
		Repo:     users.NewRepository(dbClient.DB()),
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create user service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Accounts:  userService,
		UserRepo:  users.NewRepository(dbClient.DB()),
		Limiter:   redisClient,
		JWTConfig: cfg.JWT,
		RateLimit: cfg.AuthRateLimit,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	productService, err := product.NewService(product.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	stockService, err := inventory.NewService(inventory.ServiceParams{
		DB:     dbClient,
		Alerts: alertDispatcher,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	currencyService, err := currency.NewService(currency.ServiceParams{
		DB:        dbClient.DB(),
		Source:    exchangerates.NewClient(cfg.Currency, logg),
		Base:      enums.Currency(strings.ToUpper(cfg.Currency.BaseCurrency)),
		Freshness: cfg.Currency.Freshness(),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create currency service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		TX:       dbClient,
		Notifier: queue,
		Alerts:   alertDispatcher,
		Metrics:  domainMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create order service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		DB:        dbClient,
		Orders:    orderService,
		Gateway:   webpay.NewClient(cfg.Webpay, logg),
		Converter: currencyService,
		Notifier:  queue,
		Logger:    logg,
		ReturnURL: cfg.Webpay.ReturnURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		_ = queue.Run(ctx)
	}()

	// No write timeout: the event stream holds responses open.
	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
		Handler: routes.NewRouter(routes.Dependencies{
			Config:     cfg,
			Logger:     logg,
			Readiness:  readiness,
			RateLimits: redisClient,
			Metrics:    promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
			Auth:       authService,
			Users:      userService,
			Products:   productService,
			Orders:     orderService,
			Stock:      stockService,
			Payments:   paymentService,
			Currency:   currencyService,
			Events:     notify.NewRedisStream(redisClient),
		}),
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			stop()
			<-queueDone
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "api server shutdown failed", err)
	}
	<-queueDone
	logg.Info(shutdownCtx, "api server shut down gracefully")
}
