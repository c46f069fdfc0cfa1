package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ferremas/backoffice/internal/alerts"
	"github.com/ferremas/backoffice/internal/cron"
	"github.com/ferremas/backoffice/internal/currency"
	"github.com/ferremas/backoffice/internal/notify"
	"github.com/ferremas/backoffice/internal/orders"
	"github.com/ferremas/backoffice/internal/payments"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/enums"
	"github.com/ferremas/backoffice/pkg/exchangerates"
	"github.com/ferremas/backoffice/pkg/instance"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/ferremas/backoffice/pkg/metrics"
	"github.com/ferremas/backoffice/pkg/migrate"
	"github.com/ferremas/backoffice/pkg/redis"
	"github.com/ferremas/backoffice/pkg/webpay"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	domainMetrics := metrics.NewDomainMetrics(prometheus.DefaultRegisterer)
	queue, err := notify.NewQueue(notify.QueueParams{
		BufferSize:     cfg.Notifier.BufferSize,
		PublishTimeout: time.Duration(cfg.Notifier.PublishTimeoutMS) * time.Millisecond,
		Sinks:          []notify.Sink{notify.NewRedisSink(redisClient)},
		Logger:         logg,
		Metrics:        domainMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification queue", err)
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
		Alerts:   alerts.NewDispatcher(queue, domainMetrics),
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

	ratesJob, err := cron.NewExchangeRatesJob(cron.ExchangeRatesJobParams{Logger: logg, Rates: currencyService})
	if err != nil {
		logg.Error(context.Background(), "failed to create exchange rates job", err)
		os.Exit(1)
	}
	stalePaymentsJob, err := cron.NewStalePaymentsJob(cron.StalePaymentsJobParams{
		Logger:   logg,
		Payments: paymentService,
		TTL:      cfg.Cron.PendingPaymentTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create stale payments job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	if err := registry.Register(ratesJob, cfg.Cron.ExchangeRatesInterval); err != nil {
		logg.Error(context.Background(), "failed to register exchange rates job", err)
		os.Exit(1)
	}
	if err := registry.Register(stalePaymentsJob, cfg.Cron.StalePaymentsInterval); err != nil {
		logg.Error(context.Background(), "failed to register stale payments job", err)
		os.Exit(1)
	}

	lockPrefix := "cron:" + envOrLocal(cfg.App.Env) + ":"
	locker, err := cron.NewRedisLocker(redisClient, func(job string) string {
		return redisClient.LockKey(lockPrefix + job)
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron locker", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Locker:   locker,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Tick,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	queueDone := make(chan struct{})
	go func() {
		defer close(queueDone)
		_ = queue.Run(ctx)
	}()

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		stop()
		<-queueDone
		os.Exit(1)
	}
	<-queueDone

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
