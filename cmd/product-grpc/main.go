package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	product "github.com/ferremas/backoffice/internal/products"
	"github.com/ferremas/backoffice/pkg/config"
	"github.com/ferremas/backoffice/pkg/db"
	"github.com/ferremas/backoffice/pkg/instance"
	"github.com/ferremas/backoffice/pkg/logger"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "product-grpc"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "product-grpc",
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

	productService, err := product.NewService(product.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create product service", err)
		os.Exit(1)
	}

	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		logg.Error(context.Background(), "failed to listen", err)
		os.Exit(1)
	}

	server := grpc.NewServer(grpc.UnaryInterceptor(product.UnaryLoggingInterceptor(logg)))
	product.NewGRPCServer(productService, logg).Register(server)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(product.ProductServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		logg.Info(context.Background(), "shutting down grpc server")
		healthServer.Shutdown()
		server.GracefulStop()
	}()

	logg.Info(logg.WithFields(context.Background(), map[string]any{"port": cfg.GRPC.Port, "instance": instance.GetID()}), "product grpc server listening")
	if err := server.Serve(lis); err != nil {
		logg.Error(context.Background(), "grpc server stopped", err)
		os.Exit(1)
	}
}
