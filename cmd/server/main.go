package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/fekuna/omnipos-invoice-service/config"
	"github.com/fekuna/omnipos-invoice-service/internal/bootstrap"
	"github.com/fekuna/omnipos-invoice-service/internal/broker"
	catH "github.com/fekuna/omnipos-invoice-service/internal/category/handler"
	compH "github.com/fekuna/omnipos-invoice-service/internal/company/handler"
	compRepoPkg "github.com/fekuna/omnipos-invoice-service/internal/company/repository"
	compUCPkg "github.com/fekuna/omnipos-invoice-service/internal/company/usecase"
	"github.com/fekuna/omnipos-invoice-service/internal/database"
	invH "github.com/fekuna/omnipos-invoice-service/internal/invoice/handler"
	invListenerPkg "github.com/fekuna/omnipos-invoice-service/internal/invoice/listener"
	"github.com/fekuna/omnipos-invoice-service/internal/server"
)

func main() {
	configPath := flag.String("config", "config.yaml", "optional config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	appLogger := bootstrap.NewLogger(cfg)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Connect to database
	db, err := bootstrap.NewPostgres(cfg)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	if cfg.Server.RunMigrations {
		n, err := database.NewMigrator(db, appLogger).Up(ctx)
		if err != nil {
			appLogger.Fatal("Could not apply migrations", zap.Error(err))
		}
		appLogger.Info("Migrations applied", zap.Int("count", n))
	}

	// 4. Optional backends and usecases
	svc := bootstrap.NewServices(ctx, cfg, db, appLogger)
	defer svc.Close()
	compUC := compUCPkg.NewCompanyUseCase(compRepoPkg.NewPGRepository(db), appLogger)

	// 5. Upload listener
	listenerDone := make(chan struct{})
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.UploadsTopic != "" {
		consumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.UploadsTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer consumer.Close()
		appLogger.Info("Connected to Kafka consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.UploadsTopic))
		listener := invListenerPkg.NewUploadListener(consumer, svc.Invoices, appLogger)
		go func() {
			defer close(listenerDone)
			listener.Start(ctx)
		}()
	} else {
		close(listenerDone)
	}

	// 6. HTTP server
	router := server.NewRouter(&cfg.CORS, db, appLogger,
		catH.NewCategoryHandler(svc.Categories, appLogger),
		invH.NewInvoiceHandler(svc.Invoices, appLogger),
		compH.NewCompanyHandler(compUC, appLogger),
	)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("port", cfg.Server.HTTPPort))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// 7. gRPC health server
	lis, err := net.Listen("tcp", cfg.Server.GRPCPort)
	if err != nil {
		appLogger.Fatal("failed to listen", zap.String("port", cfg.Server.GRPCPort), zap.Error(err))
	}
	grpcServer, healthServer := server.NewGRPCServer(appLogger)
	go func() {
		appLogger.Info("Starting gRPC server", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer done()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP shutdown did not complete", zap.Error(err))
	}
	grpcServer.GracefulStop()
	select {
	case <-listenerDone:
	case <-shutdownCtx.Done():
		appLogger.Warn("Upload listener still busy at shutdown")
	}
	svc.Invoices.Wait()
	appLogger.Info("Server stopped")
}
