package navigationservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"smartparking/internal/common/auth"
	"smartparking/internal/common/config"
	"smartparking/internal/common/db"
	"smartparking/internal/common/log"
	"smartparking/internal/common/rabbitmq"
	commonws "smartparking/internal/common/ws"
	"smartparking/internal/navigation/adapters/api"
	"smartparking/internal/navigation/adapters/positions"
	"smartparking/internal/navigation/adapters/queue"
	"smartparking/internal/navigation/adapters/repository"
	"smartparking/internal/navigation/adapters/routing"
	navws "smartparking/internal/navigation/adapters/ws"
	"smartparking/internal/navigation/app"
)

// Run starts the navigation service and blocks until ctx is canceled or the
// HTTP server fails.
func Run(ctx context.Context, maxConcurrent int) error {
	logger := log.New("navigation-service")
	log.Info(ctx, logger, "init_start", "Navigation Service initializing...")

	if err := godotenv.Load(); err != nil {
		log.Info(ctx, logger, "env_file_missing", "No .env file found (using environment variables)")
	}

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error(ctx, logger, "config_load_fail", "Failed to load config file", err)
		return err
	}
	log.Info(ctx, logger, "config_loaded", "Configuration loaded successfully")

	// Postgres
	dbPool, err := db.ConnectPostgres(ctx, cfg.Database)
	if err != nil {
		log.Error(ctx, logger, "connect_db_fail", "Failed to connect to database", err)
		return err
	}
	defer dbPool.Close()
	log.Info(ctx, logger, "db_connected", "Connected to PostgreSQL")

	// RabbitMQ (handles reconnect loop internally)
	rmq, err := rabbitmq.Connect(ctx, cfg.RabbitMQ, logger)
	if err != nil {
		log.Error(ctx, logger, "rmq_connect_fail", "Failed to connect to RabbitMQ", err)
		return err
	}
	defer rmq.Close()
	log.Info(ctx, logger, "rmq_ready", "RabbitMQ topology declared")

	// Adapters and the application core
	jwtManager := auth.NewManager(cfg.Auth.Secret, 12*time.Hour)
	hub := commonws.NewHub(logger)
	broker := positions.NewBroker()
	provider := routing.NewOSRMProvider(cfg.Routing.BaseURL, time.Duration(cfg.Routing.TimeoutMS)*time.Millisecond)
	tripRepo := repository.NewTripRepository(dbPool)
	publisher := queue.NewNavigationPublisher(rmq, logger)
	talker := navws.NewTalker(hub)

	coreService := app.NewAppService(provider, broker, broker, publisher, talker, tripRepo, logger)
	defer coreService.Shutdown()

	apiHandler := api.NewHandler(coreService, jwtManager, logger)
	wsHandler := navws.NewWSHandler(coreService, jwtManager, hub, logger)

	mux := http.NewServeMux()
	mux.Handle("/trips/", apiHandler.Router())
	mux.Handle("/health", apiHandler.Router())
	mux.HandleFunc("/ws/drivers/", wsHandler.HandleDriverWS)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           withConcurrencyLimit(maxConcurrent, mux),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, logger, "http_server_start", fmt.Sprintf("Starting HTTP server on :%d", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info(ctx, logger, "shutdown_signal", "Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error(ctx, logger, "http_server_fail", "HTTP server failed", err)
			return err
		}
		return nil
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, logger, "http_shutdown_fail", "HTTP server shutdown failed", err)
	} else {
		log.Info(ctx, logger, "http_shutdown", "HTTP server stopped")
	}

	log.Info(ctx, logger, "shutdown_complete", "Navigation Service stopped")
	return nil
}

// withConcurrencyLimit wraps an http.Handler with a semaphore-based limiter.
// It controls how many HTTP requests can be in-progress at the same time.
func withConcurrencyLimit(n int, next http.Handler) http.Handler {
	if n <= 0 {
		return next
	}
	sem := make(chan struct{}, n)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case sem <- struct{}{}: // acquire
			defer func() { <-sem }() // release
			next.ServeHTTP(w, r)
		case <-r.Context().Done():
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		}
	})
}
