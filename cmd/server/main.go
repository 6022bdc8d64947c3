// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/duka-backend/internal/config"
	"github.com/javajoker/duka-backend/internal/database"
	"github.com/javajoker/duka-backend/internal/handlers"
	"github.com/javajoker/duka-backend/internal/i18n"
	"github.com/javajoker/duka-backend/internal/router"
	"github.com/javajoker/duka-backend/internal/services"
	"github.com/javajoker/duka-backend/internal/session"
)

// kvBackend is the cart/preference store plus its lifecycle.
type kvBackend interface {
	session.KeyValueStore
	handlers.Pinger
	Close() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	configureLogging(cfg)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(ctx, cfg.Database); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	if cfg.Database.SeedDemo {
		if err := database.SeedDemoProducts(ctx, db); err != nil {
			logrus.WithError(err).Fatal("Failed to seed demo products")
		}
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	kv := openKeyValueStore(ctx, cfg)
	defer kv.Close()

	events := services.NewEventPublisher(cfg.Kafka.Brokers)
	defer events.Close()

	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage")
	}

	escrowService := services.NewEscrowService(cfg)
	productService := services.NewProductService(db, events, cfg.Kafka.ProductCreatedTopic)
	orderService := services.NewOrderService(db, escrowService)

	manager := session.NewManager(session.Dependencies{
		Products:   productService,
		KV:         kv,
		Codes:      escrowService,
		Orders:     orderService,
		Events:     events,
		Session:    cfg.Session,
		Currency:   cfg.Payment.Currency,
		OrderTopic: cfg.Kafka.OrderPlacedTopic,
		Logger:     logrus.WithField("component", "session"),
	})
	go manager.Run(ctx)
	defer manager.Shutdown()

	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to get underlying sql.DB")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r := router.Initialize(db, cfg, router.Services{
		Products: productService,
		Storage:  storageService,
		Orders:   orderService,
		Sessions: manager,
		Health: map[string]handlers.Pinger{
			"database": handlers.PingFunc(sqlDB.PingContext),
			"kv":       kv,
		},
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}

func configureLogging(cfg *config.Config) {
	logrus.SetOutput(os.Stdout)
	if cfg.Environment == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		logrus.SetLevel(logrus.InfoLevel)
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logrus.SetLevel(logrus.DebugLevel)
}

// openKeyValueStore connects to Redis, falling back to process memory when
// Redis is disabled or unreachable outside production.
func openKeyValueStore(ctx context.Context, cfg *config.Config) kvBackend {
	if !cfg.Redis.Enabled {
		logrus.Warn("Redis disabled, carts and preferences are kept in memory")
		return services.NewMemoryStore()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	store, err := services.NewRedisStore(connectCtx, cfg.Redis)
	if err != nil {
		if cfg.Environment == "production" {
			logrus.WithError(err).Fatal("Failed to connect to Redis")
		}
		logrus.WithError(err).Warn("Redis unavailable, carts and preferences are kept in memory")
		return services.NewMemoryStore()
	}
	return store
}
