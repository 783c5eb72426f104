package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/atlasreach/mediaforge/internal/api/handler"
	"github.com/atlasreach/mediaforge/internal/api/router"
	"github.com/atlasreach/mediaforge/internal/comfy"
	"github.com/atlasreach/mediaforge/internal/config"
	"github.com/atlasreach/mediaforge/internal/editclient"
	"github.com/atlasreach/mediaforge/internal/edits"
	"github.com/atlasreach/mediaforge/internal/objectstore"
	"github.com/atlasreach/mediaforge/internal/reconcile"
	"github.com/atlasreach/mediaforge/internal/store"
	"github.com/atlasreach/mediaforge/internal/submit"
	"github.com/atlasreach/mediaforge/internal/video"
	"github.com/atlasreach/mediaforge/shared/logger"
	"github.com/atlasreach/mediaforge/shared/postgresql"
	"github.com/atlasreach/mediaforge/shared/rabbitmq"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	objectStore, err := objectstore.NewGCS(context.Background(), &objectstore.Config{
		Bucket:    cfg.Storage.Bucket,
		CDNDomain: cfg.Storage.CDNDomain,
		KeyPrefix: cfg.Storage.KeyPrefix,
	}, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	metaStore := store.New(dbClient, appLogger.Logger)

	backendClient := comfy.NewClient(&comfy.Config{
		BaseURL:        cfg.Backend.BaseURL,
		RequestTimeout: cfg.Backend.RequestTimeout,
	}, appLogger.Logger)

	submitter := submit.NewService(&submit.Config{
		Logger:      appLogger.Logger,
		Store:       metaStore,
		Backend:     backendClient,
		Publisher:   rabbitClient,
		TemplateDir: cfg.Backend.TemplateDir,
	})

	reconciler := reconcile.NewReconciler(&reconcile.Config{
		Logger:        appLogger.Logger,
		Store:         metaStore,
		Backend:       backendClient,
		ObjectStore:   objectStore,
		OutputNodeID:  cfg.Backend.OutputNodeID,
		BatchSize:     cfg.Reconciler.BatchSize,
		InterJobDelay: cfg.Reconciler.InterJobDelay,
	})

	editor := editclient.NewClient(&editclient.Config{
		BaseURL:        cfg.Edit.BaseURL,
		APIKey:         cfg.Edit.APIKey,
		RequestTimeout: cfg.Edit.RequestTimeout,
	}, appLogger.Logger)

	editService := edits.NewService(appLogger.Logger, metaStore, editor)

	videoService := video.NewService(appLogger.Logger, metaStore,
		video.NewKling(&video.ProviderConfig{
			BaseURL:        cfg.Video.Kling.BaseURL,
			APIKey:         cfg.Video.Kling.APIKey,
			RequestTimeout: cfg.Video.Kling.RequestTimeout,
		}, appLogger.Logger),
		video.NewHailuo(&video.ProviderConfig{
			BaseURL:        cfg.Video.Hailuo.BaseURL,
			APIKey:         cfg.Video.Hailuo.APIKey,
			RequestTimeout: cfg.Video.Hailuo.RequestTimeout,
		}, appLogger.Logger),
	)

	r := initRouter(cfg.App.Environment, &handler.Dependencies{
		Logger:     appLogger.Logger,
		DBClient:   dbClient,
		Store:      metaStore,
		Submitter:  submitter,
		Reconciler: reconciler,
		Edits:      editService,
		Videos:     videoService,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed to start",
				slog.Any("error", err),
			)
			os.Exit(1)
		}
	}()

	appLogger.Info("API service is running",
		slog.String("address", addr),
	)

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		cancel()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
		if objectStore != nil {
			objectStore.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Server shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, deps *handler.Dependencies) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(deps)
}
