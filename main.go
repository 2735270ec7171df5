package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"otp-auth/cmd"
	"otp-auth/internal/data/repository"
	"otp-auth/internal/wire"
	"otp-auth/pkg/cache"
	"otp-auth/pkg/database"
	"otp-auth/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Name, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using production defaults.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.Bool("debug", config.App.Debug),
		zap.String("store", config.Store.Driver),
		zap.String("attempt_store", config.Auth.AttemptStore),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis backs login attempts when requested
	var rdb *redis.Client
	if config.Auth.AttemptStore == "redis" || config.Redis.Enabled {
		rdb, err = cache.Connect(ctx, config.Redis.URL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		logger.Info("Redis connected")
	}

	// Repositories
	var repos *repository.Repository
	switch config.Store.Driver {
	case "memory":
		logger.Warn("Using in-memory store; data is lost on restart")
		repos = repository.NewMemoryRepository()
		if rdb != nil {
			repos.LoginAttempt = repository.NewRedisLoginAttemptRepository(rdb, logger)
		}
	default:
		db, err := database.InitDB(ctx, config.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("Database connected successfully")

		if config.Database.MigrateOnStart {
			if err := database.Migrate(ctx, db, logger); err != nil {
				logger.Fatal("Failed to run migrations", zap.Error(err))
			}
		}

		repos = repository.NewRepository(db, rdb, logger)
	}

	// Wire all dependencies
	app, err := wire.Wiring(repos, config, logger)
	if err != nil {
		logger.Fatal("Failed to wire application", zap.Error(err))
	}

	if err := cmd.APIServer(ctx, app.Router, config.App.Port, config.App.ShutdownTimeout, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}
