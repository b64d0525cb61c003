package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Niraj-Kamdar/datastore/internal/cache"
	"github.com/Niraj-Kamdar/datastore/internal/config"
	"github.com/Niraj-Kamdar/datastore/internal/handler"
	"github.com/Niraj-Kamdar/datastore/internal/model"
	"github.com/Niraj-Kamdar/datastore/internal/repository"
	"github.com/Niraj-Kamdar/datastore/internal/service"
	"github.com/Niraj-Kamdar/datastore/internal/task"
	"github.com/Niraj-Kamdar/datastore/internal/transfer"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	var logger *zap.Logger
	if cfg.Log.Format == "json" {
		logger, _ = zap.NewProduction()
	} else {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize task-state store (Redis or in-memory)
	var store cache.Store
	var memStore *cache.MemoryStore
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		store = cache.NewRedisStore(redisClient)
		logger.Info("using Redis task store")
	case "memory":
		memStore = cache.NewMemoryStore()
		if err := restoreSnapshot(memStore, cfg.Cache.SnapshotPath); err != nil {
			logger.Warn("failed to restore snapshot", zap.Error(err))
		}
		store = memStore
		logger.Info("using in-memory task store")
	default:
		logger.Fatal("unknown cache backend", zap.String("backend", cfg.Cache.Backend))
	}

	// 6. Ensure the data directory exists
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		logger.Fatal("failed to create data dir", zap.Error(err))
	}

	// 7. Initialize registry and transfer engine
	registry := task.NewRegistry(store, cfg.Cache.TaskTTL)
	engine := transfer.NewEngine(registry, cfg.Transfer.ChunkSize, cfg.Transfer.PollInterval, logger)

	// 8. Initialize repositories and services
	userRepo := repository.NewPGUserRepository(db)
	userService := service.NewUserService(userRepo)
	taskService := service.NewTaskService(registry)
	datastoreService := service.NewDatastoreService(cfg.Storage.DataDir, registry, engine, logger)

	// 9. Initialize handlers
	userHandler := handler.NewUserHandler(userService)
	taskHandler := handler.NewTaskHandler(taskService)
	fileHandler := handler.NewFileHandler(datastoreService, logger)

	// 10. Setup router
	router := handler.SetupRouter(cfg, logger, userService, userHandler, taskHandler, fileHandler)

	// 11. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 12. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	// 14. Persist in-flight task state so it survives a restart
	if memStore != nil && cfg.Cache.SnapshotPath != "" {
		if err := persistSnapshot(memStore, cfg.Cache.SnapshotPath); err != nil {
			logger.Error("failed to persist snapshot", zap.Error(err))
		} else {
			logger.Info("task store snapshot persisted", zap.String("path", cfg.Cache.SnapshotPath))
		}
	}
	logger.Info("server exited gracefully")
}

func restoreSnapshot(store *cache.MemoryStore, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return store.Restore(f)
}

func persistSnapshot(store *cache.MemoryStore, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := store.Persist(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
