package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"lms-consulting-portal/backend/internal/models"
	"lms-consulting-portal/backend/pkg/config"
	"lms-consulting-portal/backend/pkg/di"
	"lms-consulting-portal/backend/pkg/logger"
	"lms-consulting-portal/backend/pkg/router"
	"lms-consulting-portal/backend/shared/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		stdlog.Println("No .env file found")
	}

	cfg := config.New()

	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"
	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting chat backend", "env", cfg.Server.Env)

	shutdownTracing := observability.SetupTracing("chat-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	if err := db.AutoMigrate(
		&models.Employee{},
		&models.Consultant{},
		&models.ChatSession{},
		&models.Message{},
		&models.CannedResponse{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// Query-shaped indexes the auto-migration does not cover
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_sessions_status_created ON chat_sessions(status, created_at)").Error; err != nil {
		log.LogError(err, "Failed to create session index", "index", "idx_sessions_status_created")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_session_ts ON messages(session_id, timestamp)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_session_ts")
	}

	container, err := di.New(db, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	if err := container.Sweeper.Start(); err != nil {
		log.LogError(err, "Failed to start retention sweeper")
		os.Exit(1)
	}
	defer container.Sweeper.Stop()

	container.HealthChecker.Start()

	r := router.New(container)
	r.SetupRoutes()

	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	log.Info("Server exited gracefully")
}
