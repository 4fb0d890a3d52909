package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"procheff/internal/api"
	"procheff/internal/app"
	"procheff/internal/config"
	"procheff/internal/database"
	"procheff/internal/logging"
	"procheff/internal/metrics"
	"procheff/internal/storage"
	"procheff/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v\n", err)
	}

	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// 2. Initialize Infrastructure
	db, err := database.NewDB(cfg.DBPath, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	runs := metrics.NewStore(db.SQL)

	store, err := storage.NewDataStore(cfg.DataDir)
	if err != nil {
		logger.Fatal("failed to initialize data store", zap.Error(err))
	}

	// 3. Load fixtures into the engines
	application, err := app.NewApp(cfg, store, runs, logger, io.Discard)
	if err != nil {
		logger.Fatal("failed to load data", zap.Error(err))
	}

	// 4. HTTP API
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(application.Costs(), application.Products(), runs, logger, cfg.DataDir)
	router := api.NewRouter(handler)

	// 5. Telegram Bot
	if cfg.BotEnabled() {
		commands := telegram.NewCommands(application.Costs(), application.Products(), runs, cfg.DataDir)
		bot, err := telegram.NewBot(cfg, commands, logger)
		if err != nil {
			logger.Fatal("failed to initialize telegram bot", zap.Error(err))
		}
		router.POST("/webhook", gin.WrapF(bot.HandleWebhook))
	}

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Port), zap.Bool("bot", cfg.BotEnabled()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
