// Package main is the entry point for the ledger service.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"log"

	"coinledger/internal/config"
	"coinledger/internal/repositories"
	"coinledger/internal/routes"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()

	var zapLogger *zap.Logger
	var err error
	if config.IsProduction() {
		zapLogger, err = zap.NewProduction()
	} else {
		zapLogger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := repositories.InitDB(); err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	sqlDB, err := repositories.DB.DB()
	if err != nil {
		zapLogger.Fatal("Failed to get database instance", zap.Error(err))
	}
	if err := sqlDB.Ping(); err != nil {
		zapLogger.Fatal("Failed to ping database", zap.Error(err))
	}
	zapLogger.Info("Connected to database")

	if repositories.CacheService != nil {
		if err := repositories.CacheService.FlushAll(context.Background()); err != nil {
			zapLogger.Warn("Failed to flush redis cache", zap.Error(err))
		}
	}

	defer func() {
		if err := sqlDB.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
		if repositories.CacheService != nil {
			if err := repositories.CacheService.Close(); err != nil {
				zapLogger.Warn("Failed to close redis connection", zap.Error(err))
			}
		}
	}()

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, X-User-ID",
		AllowMethods: "GET,POST,HEAD",
	}))
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, repositories.DB, zapLogger)

	zapLogger.Fatal("server stopped", zap.Error(app.Listen(":"+config.GetEnv("PORT", "3000"))))
}
