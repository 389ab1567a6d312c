package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onboarding_backend/internals/configs"
	database "onboarding_backend/internals/databases"
	scheduler "onboarding_backend/internals/features/users/auth/scheduler"
	twoFactorController "onboarding_backend/internals/features/users/two_factor/controller"
	"onboarding_backend/internals/helpers/metrics"
	middlewares "onboarding_backend/internals/middlewares"
	routes "onboarding_backend/internals/route"
	"onboarding_backend/internals/seeds"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
)

func main() {
	configs.LoadEnv()

	app := fiber.New(fiber.Config{
		// 🚀 JSON rápido
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"}, // ajuste para o CIDR do proxy
	})

	// ⚙️ middleware base + performance
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())
	middlewares.SetupMiddlewares(app)

	// 🔌 DB connect + pool + warm-up
	database.ConnectDB()
	database.TunePool()
	if configs.GetEnvBool("DB_AUTO_MIGRATE", true) {
		if err := database.Migrate(database.DB); err != nil {
			log.Fatalf("❌ Migração falhou: %v", err)
		}
	}
	database.WarmUpQueries()

	if configs.GetEnvBool("SEED_ON_START", true) {
		seeds.RunAllSeeds(database.DB)
	}

	metrics.Init()

	// ⏱ scheduler depois do DB pronto
	scheduler.StartBlacklistCleanupScheduler(database.DB)

	rdb := twoFactorController.NewRedisClient(configs.RedisURL)

	// ✅ Routes
	routes.SetupRoutes(app, database.DB, rdb)

	// 🔒 Keep-Alive & timeouts
	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	go func() {
		log.Printf("✅ Listening on :%s", port)
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown + fecha pool DB e redis
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)

	if rdb != nil {
		_ = rdb.Close()
	}
	if sqlDB, err := database.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
