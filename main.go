package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tosslee/cache"
	"tosslee/config"
	"tosslee/game"
	"tosslee/handlers"
	"tosslee/middleware"
	"tosslee/models"
	"tosslee/services"
	"tosslee/utils"
	"tosslee/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // JSON only
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed, no exceptions
	app.Use(middleware.GatewayAuthMiddleware(cfg.GameServiceToken))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Inventory{},
		&models.InventoryMember{},
		&models.Item{},
		&models.Vote{},
		&models.PlayerStats{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.GameSession{},
		&models.ItemDecision{},
		&models.LeaderboardEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	achievementService := services.NewAchievementService(db)
	if err := achievementService.SeedCatalog(ctx, models.DefaultAchievements); err != nil {
		log.Fatal(err)
	}

	var signer services.PhotoSigner
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Signer(ctx, utils.R2Settings{
			AccountID:       cfg.R2.AccountID,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		signer = r2.PresignItemPhoto
		log.Println("✅ R2 photo presigning enabled")
	} else {
		log.Println("⚠️  R2 not configured, item photos served from stored URLs")
	}

	var board services.Board
	if cfg.RedisAddr != "" {
		redisBoard := cache.NewRedisLeaderboard(cfg.RedisAddr, 35*24*time.Hour)
		if err := redisBoard.Ping(ctx); err != nil {
			log.Printf("⚠️  Redis unavailable at %s, leaderboards read from Postgres: %v", cfg.RedisAddr, err)
			redisBoard.Close()
		} else {
			defer redisBoard.Close()
			board = redisBoard
			log.Printf("✅ Redis leaderboard cache at %s", cfg.RedisAddr)
		}
	}

	store := services.NewGameStore(db, signer)
	engine := game.NewEngine(store.Deps())
	registry := services.NewSessionRegistry(engine, cfg.SessionIdleTimeout)
	progressionService := services.NewProgressionService(db, store, registry)
	leaderboardService := services.NewLeaderboardService(db, board)

	sched, err := registry.StartSessionScheduler(ctx, time.Minute)
	if err != nil {
		log.Fatal(err)
	}

	workers.NewLeaderboardWorker(leaderboardService, cfg.LeaderboardEvery).Start(ctx)

	handlers.SetupGameRoutes(app, handlers.GameRoutes{
		Sessions:     registry,
		Items:        store,
		Stats:        store,
		Achievements: achievementService,
		Leaderboards: leaderboardService,
	})
	handlers.SetupProgressionRoutes(app, progressionService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", cfg.AllowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
	// End whatever is still being played so stats and sessions are persisted
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if abandoned := registry.EndAll(shutdownCtx); abandoned > 0 {
		log.Printf("🧹 Ended %d live session(s) on shutdown", abandoned)
	}
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
