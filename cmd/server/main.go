package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"

	httpadapter "github.com/dumu-tech/digibill/internal/adapters/http"
	"github.com/dumu-tech/digibill/internal/adapters/postgres"
	"github.com/dumu-tech/digibill/internal/adapters/redis"
	"github.com/dumu-tech/digibill/internal/adapters/sms"
	"github.com/dumu-tech/digibill/internal/config"
	"github.com/dumu-tech/digibill/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Fail fast if the database is unreachable.
	pool, err := pgxpool.New(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to create database pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	pool.Close()

	repo, err := postgres.NewRepository(cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to initialize repository: %v", err)
	}

	otpStore, err := redis.NewOTPStore(cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("failed to initialize otp store: %v", err)
	}
	if err := otpStore.Ping(ctx); err != nil {
		log.Fatalf("failed to ping redis: %v", err)
	}

	smsClient := sms.NewClient(cfg)

	couponService := service.NewCouponService(repo.CouponRepository(), smsClient)
	rewardService := service.NewCouponService(repo.RewardCouponRepository(), smsClient)
	billService := service.NewBillService(repo.BillRepository(), smsClient)
	feedbackService := service.NewFeedbackService(repo.FeedbackRepository(), repo.BillRepository(), smsClient)
	authService := service.NewAuthService(repo.AdminUserRepository(), repo.BillRepository(), otpStore, smsClient, cfg.JWTSecret, cfg.UseFakeOTP)

	app := fiber.New(fiber.Config{
		AppName:      "digibill",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	handler := httpadapter.NewHandler(couponService, rewardService, billService, feedbackService, authService, cfg.BaseURL)
	handler.RegisterRoutes(app, cfg.JWTSecret)

	log.Printf("starting server on port %s (%s)", cfg.AppPort, cfg.AppEnv)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
