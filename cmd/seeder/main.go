package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dumu-tech/digibill/internal/adapters/postgres"
	"github.com/dumu-tech/digibill/internal/config"
	"github.com/dumu-tech/digibill/internal/core"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	repo, err := postgres.NewRepository(cfg.DBURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := repo.AutoMigrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedUser(ctx, repo, envOr("SEED_ADMIN_EMAIL", "admin@digibill.local"), envOr("SEED_ADMIN_PASSWORD", "admin12345"), core.RoleAdmin)
	seedUser(ctx, repo, envOr("SEED_POS_EMAIL", "pos@digibill.local"), envOr("SEED_POS_PASSWORD", "pos12345"), core.RoleBilling)
	seedCoupons(ctx, repo)
}

func seedUser(ctx context.Context, repo *postgres.Repository, email, password, role string) {
	users := repo.AdminUserRepository()
	if _, err := users.GetByEmail(ctx, email); err == nil {
		log.Printf("user %s already exists, skipping", email)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}
	user := &core.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := users.Create(ctx, user); err != nil {
		log.Fatalf("failed to seed user %s: %v", email, err)
	}
	log.Printf("seeded %s user %s", role, email)
}

func seedCoupons(ctx context.Context, repo *postgres.Repository) {
	demo := []struct {
		repo    core.CouponRepository
		coupons []*core.Coupon
	}{
		{repo.CouponRepository(), []*core.Coupon{
			{Code: "WELCOME10", Description: "10% off for new customers", Discount: "10% OFF", Status: core.CouponStatusActive, TotalCount: 100},
			{Code: "FESTIVE20", Description: "Festive season discount", Discount: "20% OFF", Status: core.CouponStatusActive, TotalCount: 50},
		}},
		{repo.RewardCouponRepository(), []*core.Coupon{
			{Code: "LOYAL500", Description: "Flat 500 off on orders above 2500", Discount: "FLAT 500", Status: core.CouponStatusActive, TotalCount: 200, MinAmount: 2500},
		}},
	}

	for _, pool := range demo {
		for _, coupon := range pool.coupons {
			err := pool.repo.Create(ctx, coupon)
			if errors.Is(err, core.ErrDuplicateCode) {
				log.Printf("coupon %s already exists, skipping", coupon.Code)
				continue
			}
			if err != nil {
				log.Fatalf("failed to seed coupon %s: %v", coupon.Code, err)
			}
			log.Printf("seeded coupon %s", coupon.Code)
		}
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
