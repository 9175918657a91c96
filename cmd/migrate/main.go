package main

import (
	"log"

	"github.com/dumu-tech/digibill/internal/adapters/postgres"
	"github.com/dumu-tech/digibill/internal/config"
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
	log.Println("migration complete")
}
