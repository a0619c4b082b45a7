package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"regdraft-ai-api/internal/config"
	"regdraft-ai-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting database bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	client, cleanup, err := wire.InitializePostgres(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer cleanup()

	// 建立用量与活动归档表
	if err := client.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}
