package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pixelrush-games/rocket-crash-server/config"
	"github.com/pixelrush-games/rocket-crash-server/server"
)

func main() {
	// Load .env so DATABASE_URL and PLATFORM_TOKEN are set: cwd .env or
	// project root .env/.env.local
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")
	_ = godotenv.Load("../.env.local")
	cfg := config.Load()

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("server init", zap.Error(err))
	}
	defer srv.Close()
	if err := srv.Run(); err != nil {
		logger.Fatal("server run", zap.Error(err))
	}
}
