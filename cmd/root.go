package cmd

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"interviewer/internal/config"
	logging "interviewer/pkg/logger/pkg"
)

const defaultConfigPath = "config/config.yaml"

func Execute() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.InitLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if cfg.Tracing.Enabled {
		tracer.Start(tracer.WithService(cfg.Tracing.Service))
		defer tracer.Stop()
	}

	app, err := build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to build application", zap.Error(err))
	}
	defer app.close()

	startHTTP(cfg, app, logger)
}
