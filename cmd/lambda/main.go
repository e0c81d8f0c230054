package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"travel-admin-api/internal/app"
	"travel-admin-api/internal/config"
	"travel-admin-api/internal/handler"
	"travel-admin-api/internal/logger"
	"travel-admin-api/internal/serverless"

	"github.com/aws/aws-lambda-go/lambda"
)

// notifyTimeout bounds the webhook delivery made within each invocation
const notifyTimeout = 5 * time.Second

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: handler.ServiceName,
	})

	application, err := app.New(context.Background(), cfg, log, app.WithInlineNotifications(notifyTimeout))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}

	lambda.Start(serverless.FunctionURLAdapter{Handler: application.Handler}.Handle)
}
