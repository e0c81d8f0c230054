package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"travel-admin-api/internal/app"
	"travel-admin-api/internal/config"
	"travel-admin-api/internal/handler"
	"travel-admin-api/internal/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: handler.ServiceName,
	})
	log.Debug().Str("config", cfg.String()).Msg("configuration loaded")

	if err := cfg.Backend.Check(); err != nil {
		log.Warn().Err(err).Msg("backend not configured, admin endpoints will answer 500")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	defer application.Close()

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        application.Handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Int("port", cfg.Port).
			Int("rate_limit_rps", cfg.Security.RateLimitRPS).
			Int("rate_limit_burst", cfg.Security.RateLimitBurst).
			Bool("cors", cfg.Security.EnableCORS).
			Dur("request_timeout", cfg.Security.RequestTimeout).
			Msg("starting server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
	case <-ctx.Done():
		log.Info().Msg("server is shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Security.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}
	log.Info().Msg("server exited gracefully")
}
