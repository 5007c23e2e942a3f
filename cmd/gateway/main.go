package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/microgate/platform/internal/gateway"
	"github.com/microgate/platform/internal/infrastructure/config"
	"github.com/microgate/platform/internal/token"
	"github.com/microgate/platform/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadGateway(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development"})

	codec := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL)

	e := gateway.NewRouter(codec, gateway.Services{
		Auth:      cfg.AuthServiceURL,
		Dashboard: cfg.DashboardServiceURL,
		Image:     cfg.ImageServiceURL,
		Search:    cfg.SearchServiceURL,
	}, log)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("gateway listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
}
