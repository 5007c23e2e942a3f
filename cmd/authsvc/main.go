package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/microgate/platform/internal/api"
	"github.com/microgate/platform/internal/core/ports"
	"github.com/microgate/platform/internal/core/service"
	invalidation "github.com/microgate/platform/internal/infrastructure/cache"
	"github.com/microgate/platform/internal/infrastructure/config"
	"github.com/microgate/platform/internal/infrastructure/db/memory"
	"github.com/microgate/platform/internal/infrastructure/db/mysql"
	redisdb "github.com/microgate/platform/internal/infrastructure/db/redis"
	"github.com/microgate/platform/internal/rpc"
	"github.com/microgate/platform/internal/token"
	"github.com/microgate/platform/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAuth(ctx)
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.Env == "development"})

	db, err := mysql.Open(ctx, mysql.Config{
		User:     cfg.MySQL.User,
		Password: cfg.MySQL.Password,
		Host:     cfg.MySQL.Host,
		Port:     cfg.MySQL.Port,
		Database: cfg.MySQL.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mysql connect failed")
	}
	defer db.Close()

	if err := mysql.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// Redis is an accelerator, never the system of record: when it is down at
	// startup the service degrades to an in-process cache.
	var cache ports.CredentialCache
	rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, using in-process cache")
		cache = memory.NewCache()
	} else {
		defer rdb.Close()
		cache = redisdb.NewCache(rdb)
	}

	invalidator := invalidation.NewInvalidator(cache, log)
	invalidator.Start(ctx)

	codec := token.NewCodec(cfg.JWTSecret, cfg.TokenTTL)
	users := mysql.NewUserRepository(db)
	authService := service.NewAuthService(users, cache, invalidator, codec, cfg.CacheTTL, log)
	validator := service.NewValidatorService(users, codec)

	// Internal validator RPC.
	go func() {
		if err := rpc.NewServer(validator, log).Serve(ctx, cfg.RPCAddr); err != nil {
			log.Error().Err(err).Msg("rpc server stopped")
			stop()
		}
	}()

	e := api.NewRouter(api.Deps{
		Users:     users,
		Auth:      authService,
		Validator: validator,
		DB:        db,
		Redis:     rdb,
		Log:       log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("auth service listening")
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
