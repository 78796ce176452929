package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/granite-bot/server/internal/bot"
	"github.com/granite-bot/server/internal/bot/contextstore"
	"github.com/granite-bot/server/internal/bot/registry"
	"github.com/granite-bot/server/internal/bot/selection"
	"github.com/granite-bot/server/internal/core"
	"github.com/granite-bot/server/internal/server"
	logx "github.com/granite-bot/server/pkg/logger"
	pkgredis "github.com/granite-bot/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the service, sourced
// from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"development"`

	// Infrastructure
	Redis pkgredis.Config

	// HTTP layer
	Server server.Config

	// Bot catalog and context retention
	BotCatalogPath string `envconfig:"BOT_CATALOG_PATH" default:"configs/bots.yaml"`
	ContextTTL     string `envconfig:"CONTEXT_TTL" default:"24h"`
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	ttl, err := time.ParseDuration(cfg.ContextTTL)
	if err != nil {
		logx.Fatal().Err(err).Str("value", cfg.ContextTTL).Msg("invalid CONTEXT_TTL")
	}

	rdb, err := cfg.Redis.New()
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise redis client")
	}
	defer rdb.Close()

	catalog, err := registry.Load(cfg.BotCatalogPath)
	if err != nil {
		logx.Fatal().Err(err).Str("path", cfg.BotCatalogPath).Msg("failed to load bot catalog")
	}

	botService := bot.NewService(
		catalog,
		selection.NewManager(selection.NewRedisStore(rdb), catalog),
		contextstore.NewRedisBackend(rdb, ttl),
	)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(cfg.Server, botService, catalog),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", cfg.Server.Addr).Msg("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("http server shutdown failed")
	}
	logx.Info().Msg("server stopped")
}
