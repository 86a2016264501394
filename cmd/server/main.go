package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	connectapi "github.com/appgrid/platform-connect/api/echo"
	"github.com/appgrid/platform-connect/cache"
	redisstore "github.com/appgrid/platform-connect/cache/redis"
	"github.com/appgrid/platform-connect/config"
	"github.com/appgrid/platform-connect/internal/crypto"
	"github.com/appgrid/platform-connect/internal/flow"
	"github.com/appgrid/platform-connect/internal/platform"
	"github.com/appgrid/platform-connect/log"
	"github.com/appgrid/platform-connect/mongodb"
	"github.com/appgrid/platform-connect/tracing"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load configuration")
	}

	logLevel, parseErr := zerolog.ParseLevel(cfg.LogLevel)
	if parseErr != nil {
		logLevel = zerolog.InfoLevel
	}
	logger := log.NewZerologAdapter(logLevel, cfg.LogPretty)

	ctx := context.Background()
	logger.Info(ctx, "starting platform-connect", map[string]interface{}{
		"http_port":     cfg.HTTPPort,
		"mongo_db_name": cfg.MongoDBName,
		"log_level":     logLevel.String(),
	})

	if err := cfg.Validate(); err != nil {
		logger.Fatal(ctx, "invalid configuration", err)
	}

	var tracerProvider *sdktrace.TracerProvider
	tracerProvider, err = tracing.InitTracerProvider(cfg.OtelServiceName)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize tracer provider", err)
	}

	if err := mongodb.InitMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName); err != nil {
		logger.Fatal(ctx, "failed to initialize mongodb connection", err)
	}
	credRepo := mongodb.NewCredentialRepository(mongodb.GetDB())

	cipher, err := crypto.NewTokenCipher(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize token cipher", err)
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}
	orgResolver := platform.NewOrgResolver(httpClient, cfg.PlatformBaseURL, cfg.ClientID, cfg.APIVersion)
	profileResolver := platform.NewProfileResolver(httpClient, cfg.PlatformBaseURL)

	authFlow := flow.NewFlow(flow.Config{
		AuthorizationEndpoint: cfg.AuthorizeURL,
		TokenEndpoint:         cfg.TokenURL,
		ClientID:              cfg.ClientID,
		ClientSecret:          cfg.ClientSecret,
		CallbackURL:           cfg.CallbackURL,
		Scope:                 cfg.Scope,
	}, orgResolver, profileResolver.Me, cipher, credRepo, logger)

	attemptTTL := time.Duration(cfg.AttemptTTLMin) * time.Minute
	var attempts cache.AttemptStore
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		attempts = redisstore.NewAttemptStore(client, "platform-connect", attemptTTL)
		logger.Info(ctx, "using redis attempt store", map[string]interface{}{"addr": cfg.RedisAddr})
	} else {
		memStore := cache.NewMemoryAttemptStore(attemptTTL)
		defer memStore.Stop()
		attempts = memStore
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	connectapi.NewConnectAPI(authFlow, attempts).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server stopped unexpectedly", err)
		}
	}()
	logger.Info(ctx, "http server listening", map[string]interface{}{"port": cfg.HTTPPort})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http server shutdown failed", err)
	}
	mongodb.CloseMongoDB(shutdownCtx)
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "tracer provider shutdown failed", err)
	}
	logger.Info(ctx, "shutdown complete")
}
