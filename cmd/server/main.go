package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wirechat/wirechat/internal/auth"
	"github.com/wirechat/wirechat/internal/authz"
	"github.com/wirechat/wirechat/internal/broker"
	"github.com/wirechat/wirechat/internal/config"
	"github.com/wirechat/wirechat/internal/db"
	"github.com/wirechat/wirechat/internal/httpapi"
	"github.com/wirechat/wirechat/internal/objstore"
	"github.com/wirechat/wirechat/internal/store"
	"github.com/wirechat/wirechat/internal/ws"
)

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "wirechat").Logger()

	// Pretty logging for local dev
	if env("ENV", "dev") == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	// Database
	pool, err := db.Open(ctx, cfg.DatabaseURL(), cfg.DBPoolSize)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to apply schema")
	}

	st := store.New(pool)

	// Broker. A missing Redis degrades to local-only fan-out rather than
	// failing the boot.
	var rdb *redis.Client
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPass,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr()).Msg("redis unreachable, running single-node")
		_ = client.Close()
	} else {
		log.Info().Str("addr", cfg.RedisAddr()).Msg("redis connected")
		rdb = client
	}
	brk := broker.New(rdb)
	defer brk.Close()

	// Object storage
	objects, err := objstore.New(ctx, objstore.Options{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		PublicURL: cfg.MinioPublicURL,
		UseSSL:    cfg.MinioUseSSL,
		TTL:       cfg.PresignTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to object storage")
	}

	// Auth + authorization
	tokens, err := auth.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid jwt configuration")
	}
	oracle := authz.New(st)

	// Realtime gateway
	gateway := ws.NewGateway(tokens, st, oracle, brk)

	srv := &httpapi.Server{
		Store:        st,
		Auth:         tokens,
		Authz:        oracle,
		Broker:       brk,
		Objects:      objects,
		WS:           gateway,
		MaxFileBytes: cfg.MaxFileSizeBytes(),
	}

	addr := fmt.Sprintf(":%d", cfg.APIPort)
	httpServer := &http.Server{
		Addr:        addr,
		Handler:     srv.Routes(),
		ReadTimeout: 15 * time.Second,
		// Write timeout would kill long-lived websocket connections; per-write
		// deadlines inside the ws package bound those instead.
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("server stopped")
}
