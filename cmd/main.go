package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shjroemon/social-network-be/internal/app/registry"
	"github.com/shjroemon/social-network-be/internal/app/server"
	"github.com/shjroemon/social-network-be/internal/app/worker"
	"github.com/shjroemon/social-network-be/internal/config"
	"github.com/shjroemon/social-network-be/internal/core/services"
	"github.com/shjroemon/social-network-be/internal/platform/logger"
	"github.com/shjroemon/social-network-be/internal/platform/telemetry"
	"github.com/shjroemon/social-network-be/internal/plugins/cloudinary"
	"github.com/shjroemon/social-network-be/internal/plugins/postgres"
	redisPlugin "github.com/shjroemon/social-network-be/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	defer pdb.Close()
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")
	defer rdb.Close()

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	postRepo := postgres.NewPostRepository(pdb)
	roomStore := postgres.NewRoomStore(pdb)
	txManager := postgres.NewTxManager(pdb)
	presStore := redisPlugin.NewRedisPresenceStore(rdb)
	queue := redisPlugin.NewRedisDeliveryQueue(log, rdb)
	media := cloudinary.NewCloudinaryClient(*cfg.Cloudinary)

	// Core services
	guard := services.NewRoomGuard()
	tokenSvc := services.NewTokenService(cfg.JWTSecret)
	userSvc := services.NewUserService(log, userRepo)
	postSvc := services.NewPostService(log, postRepo, media)
	membership := services.NewMembershipService(log, roomStore, txManager, guard)
	messages := services.NewMessageService(log, roomStore, queue, txManager, guard, cfg.Chat.StorageTimeout)
	presence := services.NewPresenceTracker(log, presStore, cfg.Chat.PresenceTTL, cfg.Chat.HeartbeatInterval)

	hub := registry.NewRegistry(presence)
	presence.Bind(hub)
	deliveryWorker := worker.NewRoomDeliveryWorker(log, queue, hub, cfg.Chat.ConsumerGroup)
	hub.RunWorker(deliveryWorker.Run)

	// Server
	srv := server.NewServer(log, *cfg, userSvc, tokenSvc, postSvc, membership, messages, presence, hub)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "err", err)
	}
}
