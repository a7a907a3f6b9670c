// Package main runs the standalone battleship server: websocket gameplay,
// payment webhooks and the settlement retry worker.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/bot"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/logging"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports/httpapi"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports/paygate"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/ports/ws"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/storage/memory"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/storage/postgres"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	logger, err := logging.NewZapLogger(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	game, err := config.LoadGameConfig(cfg.GameConfigPath)
	if err != nil {
		return err
	}
	identities, err := bot.LoadIdentities(cfg.BotIdentities)
	if err != nil {
		logger.Warn("Server: using default bot identities: %v", err)
		identities = bot.DefaultIdentities()
	}
	if cfg.PaymentBaseURL == "" {
		return errors.New("PAYMENT_BASE_URL is required")
	}

	var ledger ports.SettlementLedger = memory.NewLedger()
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		ledger = pg
	} else {
		logger.Warn("Server: DATABASE_URL not set, settlements are kept in memory")
	}

	payments := paygate.NewClient(cfg.PaymentBaseURL, cfg.PaymentToken, nil)
	gateway := ws.NewGateway(ws.NewTokenVerifier(cfg.JWTSecret), cfg.AllowedOrigins, cfg.MessagesPerSecond, cfg.MessageBurst, logger.WithField("component", "ws"))
	settlement := app.NewSettlement(payments, ledger, game, logger.WithField("component", "settlement"), nil)
	registry := app.NewRegistry(game, gateway, settlement, logger.WithField("component", "registry"),
		app.WithContext(ctx),
		app.WithIdentities(identities),
		app.WithBots(cfg.BotsEnabled),
	)
	lobby := app.NewLobby(registry, payments, gateway, game, logger.WithField("component", "lobby"), nil)
	gateway.Attach(lobby, registry)

	retry, err := worker.NewSettlementRetry(settlement, time.Duration(cfg.RetryIntervalSeconds)*time.Second, logger.WithField("component", "worker"))
	if err != nil {
		return err
	}
	if err := retry.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = retry.Stop() }()

	mux := http.NewServeMux()
	mux.Handle("/ws", gateway)
	wsServer := &http.Server{Addr: cfg.ListenAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	api := httpapi.New(lobby, registry, cfg.WebhookToken, logger.WithField("component", "http"))

	errs := make(chan error, 2)
	go func() {
		logger.Info("Server: websocket listening on %s", cfg.ListenAddr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()
	go func() {
		logger.Info("Server: http api listening on %s", cfg.HTTPAddr)
		if err := api.Listen(cfg.HTTPAddr); err != nil {
			errs <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errs:
		logger.Error("Server: listener failed: %v", err)
	}

	logger.Info("Server: shutting down")
	registry.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = wsServer.Shutdown(shutdownCtx)
	_ = api.ShutdownWithContext(shutdownCtx)
	return err
}
