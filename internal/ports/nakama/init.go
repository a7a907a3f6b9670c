package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/config"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/storage/memory"
	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/worker"

	"github.com/heroiclabs/nakama-common/runtime"
)

const defaultRetryInterval = time.Minute

// Module holds the engine shared by every RPC and hook of one Nakama runtime.
type Module struct {
	cfg      *config.GameConfig
	registry *app.Registry
	lobby    *app.Lobby
	logger   runtime.Logger
}

// InitModule wires RPCs and hooks for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	cfg, botsEnabled, err := loadConfig(env)
	if err != nil {
		logger.Error("InitModule: %v", err)
		return err
	}

	walletKey := cfg.Currency
	if val, ok := env[EnvWalletKey]; ok && val != "" {
		walletKey = val
	}
	wallet := NewWalletAdapter(nk, walletKey)
	notifier := NewNotifier(nk, logger)

	settlement := app.NewSettlement(wallet, memory.NewLedger(), cfg, logger, nil)
	registry := app.NewRegistry(cfg, notifier, settlement, logger,
		app.WithContext(context.Background()),
		app.WithBots(botsEnabled),
	)
	m := &Module{
		cfg:      cfg,
		registry: registry,
		lobby:    app.NewLobby(registry, wallet, notifier, cfg, logger, nil),
		logger:   logger,
	}

	if err := m.Register(initializer); err != nil {
		return err
	}

	retry := defaultRetryInterval
	if val, ok := env[EnvRetrySeconds]; ok {
		if i, err := strconv.Atoi(val); err == nil && i > 0 {
			retry = time.Duration(i) * time.Second
		}
	}
	retrier, err := worker.NewSettlementRetry(settlement, retry, logger)
	if err != nil {
		return err
	}
	if err := retrier.Start(context.Background()); err != nil {
		return err
	}
	logger.Info("Battleship Go module loaded (bots enabled: %v).", botsEnabled)
	return nil
}

// Register installs the module's RPCs and session hook.
func (m *Module) Register(initializer runtime.Initializer) error {
	rpcs := map[string]func(context.Context, runtime.Logger, *sql.DB, runtime.NakamaModule, string) (string, error){
		RpcJoin:          m.rpcJoin,
		RpcPlaceShips:    m.rpcPlaceShips,
		RpcFire:          m.rpcFire,
		RpcCancel:        m.rpcCancel,
		RpcState:         m.rpcState,
		RpcStats:         m.rpcStats,
		RpcInvoicePaid:   m.rpcInvoicePaid,
		RpcInvoiceFailed: m.rpcInvoiceFailed,
	}
	for id, fn := range rpcs {
		if err := initializer.RegisterRpc(id, fn); err != nil {
			return fmt.Errorf("failed to register rpc %s: %w", id, err)
		}
	}
	if err := initializer.RegisterEventSessionEnd(m.onSessionEnd); err != nil {
		return fmt.Errorf("failed to register session end hook: %w", err)
	}
	return nil
}

func loadConfig(env map[string]string) (*config.GameConfig, bool, error) {
	cfg := config.DefaultGameConfig()
	if path, ok := env[EnvGameConfig]; ok && path != "" {
		loaded, err := config.LoadGameConfig(path)
		if err != nil {
			return nil, false, err
		}
		cfg = loaded
	}
	if val, ok := env[EnvForfeitPayout]; ok {
		cfg.ForfeitPayout = val == "true"
	}
	if val, ok := env[EnvPlatformAccount]; ok && val != "" {
		cfg.PlatformAccount = val
	}

	botsEnabled := true
	if val, ok := env[EnvBotsEnabled]; ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, false, fmt.Errorf("invalid %s %q: %w", EnvBotsEnabled, val, err)
		}
		botsEnabled = b
	}
	return cfg, botsEnabled, nil
}
