package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rentacar/cmd/internal/passphrase"
	"rentacar/config"
	"rentacar/core"
	"rentacar/crypto"
	"rentacar/eventlog"
	"rentacar/observability"
	"rentacar/observability/logging"
	telemetry "rentacar/observability/otel"
	"rentacar/rpc"
	"rentacar/storage"
)

const serviceName = "rentacard"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		fmt.Fprintf(os.Stderr, "rentacard: %v\n", err)
		os.Exit(1)
	}
}

func run(configFile string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.Setup(serviceName, cfg.Environment, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
	}.ApplyEnv())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	pass, err := passphrase.NewSource(passphrase.EnvKeystorePassphrase, "admin keystore").Get()
	if err != nil {
		return err
	}
	adminKey, created, err := crypto.LoadOrCreateKeystore(cfg.AdminKeystorePath, pass)
	if err != nil {
		return fmt.Errorf("admin keystore: %w", err)
	}
	admin := adminKey.PubKey().Address()
	if created {
		logger.Info("created admin keystore",
			slog.String("admin", admin.String()),
			logging.MaskField("keystore", cfg.AdminKeystorePath))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	store, err := eventlog.Open(cfg.EventLogPath(), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics := observability.Contract()
	exec := core.NewExecutor(db,
		core.WithLogger(logger),
		core.WithMetrics(metrics),
		core.WithSink(store),
	)

	genesis, err := buildGenesis(cfg, admin.Raw())
	if err != nil {
		return err
	}
	applied, err := exec.Bootstrap(ctx, genesis)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if applied {
		logger.Info("genesis applied",
			slog.String("admin", admin.String()),
			slog.String("paymentAsset", cfg.PaymentAsset),
			slog.Int("allocations", len(genesis.Allocations)))
	}

	server := rpc.NewServer(exec, store, rpc.Config{
		RequestsPerMinute: int(cfg.RateLimit.RequestsPerMinute),
		Burst:             int(cfg.RateLimit.Burst),
		Logger:            logger,
		Metrics:           metrics,
	})
	if err := server.Serve(ctx, cfg.ListenAddress); err != nil {
		return fmt.Errorf("rpc: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildGenesis turns the configured asset and allocations into the one-time
// bootstrap applied to a fresh data directory.
func buildGenesis(cfg *config.Config, admin [20]byte) (core.Genesis, error) {
	asset, err := crypto.ParseAccount(cfg.PaymentAsset)
	if err != nil {
		return core.Genesis{}, fmt.Errorf("payment asset: %w", err)
	}
	genesis := core.Genesis{Admin: admin, PaymentAsset: asset}
	for i, alloc := range cfg.Allocations {
		addr, amount, err := alloc.Parse()
		if err != nil {
			return core.Genesis{}, fmt.Errorf("allocations[%d]: %w", i, err)
		}
		genesis.Allocations = append(genesis.Allocations, core.Allocation{Address: addr, Amount: amount})
	}
	return genesis, nil
}
