// Package app wires the arbiter runtime: storage, settlement client,
// engine, health serving, and the periodic sweep loop.
package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/roadwars/roadwars/internal/arbiter/service"
	"github.com/roadwars/roadwars/internal/arbiter/settlement"
	"github.com/roadwars/roadwars/internal/arbiter/settlement/httpapi"
	"github.com/roadwars/roadwars/internal/arbiter/storage/sqlite"
	"github.com/roadwars/roadwars/internal/platform/timeouts"
)

// RuntimeConfig controls arbiter startup, dependencies, and sweep behavior.
type RuntimeConfig struct {
	Port              int
	DBPath            string
	SettlementURL     string
	SettlementAPIKey  string
	SettlementTimeout time.Duration
	SweepInterval     time.Duration
}

// HealthService is the named gRPC health service the arbiter registers.
// The healthcheck command probes it to gate traffic on a serving daemon.
const HealthService = "arbiter.runtime"

const (
	defaultArbiterPort = 8095
	defaultArbiterDB   = "data/arbiter.db"
	defaultSweepEvery  = 30 * time.Second
)

// Run starts the arbiter runtime and blocks sweeping until ctx ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Port <= 0 {
		cfg.Port = defaultArbiterPort
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaultSweepEvery
	}

	store, engine, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close arbiter sqlite store: %v", closeErr)
		}
	}()

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen on arbiter port %d: %w", cfg.Port, err)
	}
	defer listener.Close()

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- grpcServer.Serve(listener)
	}()
	defer func() {
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		<-serveErr
	}()

	log.Printf("arbiter server listening at %v", listener.Addr())
	return sweepLoop(ctx, engine, cfg.SweepInterval)
}

// Sweep runs one pass of the timeout and expiry sweeps and returns.
func Sweep(ctx context.Context, cfg RuntimeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}

	store, engine, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Printf("close arbiter sqlite store: %v", closeErr)
		}
	}()

	return sweepOnce(ctx, engine)
}

func setup(cfg RuntimeConfig) (*sqlite.Store, *service.Engine, error) {
	if strings.TrimSpace(cfg.SettlementURL) == "" {
		return nil, nil, fmt.Errorf("settlement base URL is required")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = defaultArbiterDB
	}
	if cfg.SettlementTimeout <= 0 {
		cfg.SettlementTimeout = timeouts.SettlementRequest
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create arbiter storage dir: %w", err)
		}
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open arbiter sqlite store: %w", err)
	}

	receipts, err := settlement.LoadVerifierConfigFromEnv(nil)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load settlement verifier config: %w", err)
	}

	ledger := httpapi.NewClient(cfg.SettlementURL, cfg.SettlementAPIKey, &http.Client{
		Timeout: cfg.SettlementTimeout,
	})

	engine, err := service.NewEngine(service.Config{
		Store:    store,
		Ledger:   ledger,
		Receipts: receipts,
	})
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("build arbiter engine: %w", err)
	}
	return store, engine, nil
}

func sweepLoop(ctx context.Context, engine *service.Engine, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := sweepOnce(ctx, engine); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("sweep pass: %v", err)
			}
		}
	}
}

func sweepOnce(ctx context.Context, engine *service.Engine) error {
	resolved, err := engine.ResolveExpired(ctx)
	if err != nil {
		return fmt.Errorf("resolve expired contests: %w", err)
	}
	expired, err := engine.ExpireAlliances(ctx)
	if err != nil {
		return fmt.Errorf("expire alliances: %w", err)
	}
	if resolved > 0 || expired > 0 {
		log.Printf("sweep pass contests=%d alliances=%d", resolved, expired)
	}
	return nil
}
