// Package arbiter parses arbiter command flags and launches the arbiter
// runtime.
package arbiter

import (
	"context"
	"flag"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/app"
	entrypoint "github.com/roadwars/roadwars/internal/platform/cmd"
)

// Config holds arbiter command configuration.
type Config struct {
	Port              int           `env:"ROADWARS_ARBITER_PORT" envDefault:"8095"`
	DBPath            string        `env:"ROADWARS_ARBITER_DB_PATH" envDefault:"data/arbiter.db"`
	SettlementURL     string        `env:"ROADWARS_SETTLEMENT_URL"`
	SettlementAPIKey  string        `env:"ROADWARS_SETTLEMENT_API_KEY"`
	SettlementTimeout time.Duration `env:"ROADWARS_SETTLEMENT_TIMEOUT" envDefault:"10s"`
	SweepInterval     time.Duration `env:"ROADWARS_ARBITER_SWEEP_INTERVAL" envDefault:"30s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The arbiter health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The arbiter SQLite database path")
	fs.StringVar(&cfg.SettlementURL, "settlement-url", cfg.SettlementURL, "The settlement layer base URL")
	fs.StringVar(&cfg.SettlementAPIKey, "settlement-api-key", cfg.SettlementAPIKey, "The settlement layer API key")
	fs.DurationVar(&cfg.SettlementTimeout, "settlement-timeout", cfg.SettlementTimeout, "Settlement request timeout")
	fs.DurationVar(&cfg.SweepInterval, "sweep-interval", cfg.SweepInterval, "Timeout and expiry sweep interval")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the arbiter runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceArbiter, func(context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Port:              cfg.Port,
			DBPath:            cfg.DBPath,
			SettlementURL:     cfg.SettlementURL,
			SettlementAPIKey:  cfg.SettlementAPIKey,
			SettlementTimeout: cfg.SettlementTimeout,
			SweepInterval:     cfg.SweepInterval,
		})
	})
}
