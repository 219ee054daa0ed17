// Package sweeper parses sweeper command flags and runs a single sweep
// pass, for cron-style deployments that do not keep the arbiter daemon
// resident.
package sweeper

import (
	"context"
	"flag"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/app"
	entrypoint "github.com/roadwars/roadwars/internal/platform/cmd"
)

// Config holds sweeper command configuration.
type Config struct {
	DBPath            string        `env:"ROADWARS_ARBITER_DB_PATH" envDefault:"data/arbiter.db"`
	SettlementURL     string        `env:"ROADWARS_SETTLEMENT_URL"`
	SettlementAPIKey  string        `env:"ROADWARS_SETTLEMENT_API_KEY"`
	SettlementTimeout time.Duration `env:"ROADWARS_SETTLEMENT_TIMEOUT" envDefault:"10s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The arbiter SQLite database path")
	fs.StringVar(&cfg.SettlementURL, "settlement-url", cfg.SettlementURL, "The settlement layer base URL")
	fs.StringVar(&cfg.SettlementAPIKey, "settlement-api-key", cfg.SettlementAPIKey, "The settlement layer API key")
	fs.DurationVar(&cfg.SettlementTimeout, "settlement-timeout", cfg.SettlementTimeout, "Settlement request timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one sweep pass and returns.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSweeper, func(context.Context) error {
		return app.Sweep(ctx, app.RuntimeConfig{
			DBPath:            cfg.DBPath,
			SettlementURL:     cfg.SettlementURL,
			SettlementAPIKey:  cfg.SettlementAPIKey,
			SettlementTimeout: cfg.SettlementTimeout,
		})
	})
}
