// Package healthcheck probes a running arbiter daemon's gRPC health
// endpoint. Container health checks and deploy scripts use it to gate
// traffic on a serving arbiter.
package healthcheck

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/roadwars/roadwars/internal/arbiter/app"
	entrypoint "github.com/roadwars/roadwars/internal/platform/cmd"
	platformgrpc "github.com/roadwars/roadwars/internal/platform/grpc"
)

// Config holds healthcheck command configuration.
type Config struct {
	Addr    string        `env:"ROADWARS_ARBITER_ADDR" envDefault:"localhost:8095"`
	Timeout time.Duration `env:"ROADWARS_HEALTHCHECK_TIMEOUT" envDefault:"5s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The arbiter gRPC address to probe")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "How long to wait for a serving arbiter")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run dials the arbiter and waits for its health service to report
// serving.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	conn, err := platformgrpc.DialWithHealth(ctx, nil, cfg.Addr, app.HealthService, cfg.Timeout, nil, platformgrpc.DefaultClientDialOptions()...)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Fprintf(out, "arbiter is serving at %s\n", cfg.Addr)
	return nil
}
