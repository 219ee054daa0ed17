// Package main probes the arbiter daemon's gRPC health endpoint.
package main

import (
	"context"
	"flag"
	"os"

	healthcheckcmd "github.com/roadwars/roadwars/internal/cmd/healthcheck"
	"github.com/roadwars/roadwars/internal/platform/config"
)

func main() {
	cfg, err := healthcheckcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := healthcheckcmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("probe arbiter: %v", err)
	}
}
