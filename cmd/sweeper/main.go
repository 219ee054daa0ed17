// Package main runs one arbiter sweep pass and exits.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	sweepercmd "github.com/roadwars/roadwars/internal/cmd/sweeper"
)

func main() {
	cfg, err := sweepercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SWEEPER] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sweepercmd.Run(ctx, cfg); err != nil {
		log.Fatalf("sweep failed: %v", err)
	}
}
