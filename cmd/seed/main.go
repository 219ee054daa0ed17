// Package main loads world fixtures into the arbiter database.
package main

import (
	"context"
	"flag"
	"os"

	seedcmd "github.com/roadwars/roadwars/internal/cmd/seed"
	"github.com/roadwars/roadwars/internal/platform/config"
)

func main() {
	cfg, err := seedcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("parse flags: %v", err)
	}
	if err := seedcmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("seed fixtures: %v", err)
	}
}
